package types

import "time"

// UserBlueprint is a user-owned blueprint. Its content lives in an
// append-only list of BlueprintVersion rows; the highest number wins.
type UserBlueprint struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Name          string    `json:"name"`
	Category      string    `json:"category,omitempty"`
	LatestVersion int       `json:"latest_version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BlueprintVersion is one immutable edit of a user blueprint.
type BlueprintVersion struct {
	ID          string    `json:"id"`
	BlueprintID string    `json:"blueprint_id"`
	Number      int       `json:"number"`
	Blocks      []string  `json:"blocks"`
	Constraints []string  `json:"constraints,omitempty"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
