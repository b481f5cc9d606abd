// Package prompts is the compile service. It resolves the caller's
// blueprint and activation, runs a per-request compiler and keeps an
// immutable history of what was generated. It also manages user
// blueprints, whose content lives in append-only versions.
package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/compiler"
)

// CompileInput is a compile request plus the caller's adapter choice.
type CompileInput struct {
	compiler.Request

	// ActivationVersionID names a trained version to blend in instead of
	// the caller's stored binding.
	ActivationVersionID string   `json:"activation_version_id,omitempty"`
	AdapterWeight       *float64 `json:"adapter_weight,omitempty"`
	// SkipActivation compiles without any adapter.
	SkipActivation bool `json:"skip_activation,omitempty"`
}

// Generation is one persisted compile. It is never modified.
type Generation struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	Request         compiler.Request `json:"request"`
	Result          compiler.Result  `json:"result"`
	UserBlueprintID string           `json:"user_blueprint_id,omitempty"`
	BlueprintNumber int              `json:"blueprint_version,omitempty"`
	// PromptHash is the SHA-256 of the compiled prompt.
	PromptHash string    `json:"prompt_hash"`
	CreatedAt  time.Time `json:"created_at"`
}

// PromptVersion is a user-labelled snapshot of a generation's prompt.
type PromptVersion struct {
	ID           string    `json:"id"`
	GenerationID string    `json:"generation_id"`
	UserID       string    `json:"user_id"`
	Label        string    `json:"label"`
	Prompt       string    `json:"prompt"`
	PromptHash   string    `json:"prompt_hash"`
	Seed         string    `json:"seed"`
	CreatedAt    time.Time `json:"created_at"`
}

// HashText returns a SHA256 hash of the text for change detection.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
