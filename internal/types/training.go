// Package types provides the persisted entities shared by the training
// pipeline, activation bindings and user blueprints.
// This package has no dependencies on other internal packages to avoid import cycles.
package types

import "time"

// DatasetStatus is the validation state of a dataset. It only moves forward.
type DatasetStatus string

const (
	DatasetPending   DatasetStatus = "pending"
	DatasetValidated DatasetStatus = "validated"
	DatasetInvalid   DatasetStatus = "invalid"
)

// IssueSeverity grades a quality issue.
type IssueSeverity string

const (
	// SeverityError fails validation.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is reported but does not fail validation.
	SeverityWarning IssueSeverity = "warning"
)

// QualityIssue is one finding of dataset validation.
type QualityIssue struct {
	Code     string        `json:"code"`
	Severity IssueSeverity `json:"severity"`
	Message  string        `json:"message"`
}

// QualityReport is the outcome of dataset validation.
type QualityReport struct {
	ImageCount    int            `json:"image_count"`
	MinImages     int            `json:"min_images"`
	SoftMaxImages int            `json:"soft_max_images"`
	Issues        []QualityIssue `json:"issues"`
	CheckedAt     time.Time      `json:"checked_at"`
}

// HasErrors reports whether any issue fails validation.
func (r *QualityReport) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Dataset is a set of training images uploaded for one model.
type Dataset struct {
	ID         string        `json:"id"`
	ModelID    string        `json:"model_id"`
	OwnerID    string        `json:"owner_id"`
	ImageCount int           `json:"image_count"`
	Status     DatasetStatus `json:"status"`
	// UploadURL is the presigned write target. It exists before any bytes
	// are uploaded and says nothing about content.
	UploadURL string `json:"upload_url,omitempty"`
	// PublicURL is where the worker fetches the archive from.
	PublicURL     string         `json:"public_url"`
	QualityReport *QualityReport `json:"quality_report,omitempty"`
	// DatasetHash versions the validated dataset. It is not a content hash.
	DatasetHash string    `json:"dataset_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Model is a user-owned container of trained versions.
type Model struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	TriggerWord string    `json:"trigger_word,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VersionStatus tracks a version through training.
type VersionStatus string

const (
	VersionTraining VersionStatus = "training"
	VersionReady    VersionStatus = "ready"
	VersionFailed   VersionStatus = "failed"
)

// Version is one trained (or training) artifact of a model.
type Version struct {
	ID          string         `json:"id"`
	ModelID     string         `json:"model_id"`
	OwnerID     string         `json:"owner_id"`
	Number      int            `json:"number"`
	DatasetID   string         `json:"dataset_id"`
	DatasetHash string         `json:"dataset_hash"`
	Params      map[string]any `json:"params,omitempty"`
	Status      VersionStatus  `json:"status"`
	// ArtifactURL is written once, by the first completed callback.
	ArtifactURL   string     `json:"artifact_url,omitempty"`
	Checksum      string     `json:"checksum,omitempty"`
	PreviewImages []string   `json:"preview_images,omitempty"`
	TrainedAt     *time.Time `json:"trained_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// JobStatus is the state of a training job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is one training attempt for a version.
type Job struct {
	ID            string    `json:"id"`
	VersionID     string    `json:"version_id"`
	ModelID       string    `json:"model_id"`
	DatasetID     string    `json:"dataset_id"`
	OwnerID       string    `json:"owner_id"`
	Status        JobStatus `json:"status"`
	ExternalJobID string    `json:"external_job_id,omitempty"`
	LogsURL       string    `json:"logs_url,omitempty"`
	Error         string    `json:"error,omitempty"`
	// Mock is set when no worker was configured; the job stays pending.
	Mock         bool       `json:"mock,omitempty"`
	Attempts     int        `json:"attempts"`
	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ActivationBinding is the trained version currently in effect for a user.
// A user has at most one.
type ActivationBinding struct {
	UserID      string    `json:"user_id"`
	VersionID   string    `json:"version_id"`
	ModelID     string    `json:"model_id"`
	Weight      float64   `json:"weight"`
	ActivatedAt time.Time `json:"activated_at"`
}
