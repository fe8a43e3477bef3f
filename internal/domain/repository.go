package domain

// InstallRepository defines the interface for install job persistence
type InstallRepository interface {
	// Create creates a new install job
	Create(install *Install) error

	// Update updates an existing install job
	Update(install *Install) error

	// Delete deletes an install job by ID
	Delete(id string) error

	// FindByID finds an install job by ID, returning ErrInstallNotFound if absent
	FindByID(id string) (*Install, error)

	// FindActiveByFramework returns the most recent queued or running job for a framework, or nil
	FindActiveByFramework(framework string) (*Install, error)

	// FindByStatus finds install jobs by status
	FindByStatus(status InstallStatus) ([]*Install, error)

	// FindPending finds all queued jobs ordered by priority and creation time
	FindPending() ([]*Install, error)

	// FindAll finds all install jobs with optional filters
	FindAll(filters map[string]interface{}) ([]*Install, error)

	// ResetOrphaned re-queues jobs left running by a crashed process
	ResetOrphaned() (int64, error)

	// GetStats returns install statistics
	GetStats() (*InstallStats, error)
}

// InstallStats represents install job statistics
type InstallStats struct {
	Total       int64 `json:"total"`
	Queued      int64 `json:"queued"`
	Downloading int64 `json:"downloading"`
	Installing  int64 `json:"installing"`
	Installed   int64 `json:"installed"`
	Failed      int64 `json:"failed"`
	Cancelled   int64 `json:"cancelled"`
}
