package domain

import (
	"time"

	"github.com/google/uuid"
)

// InstallStatus represents the current status of an install job
type InstallStatus string

const (
	StatusQueued      InstallStatus = "queued"
	StatusDownloading InstallStatus = "downloading"
	StatusInstalling  InstallStatus = "installing"
	StatusInstalled   InstallStatus = "installed"
	StatusFailed      InstallStatus = "failed"
	StatusCancelled   InstallStatus = "cancelled"
)

// Install represents one attempt at installing a framework
type Install struct {
	ID           string        `json:"id" gorm:"primaryKey"`
	Framework    string        `json:"framework" gorm:"not null;index"`
	Status       InstallStatus `json:"status" gorm:"not null;index"`
	Priority     int           `json:"priority" gorm:"default:0;index"`
	RetryCount   int           `json:"retry_count" gorm:"default:0"`
	URL          string        `json:"url,omitempty"` // resolved download URL
	InstallPath  string        `json:"install_path,omitempty"`
	Version      string        `json:"version,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	ProcessLog   string        `json:"process_log,omitempty" gorm:"type:text"`
	CreatedAt    time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
}

// NewInstall creates a new install job
func NewInstall(framework string) *Install {
	return &Install{
		ID:        uuid.New().String(),
		Framework: framework,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// MarkDownloading marks the job as resolving and downloading
func (i *Install) MarkDownloading() {
	i.Status = StatusDownloading
	now := time.Now()
	i.StartedAt = &now
	i.UpdatedAt = now
}

// MarkInstalling marks the job as unpacking into the install path
func (i *Install) MarkInstalling(url string) {
	i.Status = StatusInstalling
	i.URL = url
	i.UpdatedAt = time.Now()
}

// MarkInstalled marks the job as done
func (i *Install) MarkInstalled(installPath string) {
	i.Status = StatusInstalled
	i.InstallPath = installPath
	i.ErrorMessage = ""
	now := time.Now()
	i.CompletedAt = &now
	i.UpdatedAt = now
}

// MarkFailed marks the job as failed
func (i *Install) MarkFailed(err error) {
	i.Status = StatusFailed
	i.ErrorMessage = err.Error()
	i.UpdatedAt = time.Now()
}

// IncrementRetry increments the retry count
func (i *Install) IncrementRetry() {
	i.RetryCount++
	i.UpdatedAt = time.Now()
}

// CanRetry checks if the job can be retried
func (i *Install) CanRetry(maxRetries int) bool {
	return i.RetryCount < maxRetries && i.Status == StatusFailed
}

// IsTerminal checks if the job is in a terminal state
func (i *Install) IsTerminal() bool {
	return i.Status == StatusInstalled || i.Status == StatusCancelled
}

// IsPending checks if the job is waiting in the queue
func (i *Install) IsPending() bool {
	return i.Status == StatusQueued
}

// IsActive checks if the job is currently being worked on
func (i *Install) IsActive() bool {
	return i.Status == StatusDownloading || i.Status == StatusInstalling
}

// InstalledFramework is the configuration record written when an install completes
type InstalledFramework struct {
	Name        string    `json:"name" gorm:"primaryKey"`
	Category    string    `json:"category"`
	InstallPath string    `json:"install_path" gorm:"not null"`
	Version     string    `json:"version,omitempty"`
	InstalledAt time.Time `json:"installed_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (InstalledFramework) TableName() string {
	return "installed_frameworks"
}
