package infrastructure

import (
	"errors"
	"fmt"

	"github.com/yourusername/misc-installer-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SQLiteInstallRepository implements InstallRepository and ConfigMarker using SQLite
type SQLiteInstallRepository struct {
	db *gorm.DB
}

// NewSQLiteInstallRepository creates a new SQLite repository
func NewSQLiteInstallRepository(dbPath string) (*SQLiteInstallRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Install{}, &domain.InstalledFramework{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteInstallRepository{db: db}, nil
}

// Create creates a new install job
func (r *SQLiteInstallRepository) Create(install *domain.Install) error {
	return r.db.Create(install).Error
}

// Update updates an existing install job
func (r *SQLiteInstallRepository) Update(install *domain.Install) error {
	return r.db.Save(install).Error
}

// Delete deletes an install job by ID
func (r *SQLiteInstallRepository) Delete(id string) error {
	return r.db.Delete(&domain.Install{}, "id = ?", id).Error
}

// FindByID finds an install job by ID
func (r *SQLiteInstallRepository) FindByID(id string) (*domain.Install, error) {
	var install domain.Install
	err := r.db.First(&install, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInstallNotFound
		}
		return nil, err
	}
	return &install, nil
}

// FindActiveByFramework returns the newest queued or running job for a framework
func (r *SQLiteInstallRepository) FindActiveByFramework(framework string) (*domain.Install, error) {
	var install domain.Install
	err := r.db.Where("framework = ? AND status IN ?", framework, []domain.InstallStatus{
		domain.StatusQueued,
		domain.StatusDownloading,
		domain.StatusInstalling,
	}).Order("created_at DESC").First(&install).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &install, nil
}

// FindByStatus finds install jobs by status
func (r *SQLiteInstallRepository) FindByStatus(status domain.InstallStatus) ([]*domain.Install, error) {
	var installs []*domain.Install
	err := r.db.Where("status = ?", status).Find(&installs).Error
	return installs, err
}

// FindPending finds all queued jobs ordered by priority and creation time
func (r *SQLiteInstallRepository) FindPending() ([]*domain.Install, error) {
	var installs []*domain.Install
	err := r.db.Where("status = ?", domain.StatusQueued).
		Order("priority DESC, created_at ASC").
		Find(&installs).Error
	return installs, err
}

// FindAll finds all install jobs with optional filters
func (r *SQLiteInstallRepository) FindAll(filters map[string]interface{}) ([]*domain.Install, error) {
	var installs []*domain.Install
	query := r.db

	for key, value := range filters {
		switch key {
		case "status", "framework":
			query = query.Where(fmt.Sprintf("%s = ?", key), value)
		default:
			return nil, fmt.Errorf("unsupported filter: %s", key)
		}
	}

	err := query.Order("created_at DESC").Find(&installs).Error
	return installs, err
}

// ResetOrphaned re-queues jobs that were mid-flight when the previous process died
func (r *SQLiteInstallRepository) ResetOrphaned() (int64, error) {
	result := r.db.Model(&domain.Install{}).
		Where("status IN ?", []domain.InstallStatus{domain.StatusDownloading, domain.StatusInstalling}).
		Update("status", domain.StatusQueued)
	return result.RowsAffected, result.Error
}

// GetStats returns install statistics
func (r *SQLiteInstallRepository) GetStats() (*domain.InstallStats, error) {
	stats := &domain.InstallStats{}

	if err := r.db.Model(&domain.Install{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.InstallStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.Install{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.StatusQueued:
			stats.Queued = sc.Count
		case domain.StatusDownloading:
			stats.Downloading = sc.Count
		case domain.StatusInstalling:
			stats.Installing = sc.Count
		case domain.StatusInstalled:
			stats.Installed = sc.Count
		case domain.StatusFailed:
			stats.Failed = sc.Count
		case domain.StatusCancelled:
			stats.Cancelled = sc.Count
		}
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteInstallRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ============================================================================
// ConfigMarker implementation
// ============================================================================

// MarkInstalled records a framework as installed, replacing any previous record
func (r *SQLiteInstallRepository) MarkInstalled(framework *domain.InstalledFramework) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "install_path", "version", "installed_at"}),
	}).Create(framework).Error
}

// Unmark forgets an installed framework
func (r *SQLiteInstallRepository) Unmark(name string) error {
	return r.db.Delete(&domain.InstalledFramework{}, "name = ?", name).Error
}

// FindInstalled returns the installed record for a framework, or nil
func (r *SQLiteInstallRepository) FindInstalled(name string) (*domain.InstalledFramework, error) {
	var framework domain.InstalledFramework
	err := r.db.Where("name = ?", name).First(&framework).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &framework, nil
}

// ListInstalled returns every installed framework record
func (r *SQLiteInstallRepository) ListInstalled() ([]*domain.InstalledFramework, error) {
	var frameworks []*domain.InstalledFramework
	err := r.db.Order("name ASC").Find(&frameworks).Error
	return frameworks, err
}
