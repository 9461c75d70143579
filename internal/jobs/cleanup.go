package jobs

import (
	"errors"
	"log/slog"
	"time"

	"futurion/internal/forms"
)

const cleanupBatchSize = 1000

// CleanupJob deletes stored contact messages older than the retention period.
type CleanupJob struct {
	dbManager     ConnectionProvider
	logger        *slog.Logger
	retentionDays int
	batchPause    time.Duration
	now           func() time.Time
}

func NewCleanupJob(dbManager ConnectionProvider, logger *slog.Logger, retentionDays int) *CleanupJob {
	return &CleanupJob{
		dbManager:     dbManager,
		logger:        logger,
		retentionDays: retentionDays,
		batchPause:    100 * time.Millisecond,
		now:           time.Now,
	}
}

func (j *CleanupJob) Name() string { return "contact_cleanup" }

// Run removes contact messages created before the cutoff. A retention of zero
// or less keeps everything.
func (j *CleanupJob) Run() error {
	if j.retentionDays <= 0 {
		j.logger.Debug("Contact retention disabled, skipping cleanup")
		return nil
	}

	db := j.dbManager.GetConnection()
	if db == nil {
		return errors.New("cleanup: no database connection")
	}
	cutoffDate := j.now().AddDate(0, 0, -j.retentionDays)

	j.logger.Info("Starting cleanup of old contact messages",
		slog.Int("retention_days", j.retentionDays),
		slog.Time("cutoff_date", cutoffDate))

	var countToDelete int64
	if err := db.Model(&forms.ContactMessage{}).
		Where("created_at < ?", cutoffDate).
		Count(&countToDelete).Error; err != nil {
		j.logger.Error("Failed to count old contact messages", slog.Any("error", err))
		return err
	}

	if countToDelete == 0 {
		j.logger.Debug("No old contact messages to clean up")
		return nil
	}

	// Delete in batches to avoid locking the database for too long
	totalDeleted := int64(0)
	for {
		batch := db.Model(&forms.ContactMessage{}).
			Select("id").
			Where("created_at < ?", cutoffDate).
			Order("id").
			Limit(cleanupBatchSize)

		result := db.Where("id IN (?)", batch).Delete(&forms.ContactMessage{})
		if result.Error != nil {
			j.logger.Error("Failed to delete old contact messages",
				slog.Any("error", result.Error),
				slog.Int64("deleted_so_far", totalDeleted))
			return result.Error
		}

		totalDeleted += result.RowsAffected
		if result.RowsAffected < cleanupBatchSize {
			break
		}

		time.Sleep(j.batchPause)
	}

	j.logger.Info("Cleaned up old contact messages",
		slog.Int64("deleted_count", totalDeleted),
		slog.Int("retention_days", j.retentionDays))

	return nil
}

var _ Job = (*CleanupJob)(nil)
