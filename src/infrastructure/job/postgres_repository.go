package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// PostgresJobRepository persists job records in PostgreSQL. It implements
// JobRepository.
type PostgresJobRepository struct {
	db *gorm.DB
}

func NewPostgresJobRepository(db *gorm.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

// Create records a new job in the pending state.
func (r *PostgresJobRepository) Create(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error) {
	job := &Job{
		TaskType: taskType,
		Payload:  payload,
		Status:   JobStatusPending,
	}

	result := r.db.WithContext(ctx).Create(job)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create job record: %v", result.Error)
	}

	return job, nil
}

// Get returns the job with the given id, or nil when no such job exists.
func (r *PostgresJobRepository) Get(ctx context.Context, id int) (*Job, error) {
	var job Job
	result := r.db.WithContext(ctx).First(&job, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job record: %v", result.Error)
	}

	return &job, nil
}

// UpdateStatus moves a job through its lifecycle. A nil jobErr clears any
// previous failure detail.
func (r *PostgresJobRepository) UpdateStatus(ctx context.Context, id int, status JobStatus, jobErr *string) error {
	result := r.db.WithContext(ctx).Model(&Job{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status": status,
		"error":  jobErr,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update job status: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("job not found: %d", id)
	}

	return nil
}
