package models

import "time"

// BatchJobRecord is the local history of batch jobs submitted through this
// dashboard. The backend remains the owner of job state.
type BatchJobRecord struct {
	JobID        string    `gorm:"type:text;primary_key" json:"job_id"`
	SessionID    string    `gorm:"type:text;index" json:"session_id"`
	FileName     string    `gorm:"type:text" json:"file_name"`
	Status       string    `gorm:"type:text;not null" json:"status"`
	Processed    *int      `json:"processed,omitempty"`
	SuccessCount *int      `json:"success_count,omitempty"`
	ErrorCount   *int      `json:"error_count,omitempty"`
	Message      string    `gorm:"type:text" json:"message,omitempty"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (BatchJobRecord) TableName() string {
	return "batch_jobs"
}
