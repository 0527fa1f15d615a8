package model

import "time"

type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobDead    JobStatus = "dead"
)

// Job is an outbox row. It is written in the same transaction as the state
// change that caused it and picked up by the job queue after commit.
type Job struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Kind        string    `gorm:"index;not null"`
	Payload     []byte    `gorm:"not null"`
	Status      JobStatus `gorm:"index;not null"`
	Attempts    int       `gorm:"not null;default:0"`
	MaxAttempts int       `gorm:"not null"`
	RunAt       time.Time `gorm:"index"`
	LockedUntil *time.Time
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
