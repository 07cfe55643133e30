package model

import "time"

type BackupStatus string

const (
	BackupPending  BackupStatus = "pending"
	BackupComplete BackupStatus = "complete"
	BackupFailed   BackupStatus = "failed"
)

type BackupRecord struct {
	ID        int64        `json:"id"`
	Filename  string       `json:"filename"`
	SizeBytes int64        `json:"size_bytes"`
	Location  string       `json:"location"`
	Status    BackupStatus `json:"status"`
	Error     string       `json:"error"`
	CreatedAt time.Time    `json:"created_at"`
}
