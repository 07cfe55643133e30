package store

import (
	"database/sql"
	"fmt"

	"github.com/gnetorg/gnet/internal/model"
)

type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

func scanBackup(scanner interface{ Scan(...any) error }) (*model.BackupRecord, error) {
	var b model.BackupRecord
	err := scanner.Scan(&b.ID, &b.Filename, &b.SizeBytes, &b.Location, &b.Status, &b.Error, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const backupCols = `id, filename, size_bytes, location, status, error, created_at`

func (s *BackupStore) Create(filename string) (*model.BackupRecord, error) {
	result, err := s.db.Exec(`INSERT INTO backups (filename) VALUES (?)`, filename)
	if err != nil {
		return nil, fmt.Errorf("insert backup: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *BackupStore) GetByID(id int64) (*model.BackupRecord, error) {
	row := s.db.QueryRow(`SELECT `+backupCols+` FROM backups WHERE id = ?`, id)
	b, err := scanBackup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup: %w", err)
	}
	return b, nil
}

func (s *BackupStore) MarkComplete(id, sizeBytes int64, location string) error {
	_, err := s.db.Exec(
		`UPDATE backups SET status = 'complete', size_bytes = ?, location = ? WHERE id = ?`,
		sizeBytes, location, id,
	)
	if err != nil {
		return fmt.Errorf("mark backup complete: %w", err)
	}
	return nil
}

func (s *BackupStore) MarkFailed(id int64, errMsg string) error {
	_, err := s.db.Exec(`UPDATE backups SET status = 'failed', error = ? WHERE id = ?`, errMsg, id)
	if err != nil {
		return fmt.Errorf("mark backup failed: %w", err)
	}
	return nil
}

// ListRecent returns the latest backup records, newest first.
func (s *BackupStore) ListRecent(limit int) ([]model.BackupRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+backupCols+` FROM backups ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []model.BackupRecord
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}
