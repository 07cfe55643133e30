package store

import (
	"database/sql"
	"fmt"

	"github.com/gnetorg/gnet/internal/model"
)

type AnnouncementStore struct {
	db *sql.DB
}

func NewAnnouncementStore(db *sql.DB) *AnnouncementStore {
	return &AnnouncementStore{db: db}
}

func scanAnnouncement(scanner interface{ Scan(...any) error }) (*model.Announcement, error) {
	var a model.Announcement
	err := scanner.Scan(&a.ID, &a.Title, &a.Message, &a.Priority, &a.ImageURL, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const announcementCols = `id, title, message, priority, image_url, created_at, updated_at`

func (s *AnnouncementStore) Create(title, message, priority, imageURL string) (*model.Announcement, error) {
	result, err := s.db.Exec(
		`INSERT INTO announcements (title, message, priority, image_url) VALUES (?, ?, ?, ?)`,
		title, message, priority, imageURL,
	)
	if err != nil {
		return nil, fmt.Errorf("insert announcement: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AnnouncementStore) GetByID(id int64) (*model.Announcement, error) {
	row := s.db.QueryRow(`SELECT `+announcementCols+` FROM announcements WHERE id = ?`, id)
	a, err := scanAnnouncement(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get announcement: %w", err)
	}
	return a, nil
}

// List returns announcements newest first; limit <= 0 means no limit.
func (s *AnnouncementStore) List(limit int) ([]model.Announcement, error) {
	query := `SELECT ` + announcementCols + ` FROM announcements ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	defer rows.Close()

	var announcements []model.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		announcements = append(announcements, *a)
	}
	return announcements, rows.Err()
}

func (s *AnnouncementStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM announcements`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count announcements: %w", err)
	}
	return n, nil
}

func (s *AnnouncementStore) Update(id int64, title, message, priority, imageURL string) (*model.Announcement, error) {
	_, err := s.db.Exec(
		`UPDATE announcements SET title = ?, message = ?, priority = ?, image_url = ?, updated_at = datetime('now') WHERE id = ?`,
		title, message, priority, imageURL, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update announcement: %w", err)
	}
	return s.GetByID(id)
}

func (s *AnnouncementStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM announcements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return nil
}
