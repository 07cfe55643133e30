package store

import (
	"database/sql"
	"fmt"

	"github.com/gnetorg/gnet/internal/model"
)

type ApplicationStore struct {
	db *sql.DB
}

func NewApplicationStore(db *sql.DB) *ApplicationStore {
	return &ApplicationStore{db: db}
}

func scanApplication(scanner interface{ Scan(...any) error }) (*model.MembershipApplication, error) {
	var a model.MembershipApplication
	err := scanner.Scan(&a.ID, &a.FullName, &a.Email, &a.County, &a.Motivation, &a.Status, &a.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const applicationCols = `id, full_name, email, county, motivation, status, submitted_at`

func (s *ApplicationStore) Create(fullName, email, county, motivation string) (*model.MembershipApplication, error) {
	result, err := s.db.Exec(
		`INSERT INTO membership_applications (full_name, email, county, motivation) VALUES (?, ?, ?, ?)`,
		fullName, NormalizeEmail(email), county, motivation,
	)
	if err != nil {
		return nil, fmt.Errorf("insert application: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ApplicationStore) GetByID(id int64) (*model.MembershipApplication, error) {
	row := s.db.QueryRow(`SELECT `+applicationCols+` FROM membership_applications WHERE id = ?`, id)
	a, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	return a, nil
}

func (s *ApplicationStore) List() ([]model.MembershipApplication, error) {
	rows, err := s.db.Query(`SELECT ` + applicationCols + ` FROM membership_applications ORDER BY submitted_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var apps []model.MembershipApplication
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}

func (s *ApplicationStore) CountPending() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM membership_applications WHERE status = 'Pending'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending applications: %w", err)
	}
	return n, nil
}

func (s *ApplicationStore) SetStatus(id int64, status model.ApplicationStatus) (*model.MembershipApplication, error) {
	_, err := s.db.Exec(`UPDATE membership_applications SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return nil, fmt.Errorf("set application status: %w", err)
	}
	return s.GetByID(id)
}
