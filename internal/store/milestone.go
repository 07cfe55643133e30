package store

import (
	"database/sql"
	"fmt"

	"github.com/gnetorg/gnet/internal/model"
)

type MilestoneStore struct {
	db *sql.DB
}

func NewMilestoneStore(db *sql.DB) *MilestoneStore {
	return &MilestoneStore{db: db}
}

func scanMilestone(scanner interface{ Scan(...any) error }) (*model.Milestone, error) {
	var m model.Milestone
	err := scanner.Scan(&m.ID, &m.IdeaID, &m.Title, &m.Description, &m.DueDate, &m.Status)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const milestoneCols = `id, idea_id, title, description, due_date, status`

func (s *MilestoneStore) Create(ideaID int64, title, description, dueDate, status string) (*model.Milestone, error) {
	result, err := s.db.Exec(
		`INSERT INTO milestones (idea_id, title, description, due_date, status) VALUES (?, ?, ?, ?, ?)`,
		ideaID, title, description, dueDate, status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert milestone: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *MilestoneStore) GetByID(id int64) (*model.Milestone, error) {
	row := s.db.QueryRow(`SELECT `+milestoneCols+` FROM milestones WHERE id = ?`, id)
	m, err := scanMilestone(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get milestone: %w", err)
	}
	return m, nil
}

func (s *MilestoneStore) List() ([]model.Milestone, error) {
	rows, err := s.db.Query(`SELECT ` + milestoneCols + ` FROM milestones ORDER BY due_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer rows.Close()
	return collectMilestones(rows)
}

func (s *MilestoneStore) ListByIdea(ideaID int64) ([]model.Milestone, error) {
	rows, err := s.db.Query(
		`SELECT `+milestoneCols+` FROM milestones WHERE idea_id = ? ORDER BY due_date ASC, id ASC`,
		ideaID,
	)
	if err != nil {
		return nil, fmt.Errorf("list milestones by idea: %w", err)
	}
	defer rows.Close()
	return collectMilestones(rows)
}

func collectMilestones(rows *sql.Rows) ([]model.Milestone, error) {
	var milestones []model.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		milestones = append(milestones, *m)
	}
	return milestones, rows.Err()
}

func (s *MilestoneStore) Update(id int64, title, description, dueDate, status string) (*model.Milestone, error) {
	_, err := s.db.Exec(
		`UPDATE milestones SET title = ?, description = ?, due_date = ?, status = ? WHERE id = ?`,
		title, description, dueDate, status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update milestone: %w", err)
	}
	return s.GetByID(id)
}

func (s *MilestoneStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM milestones WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete milestone: %w", err)
	}
	return nil
}
