package store

import (
	"database/sql"
	"fmt"

	"github.com/gnetorg/gnet/internal/model"
)

type IdeaStore struct {
	db *sql.DB
}

func NewIdeaStore(db *sql.DB) *IdeaStore {
	return &IdeaStore{db: db}
}

func scanIdea(scanner interface{ Scan(...any) error }) (*model.Idea, error) {
	var i model.Idea
	err := scanner.Scan(
		&i.ID, &i.UserID, &i.Title, &i.ProblemStatement, &i.ProposedSolution,
		&i.Status, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

const ideaCols = `id, user_id, title, problem_statement, proposed_solution, status, created_at, updated_at`

func (s *IdeaStore) Create(userID int64, title, problem, solution string) (*model.Idea, error) {
	result, err := s.db.Exec(
		`INSERT INTO ideas (user_id, title, problem_statement, proposed_solution) VALUES (?, ?, ?, ?)`,
		userID, title, problem, solution,
	)
	if err != nil {
		return nil, fmt.Errorf("insert idea: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *IdeaStore) GetByID(id int64) (*model.Idea, error) {
	row := s.db.QueryRow(`SELECT `+ideaCols+` FROM ideas WHERE id = ?`, id)
	i, err := scanIdea(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get idea: %w", err)
	}
	return i, nil
}

// List returns every idea, newest first. Admin scope.
func (s *IdeaStore) List() ([]model.Idea, error) {
	rows, err := s.db.Query(`SELECT ` + ideaCols + ` FROM ideas ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	defer rows.Close()
	return collectIdeas(rows)
}

// ListVisibleTo returns the caller's own ideas plus anyone's approved ideas.
// Non-admin scope; the widening decision stays server-side.
func (s *IdeaStore) ListVisibleTo(userID int64) ([]model.Idea, error) {
	rows, err := s.db.Query(
		`SELECT `+ideaCols+` FROM ideas WHERE user_id = ? OR status = 'Approved' ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list visible ideas: %w", err)
	}
	defer rows.Close()
	return collectIdeas(rows)
}

func collectIdeas(rows *sql.Rows) ([]model.Idea, error) {
	var ideas []model.Idea
	for rows.Next() {
		i, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}
		ideas = append(ideas, *i)
	}
	return ideas, rows.Err()
}

func (s *IdeaStore) Update(id int64, title, problem, solution string) (*model.Idea, error) {
	_, err := s.db.Exec(
		`UPDATE ideas SET title = ?, problem_statement = ?, proposed_solution = ?, updated_at = datetime('now') WHERE id = ?`,
		title, problem, solution, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update idea: %w", err)
	}
	return s.GetByID(id)
}

func (s *IdeaStore) SetStatus(id int64, status model.IdeaStatus) (*model.Idea, error) {
	_, err := s.db.Exec(
		`UPDATE ideas SET status = ?, updated_at = datetime('now') WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("set idea status: %w", err)
	}
	return s.GetByID(id)
}

func (s *IdeaStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM ideas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete idea: %w", err)
	}
	return nil
}
