package store

import (
	"database/sql"
	"fmt"

	"github.com/gnetorg/gnet/internal/model"
)

type ProposalStore struct {
	db *sql.DB
}

func NewProposalStore(db *sql.DB) *ProposalStore {
	return &ProposalStore{db: db}
}

func scanProposal(scanner interface{ Scan(...any) error }) (*model.Proposal, error) {
	var p model.Proposal
	var approvedBy sql.NullInt64
	err := scanner.Scan(&p.ID, &p.IdeaID, &p.DocumentURL, &p.Description, &approvedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if approvedBy.Valid {
		p.ApprovedBy = &approvedBy.Int64
	}
	return &p, nil
}

const proposalCols = `id, idea_id, document_url, description, approved_by, created_at, updated_at`

func (s *ProposalStore) Create(ideaID int64, documentURL, description string) (*model.Proposal, error) {
	result, err := s.db.Exec(
		`INSERT INTO proposals (idea_id, document_url, description) VALUES (?, ?, ?)`,
		ideaID, documentURL, description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert proposal: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProposalStore) GetByID(id int64) (*model.Proposal, error) {
	row := s.db.QueryRow(`SELECT `+proposalCols+` FROM proposals WHERE id = ?`, id)
	p, err := scanProposal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	return p, nil
}

func (s *ProposalStore) List() ([]model.Proposal, error) {
	rows, err := s.db.Query(`SELECT ` + proposalCols + ` FROM proposals ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	var proposals []model.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		proposals = append(proposals, *p)
	}
	return proposals, rows.Err()
}

func (s *ProposalStore) Approve(id, approverID int64) (*model.Proposal, error) {
	_, err := s.db.Exec(
		`UPDATE proposals SET approved_by = ?, updated_at = datetime('now') WHERE id = ?`,
		approverID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("approve proposal: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProposalStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM proposals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}
	return nil
}
