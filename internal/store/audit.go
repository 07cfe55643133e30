package store

import (
	"database/sql"
	"fmt"

	"github.com/gnetorg/gnet/internal/model"
)

type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

func scanAudit(scanner interface{ Scan(...any) error }) (*model.AuditRecord, error) {
	var a model.AuditRecord
	err := scanner.Scan(
		&a.ID, &a.AuditorID, &a.Month, &a.TotalTopUpsCents,
		&a.TotalWithdrawalsCents, &a.MemberCount, &a.Comments, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const auditCols = `id, auditor_id, month, total_topups_cents, total_withdrawals_cents, member_count, comments, created_at`

func (s *AuditStore) Create(a model.AuditRecord) (*model.AuditRecord, error) {
	result, err := s.db.Exec(
		`INSERT INTO audit_records (auditor_id, month, total_topups_cents, total_withdrawals_cents, member_count, comments)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.AuditorID, a.Month, a.TotalTopUpsCents, a.TotalWithdrawalsCents, a.MemberCount, a.Comments,
	)
	if err != nil {
		return nil, fmt.Errorf("insert audit: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AuditStore) GetByID(id int64) (*model.AuditRecord, error) {
	row := s.db.QueryRow(`SELECT `+auditCols+` FROM audit_records WHERE id = ?`, id)
	a, err := scanAudit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get audit: %w", err)
	}
	return a, nil
}

func (s *AuditStore) List() ([]model.AuditRecord, error) {
	rows, err := s.db.Query(`SELECT ` + auditCols + ` FROM audit_records ORDER BY month DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	defer rows.Close()

	var audits []model.AuditRecord
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		audits = append(audits, *a)
	}
	return audits, rows.Err()
}
