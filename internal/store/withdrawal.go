package store

import (
	"database/sql"
	"fmt"

	"github.com/gnetorg/gnet/internal/model"
)

type WithdrawalStore struct {
	db *sql.DB
}

func NewWithdrawalStore(db *sql.DB) *WithdrawalStore {
	return &WithdrawalStore{db: db}
}

func scanWithdrawal(scanner interface{ Scan(...any) error }) (*model.WithdrawalRequest, error) {
	var w model.WithdrawalRequest
	var approvedBy sql.NullInt64
	err := scanner.Scan(
		&w.ID, &w.UserID, &w.AmountCents, &w.Reason, &w.Status,
		&approvedBy, &w.Notes, &w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if approvedBy.Valid {
		w.ApprovedBy = &approvedBy.Int64
	}
	return &w, nil
}

const withdrawalCols = `id, user_id, amount_cents, reason, status, approved_by, notes, created_at`

func (s *WithdrawalStore) Create(userID, amountCents int64, reason, notes string) (*model.WithdrawalRequest, error) {
	result, err := s.db.Exec(
		`INSERT INTO withdrawal_requests (user_id, amount_cents, reason, notes) VALUES (?, ?, ?, ?)`,
		userID, amountCents, reason, notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert withdrawal: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *WithdrawalStore) GetByID(id int64) (*model.WithdrawalRequest, error) {
	row := s.db.QueryRow(`SELECT `+withdrawalCols+` FROM withdrawal_requests WHERE id = ?`, id)
	w, err := scanWithdrawal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get withdrawal: %w", err)
	}
	return w, nil
}

func (s *WithdrawalStore) List() ([]model.WithdrawalRequest, error) {
	rows, err := s.db.Query(`SELECT ` + withdrawalCols + ` FROM withdrawal_requests ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	defer rows.Close()
	return collectWithdrawals(rows)
}

func (s *WithdrawalStore) ListByUser(userID int64) ([]model.WithdrawalRequest, error) {
	rows, err := s.db.Query(
		`SELECT `+withdrawalCols+` FROM withdrawal_requests WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals by user: %w", err)
	}
	defer rows.Close()
	return collectWithdrawals(rows)
}

func collectWithdrawals(rows *sql.Rows) ([]model.WithdrawalRequest, error) {
	var withdrawals []model.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, *w)
	}
	return withdrawals, rows.Err()
}

func (s *WithdrawalStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM withdrawal_requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete withdrawal: %w", err)
	}
	return nil
}

// Decide records an approval or rejection along with the deciding account.
func (s *WithdrawalStore) Decide(id int64, status model.WithdrawalStatus, approverID int64, notes string) (*model.WithdrawalRequest, error) {
	_, err := s.db.Exec(
		`UPDATE withdrawal_requests SET status = ?, approved_by = ?, notes = ? WHERE id = ?`,
		status, approverID, notes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("decide withdrawal: %w", err)
	}
	return s.GetByID(id)
}
