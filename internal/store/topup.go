package store

import (
	"database/sql"
	"fmt"

	"github.com/gnetorg/gnet/internal/model"
	"github.com/google/uuid"
)

type TopUpStore struct {
	db *sql.DB
}

func NewTopUpStore(db *sql.DB) *TopUpStore {
	return &TopUpStore{db: db}
}

func scanTopUp(scanner interface{ Scan(...any) error }) (*model.TopUp, error) {
	var t model.TopUp
	err := scanner.Scan(
		&t.ID, &t.UserID, &t.AmountCents, &t.Month, &t.Status,
		&t.TransactionID, &t.Notes, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const topUpCols = `id, user_id, amount_cents, month, status, transaction_id, notes, created_at`

// Create records a pending contribution. A transaction id is generated when
// the caller does not supply one; the (user, month) pair is unique.
func (s *TopUpStore) Create(userID, amountCents int64, month, transactionID, notes string) (*model.TopUp, error) {
	if transactionID == "" {
		transactionID = uuid.NewString()
	}
	result, err := s.db.Exec(
		`INSERT INTO topups (user_id, amount_cents, month, transaction_id, notes) VALUES (?, ?, ?, ?, ?)`,
		userID, amountCents, month, transactionID, notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert topup: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TopUpStore) GetByID(id int64) (*model.TopUp, error) {
	row := s.db.QueryRow(`SELECT `+topUpCols+` FROM topups WHERE id = ?`, id)
	t, err := scanTopUp(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get topup: %w", err)
	}
	return t, nil
}

func (s *TopUpStore) GetByTransactionID(txID string) (*model.TopUp, error) {
	row := s.db.QueryRow(`SELECT `+topUpCols+` FROM topups WHERE transaction_id = ?`, txID)
	t, err := scanTopUp(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get topup by transaction: %w", err)
	}
	return t, nil
}

func (s *TopUpStore) List() ([]model.TopUp, error) {
	rows, err := s.db.Query(`SELECT ` + topUpCols + ` FROM topups ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list topups: %w", err)
	}
	defer rows.Close()
	return collectTopUps(rows)
}

func (s *TopUpStore) ListByUser(userID int64) ([]model.TopUp, error) {
	rows, err := s.db.Query(
		`SELECT `+topUpCols+` FROM topups WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list topups by user: %w", err)
	}
	defer rows.Close()
	return collectTopUps(rows)
}

func collectTopUps(rows *sql.Rows) ([]model.TopUp, error) {
	var topups []model.TopUp
	for rows.Next() {
		t, err := scanTopUp(rows)
		if err != nil {
			return nil, fmt.Errorf("scan topup: %w", err)
		}
		topups = append(topups, *t)
	}
	return topups, rows.Err()
}

func (s *TopUpStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM topups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete topup: %w", err)
	}
	return nil
}

func (s *TopUpStore) SetStatus(id int64, status model.TopUpStatus) error {
	_, err := s.db.Exec(`UPDATE topups SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set topup status: %w", err)
	}
	return nil
}

// Summary aggregates the caller's contribution position. thisMonth is the
// "YYYY-MM" bucket treated as current.
func (s *TopUpStore) Summary(userID int64, thisMonth string) (*model.FinanceSummary, error) {
	var sum model.FinanceSummary
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(amount_cents), 0) FROM topups WHERE user_id = ? AND status = 'Success'`,
		userID,
	).Scan(&sum.TotalContributionsCents)
	if err != nil {
		return nil, fmt.Errorf("sum contributions: %w", err)
	}
	err = s.db.QueryRow(
		`SELECT COALESCE(SUM(amount_cents), 0) FROM topups WHERE user_id = ? AND status = 'Success' AND month = ?`,
		userID, thisMonth,
	).Scan(&sum.ThisMonthCents)
	if err != nil {
		return nil, fmt.Errorf("sum this month: %w", err)
	}
	err = s.db.QueryRow(
		`SELECT COALESCE(SUM(amount_cents), 0) FROM withdrawal_requests WHERE user_id = ? AND status = 'Pending'`,
		userID,
	).Scan(&sum.PendingWithdrawalCents)
	if err != nil {
		return nil, fmt.Errorf("sum pending withdrawals: %w", err)
	}
	err = s.db.QueryRow(
		`SELECT COALESCE(SUM(amount_cents), 0) FROM withdrawal_requests WHERE user_id = ? AND status = 'Approved'`,
		userID,
	).Scan(&sum.ApprovedWithdrawalCents)
	if err != nil {
		return nil, fmt.Errorf("sum approved withdrawals: %w", err)
	}
	return &sum, nil
}

// Rankings returns the top contributors by successful top-up volume.
func (s *TopUpStore) Rankings(limit int) ([]model.Ranking, error) {
	rows, err := s.db.Query(
		`SELECT u.id, u.full_name, SUM(t.amount_cents) AS total
		 FROM topups t JOIN users u ON u.id = t.user_id
		 WHERE t.status = 'Success'
		 GROUP BY u.id, u.full_name
		 ORDER BY total DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("rankings: %w", err)
	}
	defer rows.Close()

	var rankings []model.Ranking
	for rows.Next() {
		var r model.Ranking
		if err := rows.Scan(&r.UserID, &r.FullName, &r.TotalCents); err != nil {
			return nil, fmt.Errorf("scan ranking: %w", err)
		}
		rankings = append(rankings, r)
	}
	return rankings, rows.Err()
}
