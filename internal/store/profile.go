package store

import (
	"database/sql"
	"fmt"

	"github.com/gnetorg/gnet/internal/model"
)

type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func scanProfile(scanner interface{ Scan(...any) error }) (*model.MemberProfile, error) {
	var p model.MemberProfile
	err := scanner.Scan(
		&p.ID, &p.UserID, &p.Phone, &p.County, &p.Skills,
		&p.Profession, &p.PortfolioURL, &p.Bio, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const profileCols = `id, user_id, phone, county, skills, profession, portfolio_url, bio, created_at, updated_at`

// RegisterMember creates the account and its profile in a single
// transaction. If the profile insert fails the account does not persist.
func (s *ProfileStore) RegisterMember(email, fullName string, role model.Role, passwordHash string, p model.MemberProfile) (*model.User, *model.MemberProfile, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO users (email, full_name, role, password_hash) VALUES (?, ?, ?, ?)`,
		NormalizeEmail(email), fullName, role, passwordHash,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert user: %w", err)
	}
	userID, err := result.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("last insert id: %w", err)
	}

	result, err = tx.Exec(
		`INSERT INTO member_profiles (user_id, phone, county, skills, profession, portfolio_url, bio)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, p.Phone, p.County, p.Skills, p.Profession, p.PortfolioURL, p.Bio,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert profile: %w", err)
	}
	profileID, err := result.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("last insert id: %w", err)
	}

	user, err := scanUser(tx.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, userID))
	if err != nil {
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	profile, err := scanProfile(tx.QueryRow(`SELECT `+profileCols+` FROM member_profiles WHERE id = ?`, profileID))
	if err != nil {
		return nil, nil, fmt.Errorf("get profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return user, profile, nil
}

func (s *ProfileStore) GetByID(id int64) (*model.MemberProfile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM member_profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) GetByUserID(userID int64) (*model.MemberProfile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM member_profiles WHERE user_id = ?`, userID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile by user: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) List() ([]model.MemberProfile, error) {
	rows, err := s.db.Query(`SELECT ` + profileCols + ` FROM member_profiles ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.MemberProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// Directory returns profiles joined with the owner's name, optionally
// filtered by a name substring and an exact county.
func (s *ProfileStore) Directory(search, county string) ([]model.DirectoryEntry, error) {
	query := `SELECT p.id, p.user_id, p.phone, p.county, p.skills, p.profession,
		p.portfolio_url, p.bio, p.created_at, p.updated_at, u.full_name
		FROM member_profiles p JOIN users u ON u.id = p.user_id WHERE 1=1`
	var args []any
	if search != "" {
		query += ` AND u.full_name LIKE ?`
		args = append(args, "%"+search+"%")
	}
	if county != "" {
		query += ` AND p.county = ?`
		args = append(args, county)
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}
	defer rows.Close()

	var entries []model.DirectoryEntry
	for rows.Next() {
		var e model.DirectoryEntry
		err := rows.Scan(
			&e.ID, &e.UserID, &e.Phone, &e.County, &e.Skills,
			&e.Profession, &e.PortfolioURL, &e.Bio, &e.CreatedAt, &e.UpdatedAt,
			&e.FullName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan directory entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *ProfileStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM member_profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return n, nil
}

func (s *ProfileStore) Update(id int64, p model.MemberProfile) (*model.MemberProfile, error) {
	_, err := s.db.Exec(
		`UPDATE member_profiles
		 SET phone = ?, county = ?, skills = ?, profession = ?, portfolio_url = ?, bio = ?,
		     updated_at = datetime('now')
		 WHERE id = ?`,
		p.Phone, p.County, p.Skills, p.Profession, p.PortfolioURL, p.Bio, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProfileStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM member_profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
