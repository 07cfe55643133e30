package model

import "time"

type MemberProfile struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Phone        string    `json:"phone"`
	County       string    `json:"county"`
	Skills       string    `json:"skills"`
	Profession   string    `json:"profession"`
	PortfolioURL string    `json:"portfolio_url"`
	Bio          string    `json:"bio"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DirectoryEntry is a profile joined with its owner's public fields for the
// member directory listing.
type DirectoryEntry struct {
	MemberProfile
	FullName string `json:"full_name"`
}
