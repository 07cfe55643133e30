package model

import "time"

type IdeaStatus string

const (
	IdeaSubmitted IdeaStatus = "Submitted"
	IdeaReviewing IdeaStatus = "Reviewing"
	IdeaApproved  IdeaStatus = "Approved"
	IdeaRejected  IdeaStatus = "Rejected"
)

type Idea struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	Title            string     `json:"title"`
	ProblemStatement string     `json:"problem_statement"`
	ProposedSolution string     `json:"proposed_solution"`
	Status           IdeaStatus `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type Proposal struct {
	ID          int64     `json:"id"`
	IdeaID      int64     `json:"idea_id"`
	DocumentURL string    `json:"document_url"`
	Description string    `json:"description"`
	ApprovedBy  *int64    `json:"approved_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Milestone struct {
	ID          int64  `json:"id"`
	IdeaID      int64  `json:"idea_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	Status      string `json:"status"`
}
