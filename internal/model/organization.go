package model

import "time"

type Announcement struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Priority  string    `json:"priority"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	StartsAt    time.Time `json:"starts_at"`
	Venue       string    `json:"venue"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	Link        string    `json:"link"`
	CreatedAt   time.Time `json:"created_at"`
}

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "Pending"
	ApplicationApproved ApplicationStatus = "Approved"
	ApplicationRejected ApplicationStatus = "Rejected"
)

type MembershipApplication struct {
	ID          int64             `json:"id"`
	FullName    string            `json:"full_name"`
	Email       string            `json:"email"`
	County      string            `json:"county"`
	Motivation  string            `json:"motivation"`
	Status      ApplicationStatus `json:"status"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// OrganizationStats is the headline figures block for the dashboard.
type OrganizationStats struct {
	PendingApplications int `json:"pending_applications"`
	UpcomingEvents      int `json:"upcoming_events"`
	TotalAnnouncements  int `json:"total_announcements"`
}
