package models

import (
	"time"
)

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Credit request statuses
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestDenied   = "denied"
)

// User represents a registered account in the system
type User struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Email     string    `db:"email" json:"email"`
	Password  string    `db:"password" json:"-"` // Password hash, not returned in JSON
	Role      string    `db:"role" json:"role"`
	Credits   int       `db:"credits" json:"credits"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Document represents an uploaded text document. Content doubles as the
// similarity comparison corpus; FilePath points at the stored bytes.
type Document struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"userId"`
	Filename   string    `db:"filename" json:"filename"`
	Content    string    `db:"content" json:"-"`
	FilePath   string    `db:"file_path" json:"-"`
	UploadDate time.Time `db:"upload_date" json:"uploadDate"`
}

// CreditRequest represents a user's application for a credit top-up.
// It transitions exactly once from pending to approved or denied.
type CreditRequest struct {
	ID              int64      `db:"id" json:"id"`
	UserID          int64      `db:"user_id" json:"userId"`
	RequestedAmount int        `db:"requested_amount" json:"requestedAmount"`
	Status          string     `db:"status" json:"status"`
	RequestDate     time.Time  `db:"request_date" json:"requestDate"`
	ResponseDate    *time.Time `db:"response_date" json:"responseDate,omitempty"`
}

// PendingRequest is a CreditRequest joined with the requester's identity,
// as listed for administrators.
type PendingRequest struct {
	CreditRequest
	Username string `db:"username" json:"username"`
	Email    string `db:"email" json:"email"`
}

// ActivityLogEntry is an append-only record of a user action
type ActivityLogEntry struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"userId"`
	ActionType string    `db:"action_type" json:"actionType"`
	Details    string    `db:"details" json:"details"`
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`
}

// Analytics holds the aggregate counters shown on the admin dashboard
type Analytics struct {
	TotalUsers      int `db:"total_users" json:"totalUsers"`
	TotalDocuments  int `db:"total_documents" json:"totalDocuments"`
	TodayActivities int `db:"today_activities" json:"todayActivities"`
	PendingRequests int `db:"pending_requests" json:"pendingRequests"`
}
