package models

// RegisterRequest is the request body for user registration
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is the response for authentication operations
type AuthResponse struct {
	Status    string `json:"status"`
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

// SimilarDocument is one entry of the ranked match list returned by an upload
type SimilarDocument struct {
	ID         int64   `json:"id"`
	Filename   string  `json:"filename"`
	Similarity float64 `json:"similarity"`
}

// UploadResponse is the response for a successful document upload
type UploadResponse struct {
	Status           string            `json:"status"`
	DocumentID       int64             `json:"documentId"`
	SimilarDocuments []SimilarDocument `json:"similarDocuments"`
}

// DocumentListItem is one row of a user's document listing
type DocumentListItem struct {
	ID         int64  `json:"id"`
	Filename   string `json:"filename"`
	UploadDate string `json:"uploadDate"`
}

// DocumentView is the full content of a single document
type DocumentView struct {
	Filename   string `json:"filename"`
	Content    string `json:"content"`
	UploadDate string `json:"uploadDate"`
}

// CreditsResponse is the response for a balance query
type CreditsResponse struct {
	Credits int `json:"credits"`
}

// CreditRequestRequest is the request body for a credit top-up application
type CreditRequestRequest struct {
	Amount int `json:"amount" binding:"required"`
}

// CreditRequestResponse is the response for a submitted credit request
type CreditRequestResponse struct {
	Status    string `json:"status"`
	RequestID int64  `json:"requestId"`
}

// ResolveRequestRequest is the admin request body for resolving a credit request
type ResolveRequestRequest struct {
	Status string `json:"status" binding:"required"`
	Amount int    `json:"amount"`
}

// PromoteRequest is the admin request body for promoting a user
type PromoteRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// MessageResponse is a generic confirmation response
type MessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorResponse is the uniform error body returned by the API
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
