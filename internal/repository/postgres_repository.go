package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/skandula/docsim-server/internal/models"
)

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	PromoteUser(ctx context.Context, email string) (bool, error)

	// Credit ledger operations
	DeductCredits(ctx context.Context, userID int64, amount int) (bool, error)
	AddCredits(ctx context.Context, userID int64, amount int) error
	ResetAllCredits(ctx context.Context, amount int) error

	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
	ListDocumentsByUser(ctx context.Context, userID int64) ([]models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)

	// Credit request operations
	CreateCreditRequest(ctx context.Context, request *models.CreditRequest) error
	ListPendingRequests(ctx context.Context) ([]models.PendingRequest, error)
	ApproveCreditRequest(ctx context.Context, requestID int64, amount int) (int64, bool, error)
	DenyCreditRequest(ctx context.Context, requestID int64) (int64, bool, error)

	// Activity log operations
	CreateActivityLog(ctx context.Context, entry *models.ActivityLogEntry) error
	ListActivityByUser(ctx context.Context, userID int64) ([]models.ActivityLogEntry, error)

	// Analytics
	GetAnalytics(ctx context.Context) (*models.Analytics, error)
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, email, password, role, credits, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	user.CreatedAt = time.Now().UTC()

	return r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.Password, user.Role, user.Credits, user.CreatedAt).
		Scan(&user.ID)
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT * FROM users WHERE username = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT * FROM users WHERE email = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT * FROM users WHERE id = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`)
	return count, err
}

func (r *PostgresRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	query := `SELECT * FROM users ORDER BY id ASC`

	var users []models.User
	err := r.db.SelectContext(ctx, &users, query)
	if err != nil {
		return nil, err
	}

	return users, nil
}

func (r *PostgresRepository) PromoteUser(ctx context.Context, email string) (bool, error) {
	query := `UPDATE users SET role = $1 WHERE email = $2`

	result, err := r.db.ExecContext(ctx, query, models.RoleAdmin, email)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// Credit ledger repository methods

// DeductCredits atomically decrements a balance that can cover the amount.
// The guarded single-statement UPDATE is what serializes concurrent deductions
// for the same user: two racing requests cannot both pass the credits check.
func (r *PostgresRepository) DeductCredits(ctx context.Context, userID int64, amount int) (bool, error) {
	query := `UPDATE users SET credits = credits - $2 WHERE id = $1 AND credits >= $2`

	result, err := r.db.ExecContext(ctx, query, userID, amount)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *PostgresRepository) AddCredits(ctx context.Context, userID int64, amount int) error {
	query := `UPDATE users SET credits = credits + $2 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, userID, amount)
	return err
}

func (r *PostgresRepository) ResetAllCredits(ctx context.Context, amount int) error {
	query := `UPDATE users SET credits = $1`

	_, err := r.db.ExecContext(ctx, query, amount)
	return err
}

// Document repository methods
func (r *PostgresRepository) CreateDocument(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (user_id, filename, content, file_path, upload_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	if doc.UploadDate.IsZero() {
		doc.UploadDate = time.Now().UTC()
	}

	return r.db.QueryRowContext(ctx, query,
		doc.UserID, doc.Filename, doc.Content, doc.FilePath, doc.UploadDate).
		Scan(&doc.ID)
}

func (r *PostgresRepository) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	query := `SELECT * FROM documents WHERE id = $1`

	var doc models.Document
	err := r.db.GetContext(ctx, &doc, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Document not found
		}
		return nil, err
	}

	return &doc, nil
}

func (r *PostgresRepository) ListDocumentsByUser(ctx context.Context, userID int64) ([]models.Document, error) {
	query := `
		SELECT id, user_id, filename, upload_date FROM documents
		WHERE user_id = $1
		ORDER BY upload_date DESC
	`

	var docs []models.Document
	err := r.db.SelectContext(ctx, &docs, query, userID)
	if err != nil {
		return nil, err
	}

	return docs, nil
}

// ListDocuments returns the full comparison corpus: id, filename and content
// of every stored document.
func (r *PostgresRepository) ListDocuments(ctx context.Context) ([]models.Document, error) {
	query := `SELECT id, user_id, filename, content, upload_date FROM documents ORDER BY id ASC`

	var docs []models.Document
	err := r.db.SelectContext(ctx, &docs, query)
	if err != nil {
		return nil, err
	}

	return docs, nil
}

// Credit request repository methods
func (r *PostgresRepository) CreateCreditRequest(ctx context.Context, request *models.CreditRequest) error {
	query := `
		INSERT INTO credit_requests (user_id, requested_amount, status, request_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	request.Status = models.RequestPending
	request.RequestDate = time.Now().UTC()

	return r.db.QueryRowContext(ctx, query,
		request.UserID, request.RequestedAmount, request.Status, request.RequestDate).
		Scan(&request.ID)
}

func (r *PostgresRepository) ListPendingRequests(ctx context.Context) ([]models.PendingRequest, error) {
	query := `
		SELECT cr.*, u.username, u.email FROM credit_requests cr
		JOIN users u ON cr.user_id = u.id
		WHERE cr.status = $1
		ORDER BY cr.request_date DESC
	`

	var requests []models.PendingRequest
	err := r.db.SelectContext(ctx, &requests, query, models.RequestPending)
	if err != nil {
		return nil, err
	}

	return requests, nil
}

// ApproveCreditRequest flips a pending request to approved and grants the
// credits in one transaction. The status guard on the UPDATE makes the
// transition single-shot: a second resolution matches no row and no credits
// are granted twice. Returns the owning user id and whether a row was flipped.
func (r *PostgresRepository) ApproveCreditRequest(ctx context.Context, requestID int64, amount int) (int64, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	var userID int64
	err = tx.QueryRowContext(ctx,
		`UPDATE credit_requests
		SET status = $2, response_date = $3
		WHERE id = $1 AND status = $4
		RETURNING user_id`,
		requestID, models.RequestApproved, time.Now().UTC(), models.RequestPending).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = nil
			tx.Rollback()
			return 0, false, nil // Not pending, or no such request
		}
		return 0, false, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET credits = credits + $2 WHERE id = $1`, userID, amount)
	if err != nil {
		return 0, false, err
	}

	if err = tx.Commit(); err != nil {
		return 0, false, err
	}

	return userID, true, nil
}

func (r *PostgresRepository) DenyCreditRequest(ctx context.Context, requestID int64) (int64, bool, error) {
	var userID int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE credit_requests
		SET status = $2, response_date = $3
		WHERE id = $1 AND status = $4
		RETURNING user_id`,
		requestID, models.RequestDenied, time.Now().UTC(), models.RequestPending).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil // Not pending, or no such request
		}
		return 0, false, err
	}

	return userID, true, nil
}

// Activity log repository methods
func (r *PostgresRepository) CreateActivityLog(ctx context.Context, entry *models.ActivityLogEntry) error {
	query := `
		INSERT INTO activity_logs (user_id, action_type, details, timestamp)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	return r.db.QueryRowContext(ctx, query,
		entry.UserID, entry.ActionType, entry.Details, entry.Timestamp).
		Scan(&entry.ID)
}

func (r *PostgresRepository) ListActivityByUser(ctx context.Context, userID int64) ([]models.ActivityLogEntry, error) {
	query := `
		SELECT * FROM activity_logs
		WHERE user_id = $1
		ORDER BY timestamp DESC, id DESC
	`

	var entries []models.ActivityLogEntry
	err := r.db.SelectContext(ctx, &entries, query, userID)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Analytics repository methods
func (r *PostgresRepository) GetAnalytics(ctx context.Context) (*models.Analytics, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM documents) AS total_documents,
			(SELECT COUNT(*) FROM activity_logs WHERE timestamp::date = CURRENT_DATE) AS today_activities,
			(SELECT COUNT(*) FROM credit_requests WHERE status = 'pending') AS pending_requests
	`

	var analytics models.Analytics
	err := r.db.GetContext(ctx, &analytics, query)
	if err != nil {
		return nil, err
	}

	return &analytics, nil
}
