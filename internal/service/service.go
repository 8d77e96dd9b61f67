package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/skandula/docsim-server/internal/apperr"
	"github.com/skandula/docsim-server/internal/models"
	"github.com/skandula/docsim-server/internal/repository"
	"github.com/skandula/docsim-server/internal/similarity"
	"github.com/skandula/docsim-server/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// Activity log action tags
const (
	ActionUpload              = "upload"
	ActionCreditRequest       = "credit_request"
	ActionCreditsAdded        = "credits_added"
	ActionCreditRequestDenied = "credit_request_denied"
)

// FileStore persists document bytes. Uploads are staged first and promoted
// to permanent per-user storage once the upload transaction commits.
type FileStore interface {
	Stage(content []byte) (string, error)
	Promote(stagingPath string, userID int64, filename string) (string, error)
	Remove(path string) error
}

// Service defines all the business logic operations
type Service interface {
	// Authentication
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)

	// Documents
	UploadDocument(ctx context.Context, userID int64, filename string, content []byte) (*models.UploadResponse, error)
	ListDocuments(ctx context.Context, userID int64) ([]models.DocumentListItem, error)
	ViewDocument(ctx context.Context, userID int64, role string, documentID int64) (*models.DocumentView, error)
	DownloadDocument(ctx context.Context, userID int64, documentID int64) (*models.Document, error)

	// Credit ledger
	GetCredits(ctx context.Context, userID int64) (int, error)
	ResetAllCredits(ctx context.Context) error

	// Credit request workflow
	SubmitCreditRequest(ctx context.Context, userID int64, amount int) (int64, error)
	ListPendingRequests(ctx context.Context) ([]models.PendingRequest, error)
	ResolveCreditRequest(ctx context.Context, requestID int64, status string, amount int) error

	// Activity log
	ListActivity(ctx context.Context, userID int64) ([]models.ActivityLogEntry, error)
	ExportActivity(ctx context.Context, userID int64) (string, error)

	// Administration
	ListUsers(ctx context.Context) ([]models.User, error)
	PromoteUser(ctx context.Context, email string) error
	GetAnalytics(ctx context.Context) (*models.Analytics, error)
}

// Options holds the tunables of the DefaultService
type Options struct {
	JWTSecret           string
	MaxUploadBytes      int64
	SimilarityThreshold float64
	DailyCredits        int
	SignatureCacheSize  int
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	files         FileStore
	scorer        *similarity.Scorer
	signatures    *similarity.SignatureCache
	logger        *utils.Logger
	jwtSecret     []byte
	tokenDuration time.Duration
	opts          Options
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, files FileStore, logger *utils.Logger, opts Options) *DefaultService {
	scorer := similarity.NewScorer()
	return &DefaultService{
		repo:          repo,
		files:         files,
		scorer:        scorer,
		signatures:    similarity.NewSignatureCache(scorer, opts.SignatureCacheSize),
		logger:        logger,
		jwtSecret:     []byte(opts.JWTSecret),
		tokenDuration: 24 * time.Hour,
		opts:          opts,
	}
}

// Authentication methods
func (s *DefaultService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	// Check if username or email is already taken
	existing, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperr.Storage("Failed to check username", err)
	}
	if existing != nil {
		return nil, apperr.Validation("Username or email already exists")
	}

	existing, err = s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperr.Storage("Failed to check email", err)
	}
	if existing != nil {
		return nil, apperr.Validation("Username or email already exists")
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("error hashing password: %w", err))
	}

	// The very first account becomes the administrator
	role := models.RoleUser
	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, apperr.Storage("Failed to count users", err)
	}
	if count == 0 {
		role = models.RoleAdmin
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		Role:     role,
		Credits:  s.opts.DailyCredits,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, apperr.Storage("Failed to create user", err)
	}

	return &models.AuthResponse{
		Status:   "success",
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperr.Storage("Failed to get user", err)
	}

	if user == nil {
		return nil, apperr.Unauthorized("Invalid username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperr.Unauthorized("Invalid username or password")
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("error generating token: %w", err))
	}

	return &models.AuthResponse{
		Status:    "success",
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

// Document query methods
func (s *DefaultService) ListDocuments(ctx context.Context, userID int64) ([]models.DocumentListItem, error) {
	docs, err := s.repo.ListDocumentsByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("Failed to fetch documents", err)
	}

	items := make([]models.DocumentListItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, models.DocumentListItem{
			ID:         doc.ID,
			Filename:   doc.Filename,
			UploadDate: doc.UploadDate.UTC().Format(time.RFC3339),
		})
	}

	return items, nil
}

func (s *DefaultService) ViewDocument(ctx context.Context, userID int64, role string, documentID int64) (*models.DocumentView, error) {
	doc, err := s.repo.GetDocument(ctx, documentID)
	if err != nil {
		return nil, apperr.Storage("Failed to fetch document", err)
	}

	// Owners may view their own documents; administrators may view any
	if doc == nil || (doc.UserID != userID && role != models.RoleAdmin) {
		return nil, apperr.NotFound("Document not found")
	}

	return &models.DocumentView{
		Filename:   doc.Filename,
		Content:    doc.Content,
		UploadDate: doc.UploadDate.UTC().Format(time.RFC3339),
	}, nil
}

func (s *DefaultService) DownloadDocument(ctx context.Context, userID int64, documentID int64) (*models.Document, error) {
	doc, err := s.repo.GetDocument(ctx, documentID)
	if err != nil {
		return nil, apperr.Storage("Failed to fetch document", err)
	}

	// Downloads are owner-only
	if doc == nil || doc.UserID != userID {
		return nil, apperr.NotFound("Document not found")
	}

	return doc, nil
}

// Credit ledger methods
func (s *DefaultService) GetCredits(ctx context.Context, userID int64) (int, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return 0, apperr.Storage("Failed to fetch credits", err)
	}

	if user == nil {
		return 0, apperr.NotFound("User not found")
	}

	return user.Credits, nil
}

// ResetAllCredits sets every balance back to the daily allowance. Invoked by
// the midnight scheduler.
func (s *DefaultService) ResetAllCredits(ctx context.Context) error {
	if err := s.repo.ResetAllCredits(ctx, s.opts.DailyCredits); err != nil {
		return apperr.Storage("Failed to reset credits", err)
	}
	return nil
}

// Credit request workflow methods
func (s *DefaultService) SubmitCreditRequest(ctx context.Context, userID int64, amount int) (int64, error) {
	if amount < 1 {
		return 0, apperr.Validation("Invalid credit amount requested")
	}

	request := &models.CreditRequest{
		UserID:          userID,
		RequestedAmount: amount,
	}

	if err := s.repo.CreateCreditRequest(ctx, request); err != nil {
		return 0, apperr.Storage("Failed to submit request", err)
	}

	s.logActivity(ctx, userID, ActionCreditRequest, fmt.Sprintf("Requested %d credits", amount))

	return request.ID, nil
}

func (s *DefaultService) ListPendingRequests(ctx context.Context) ([]models.PendingRequest, error) {
	requests, err := s.repo.ListPendingRequests(ctx)
	if err != nil {
		return nil, apperr.Storage("Failed to fetch requests", err)
	}

	return requests, nil
}

// ResolveCreditRequest transitions a pending request to approved or denied.
// The transition is single-shot: resolving an already-resolved request is
// rejected and never grants credits twice.
func (s *DefaultService) ResolveCreditRequest(ctx context.Context, requestID int64, status string, amount int) error {
	switch status {
	case models.RequestApproved:
		if amount < 1 {
			return apperr.Validation("Invalid credit amount")
		}

		userID, resolved, err := s.repo.ApproveCreditRequest(ctx, requestID, amount)
		if err != nil {
			return apperr.Storage("Failed to update request", err)
		}
		if !resolved {
			return apperr.NotFound("Credit request not found or already resolved")
		}

		s.logActivity(ctx, userID, ActionCreditsAdded, fmt.Sprintf("%d credits approved by admin", amount))

	case models.RequestDenied:
		userID, resolved, err := s.repo.DenyCreditRequest(ctx, requestID)
		if err != nil {
			return apperr.Storage("Failed to update request", err)
		}
		if !resolved {
			return apperr.NotFound("Credit request not found or already resolved")
		}

		s.logActivity(ctx, userID, ActionCreditRequestDenied, "Credit request denied by admin")

	default:
		return apperr.Validation("Invalid status")
	}

	return nil
}

// Activity log methods
func (s *DefaultService) ListActivity(ctx context.Context, userID int64) ([]models.ActivityLogEntry, error) {
	entries, err := s.repo.ListActivityByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("Failed to fetch activity logs", err)
	}

	return entries, nil
}

// ExportActivity renders the user's activity as a flat text report, one line
// per entry, most recent first.
func (s *DefaultService) ExportActivity(ctx context.Context, userID int64) (string, error) {
	entries, err := s.repo.ListActivityByUser(ctx, userID)
	if err != nil {
		return "", apperr.Storage("Failed to fetch activity logs", err)
	}

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("%s - %s: %s",
			entry.Timestamp.UTC().Format(time.RFC3339), entry.ActionType, entry.Details))
	}

	return strings.Join(lines, "\n"), nil
}

// Administration methods
func (s *DefaultService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Storage("Failed to fetch users", err)
	}

	return users, nil
}

func (s *DefaultService) PromoteUser(ctx context.Context, email string) error {
	promoted, err := s.repo.PromoteUser(ctx, email)
	if err != nil {
		return apperr.Storage("Failed to promote user", err)
	}
	if !promoted {
		return apperr.NotFound("User not found")
	}

	return nil
}

func (s *DefaultService) GetAnalytics(ctx context.Context) (*models.Analytics, error) {
	analytics, err := s.repo.GetAnalytics(ctx)
	if err != nil {
		return nil, apperr.Storage("Failed to fetch analytics", err)
	}

	return analytics, nil
}

// logActivity appends an audit entry. Best-effort: a logging failure is
// reported on the operator channel and never fails the parent operation.
func (s *DefaultService) logActivity(ctx context.Context, userID int64, actionType, details string) {
	entry := &models.ActivityLogEntry{
		UserID:     userID,
		ActionType: actionType,
		Details:    details,
	}

	if err := s.repo.CreateActivityLog(ctx, entry); err != nil {
		s.logger.Error("Failed to log activity for user %d (%s): %v", userID, actionType, err)
	}
}

// Helper methods
func (s *DefaultService) generateJWT(user *models.User) (string, error) {
	expirationTime := time.Now().Add(s.tokenDuration)

	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(user.ID, 10), // subject
		"role": user.Role,
		"exp":  expirationTime.Unix(),
		"iat":  time.Now().Unix(), // issued at
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
