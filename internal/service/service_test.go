package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/skandula/docsim-server/internal/apperr"
	"github.com/skandula/docsim-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterFirstUserBecomesAdmin(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeFiles())
	ctx := context.Background()

	first, err := svc.Register(ctx, models.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, first.Role)

	second, err := svc.Register(ctx, models.RegisterRequest{
		Username: "bob", Email: "bob@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, second.Role)

	// New accounts start with the daily allowance
	credits, err := svc.GetCredits(ctx, second.UserID)
	require.NoError(t, err)
	assert.Equal(t, 20, credits)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeFiles())
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, models.RegisterRequest{
		Username: "alice", Email: "other@example.com", Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.From(err).Code)

	_, err = svc.Register(ctx, models.RegisterRequest{
		Username: "alice2", Email: "alice@example.com", Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.From(err).Code)
}

func TestLogin(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeFiles())
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, models.LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, models.RoleAdmin, resp.Role)

	_, err = svc.Login(ctx, models.LoginRequest{Username: "alice", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.From(err).Code)

	_, err = svc.Login(ctx, models.LoginRequest{Username: "nobody", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.From(err).Code)
}

func TestCreditRequestWorkflow(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeFiles())
	ctx := context.Background()

	alice := repo.addUser("alice", "alice@example.com", models.RoleUser, 5)

	_, err := svc.SubmitCreditRequest(ctx, alice.ID, 0)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.From(err).Code)

	requestID, err := svc.SubmitCreditRequest(ctx, alice.ID, 15)
	require.NoError(t, err)

	pending, err := svc.ListPendingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "alice", pending[0].Username)
	assert.Equal(t, 15, pending[0].RequestedAmount)

	err = svc.ResolveCreditRequest(ctx, requestID, models.RequestApproved, 15)
	require.NoError(t, err)

	credits, err := svc.GetCredits(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, credits)

	pending, err = svc.ListPendingRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	entries, err := svc.ListActivity(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionCreditsAdded, entries[0].ActionType)
	assert.Equal(t, ActionCreditRequest, entries[1].ActionType)
}

func TestResolveCreditRequestIsSingleShot(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeFiles())
	ctx := context.Background()

	alice := repo.addUser("alice", "alice@example.com", models.RoleUser, 0)

	requestID, err := svc.SubmitCreditRequest(ctx, alice.ID, 10)
	require.NoError(t, err)

	require.NoError(t, svc.ResolveCreditRequest(ctx, requestID, models.RequestApproved, 10))

	// Second resolution is rejected and credits are granted only once
	err = svc.ResolveCreditRequest(ctx, requestID, models.RequestApproved, 10)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.From(err).Code)

	credits, err := svc.GetCredits(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, credits)
}

func TestResolveCreditRequestDenied(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeFiles())
	ctx := context.Background()

	alice := repo.addUser("alice", "alice@example.com", models.RoleUser, 3)

	requestID, err := svc.SubmitCreditRequest(ctx, alice.ID, 50)
	require.NoError(t, err)

	require.NoError(t, svc.ResolveCreditRequest(ctx, requestID, models.RequestDenied, 0))

	// Denial never touches the balance
	credits, err := svc.GetCredits(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, credits)

	err = svc.ResolveCreditRequest(ctx, requestID, models.RequestDenied, 0)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.From(err).Code)
}

func TestResolveCreditRequestInvalidStatus(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeFiles())

	err := svc.ResolveCreditRequest(context.Background(), 1, "maybe", 10)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.From(err).Code)
}

func TestExportActivity(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeFiles())
	ctx := context.Background()

	alice := repo.addUser("alice", "alice@example.com", models.RoleUser, 20)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := repo.CreateActivityLog(ctx, &models.ActivityLogEntry{
			UserID:     alice.ID,
			ActionType: ActionUpload,
			Details:    fmt.Sprintf("Uploaded doc-%d.txt", i),
			Timestamp:  base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	report, err := svc.ExportActivity(ctx, alice.ID)
	require.NoError(t, err)

	lines := strings.Split(report, "\n")
	require.Len(t, lines, 3)

	entries, err := svc.ListActivity(ctx, alice.ID)
	require.NoError(t, err)

	// One line per entry, same order as the listing, newest first
	for i, line := range lines {
		expected := fmt.Sprintf("%s - %s: %s",
			entries[i].Timestamp.UTC().Format(time.RFC3339), entries[i].ActionType, entries[i].Details)
		assert.Equal(t, expected, line)

		parts := strings.SplitN(line, " - ", 2)
		require.Len(t, parts, 2)
		_, err := time.Parse(time.RFC3339, parts[0])
		assert.NoError(t, err)
	}
	assert.Equal(t, "Uploaded doc-2.txt", entries[0].Details)
}

func TestExportActivityEmpty(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeFiles())

	alice := repo.addUser("alice", "alice@example.com", models.RoleUser, 20)

	report, err := svc.ExportActivity(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestResetAllCredits(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeFiles())
	ctx := context.Background()

	alice := repo.addUser("alice", "alice@example.com", models.RoleUser, 3)
	bob := repo.addUser("bob", "bob@example.com", models.RoleUser, 37)

	require.NoError(t, svc.ResetAllCredits(ctx))

	for _, id := range []int64{alice.ID, bob.ID} {
		credits, err := svc.GetCredits(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 20, credits)
	}
}

func TestViewDocumentOwnership(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeFiles())
	ctx := context.Background()

	alice := repo.addUser("alice", "alice@example.com", models.RoleUser, 20)
	bob := repo.addUser("bob", "bob@example.com", models.RoleUser, 20)
	admin := repo.addUser("root", "root@example.com", models.RoleAdmin, 20)

	resp, err := svc.UploadDocument(ctx, alice.ID, "a.txt", []byte("hello world"))
	require.NoError(t, err)

	view, err := svc.ViewDocument(ctx, alice.ID, models.RoleUser, resp.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "hello world", view.Content)

	// Another user gets a 404-class error, an admin may view
	_, err = svc.ViewDocument(ctx, bob.ID, models.RoleUser, resp.DocumentID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.From(err).Code)

	_, err = svc.ViewDocument(ctx, admin.ID, models.RoleAdmin, resp.DocumentID)
	require.NoError(t, err)

	// Downloads stay owner-only, even for admins
	_, err = svc.DownloadDocument(ctx, admin.ID, resp.DocumentID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.From(err).Code)

	doc, err := svc.DownloadDocument(ctx, alice.ID, resp.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", doc.Filename)
}

func TestPromoteUser(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeFiles())
	ctx := context.Background()

	bob := repo.addUser("bob", "bob@example.com", models.RoleUser, 20)

	require.NoError(t, svc.PromoteUser(ctx, "bob@example.com"))

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, bob.ID, users[0].ID)
	assert.Equal(t, models.RoleAdmin, users[0].Role)

	err = svc.PromoteUser(ctx, "ghost@example.com")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.From(err).Code)
}

func TestGetAnalytics(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeFiles())
	ctx := context.Background()

	alice := repo.addUser("alice", "alice@example.com", models.RoleUser, 20)
	repo.addUser("bob", "bob@example.com", models.RoleUser, 20)

	_, err := svc.UploadDocument(ctx, alice.ID, "a.txt", []byte("hello"))
	require.NoError(t, err)
	_, err = svc.SubmitCreditRequest(ctx, alice.ID, 5)
	require.NoError(t, err)

	analytics, err := svc.GetAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, analytics.TotalUsers)
	assert.Equal(t, 1, analytics.TotalDocuments)
	assert.Equal(t, 1, analytics.PendingRequests)
	assert.Equal(t, 2, analytics.TodayActivities)
}
