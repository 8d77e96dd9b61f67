package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/skandula/docsim-server/internal/models"
)

// fakeRepo is an in-memory Repository used as a test double. All methods are
// mutex-guarded so the concurrent deduction semantics match the real store.
type fakeRepo struct {
	mu       sync.Mutex
	users    map[int64]*models.User
	docs     []*models.Document
	requests map[int64]*models.CreditRequest
	logs     []*models.ActivityLogEntry
	nextID   int64

	failListDocuments     bool
	failCreateDocument    bool
	failCreateActivityLog bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:    make(map[int64]*models.User),
		requests: make(map[int64]*models.CreditRequest),
	}
}

func (r *fakeRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *fakeRepo) addUser(username, email, role string, credits int) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	user := &models.User{
		ID:        r.id(),
		Username:  username,
		Email:     email,
		Role:      role,
		Credits:   credits,
		CreatedAt: time.Now().UTC(),
	}
	r.users[user.ID] = user
	return user
}

func (r *fakeRepo) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = r.id()
	user.CreatedAt = time.Now().UTC()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

func (r *fakeRepo) CountUsers(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *fakeRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]models.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, *user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *fakeRepo) PromoteUser(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			user.Role = models.RoleAdmin
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) DeductCredits(ctx context.Context, userID int64, amount int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok || user.Credits < amount {
		return false, nil
	}
	user.Credits -= amount
	return true, nil
}

func (r *fakeRepo) AddCredits(ctx context.Context, userID int64, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[userID]; ok {
		user.Credits += amount
	}
	return nil
}

func (r *fakeRepo) ResetAllCredits(ctx context.Context, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		user.Credits = amount
	}
	return nil
}

func (r *fakeRepo) CreateDocument(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateDocument {
		return errors.New("insert failed")
	}
	doc.ID = r.id()
	if doc.UploadDate.IsZero() {
		doc.UploadDate = time.Now().UTC()
	}
	cp := *doc
	r.docs = append(r.docs, &cp)
	return nil
}

func (r *fakeRepo) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.ID == id {
			cp := *doc
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) ListDocumentsByUser(ctx context.Context, userID int64) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := make([]models.Document, 0)
	for _, doc := range r.docs {
		if doc.UserID == userID {
			docs = append(docs, *doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].UploadDate.After(docs[j].UploadDate) })
	return docs, nil
}

func (r *fakeRepo) ListDocuments(ctx context.Context) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failListDocuments {
		return nil, errors.New("query failed")
	}
	docs := make([]models.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (r *fakeRepo) CreateCreditRequest(ctx context.Context, request *models.CreditRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	request.ID = r.id()
	request.Status = models.RequestPending
	request.RequestDate = time.Now().UTC()
	cp := *request
	r.requests[request.ID] = &cp
	return nil
}

func (r *fakeRepo) ListPendingRequests(ctx context.Context) ([]models.PendingRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := make([]models.PendingRequest, 0)
	for _, request := range r.requests {
		if request.Status != models.RequestPending {
			continue
		}
		user := r.users[request.UserID]
		pending = append(pending, models.PendingRequest{
			CreditRequest: *request,
			Username:      user.Username,
			Email:         user.Email,
		})
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].RequestDate.After(pending[j].RequestDate) })
	return pending, nil
}

func (r *fakeRepo) ApproveCreditRequest(ctx context.Context, requestID int64, amount int) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[requestID]
	if !ok || request.Status != models.RequestPending {
		return 0, false, nil
	}
	now := time.Now().UTC()
	request.Status = models.RequestApproved
	request.ResponseDate = &now
	if user, ok := r.users[request.UserID]; ok {
		user.Credits += amount
	}
	return request.UserID, true, nil
}

func (r *fakeRepo) DenyCreditRequest(ctx context.Context, requestID int64) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[requestID]
	if !ok || request.Status != models.RequestPending {
		return 0, false, nil
	}
	now := time.Now().UTC()
	request.Status = models.RequestDenied
	request.ResponseDate = &now
	return request.UserID, true, nil
}

func (r *fakeRepo) CreateActivityLog(ctx context.Context, entry *models.ActivityLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateActivityLog {
		return errors.New("log insert failed")
	}
	entry.ID = r.id()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	cp := *entry
	r.logs = append(r.logs, &cp)
	return nil
}

func (r *fakeRepo) ListActivityByUser(ctx context.Context, userID int64) ([]models.ActivityLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]models.ActivityLogEntry, 0)
	for _, entry := range r.logs {
		if entry.UserID == userID {
			entries = append(entries, *entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.After(entries[j].Timestamp)
		}
		return entries[i].ID > entries[j].ID
	})
	return entries, nil
}

func (r *fakeRepo) GetAnalytics(ctx context.Context) (*models.Analytics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := 0
	for _, request := range r.requests {
		if request.Status == models.RequestPending {
			pending++
		}
	}
	today := 0
	now := time.Now().UTC()
	for _, entry := range r.logs {
		y1, m1, d1 := entry.Timestamp.UTC().Date()
		y2, m2, d2 := now.Date()
		if y1 == y2 && m1 == m2 && d1 == d2 {
			today++
		}
	}
	return &models.Analytics{
		TotalUsers:      len(r.users),
		TotalDocuments:  len(r.docs),
		TodayActivities: today,
		PendingRequests: pending,
	}, nil
}

// fakeFiles is an in-memory FileStore recording staged, promoted and removed
// paths so compensation behavior can be asserted.
type fakeFiles struct {
	mu          sync.Mutex
	nextID      int
	staged      map[string][]byte
	failStage   bool
	failPromote bool
	removed     []string
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{staged: make(map[string][]byte)}
}

func (f *fakeFiles) Stage(content []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStage {
		return "", errors.New("stage failed")
	}
	f.nextID++
	path := "staging/" + strconv.Itoa(f.nextID)
	f.staged[path] = content
	return path, nil
}

func (f *fakeFiles) Promote(stagingPath string, userID int64, filename string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPromote {
		return "", errors.New("promote failed")
	}
	content, ok := f.staged[stagingPath]
	if !ok {
		return "", errors.New("staged file missing")
	}
	delete(f.staged, stagingPath)
	path := "permanent/" + filename
	f.staged[path] = content
	return path, nil
}

func (f *fakeFiles) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, path)
	delete(f.staged, path)
	return nil
}

func (f *fakeFiles) removedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}
