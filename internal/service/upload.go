package service

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/skandula/docsim-server/internal/apperr"
	"github.com/skandula/docsim-server/internal/models"
)

var uploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "docsim_uploads_total",
		Help: "Total number of document upload attempts by outcome.",
	},
	[]string{"outcome"},
)

// UploadDocument runs the upload transaction:
//
//	admission -> deduct credit -> compare against corpus -> promote bytes ->
//	insert row -> audit -> respond
//
// The credit deduction is the first durable mutation. If a later step fails
// the staged and promoted artifacts are cleaned up, but the credit is not
// refunded: an upload that passes admission spends one credit regardless of
// outcome.
func (s *DefaultService) UploadDocument(ctx context.Context, userID int64, filename string, content []byte) (*models.UploadResponse, error) {
	// Admission: no state is mutated before these checks pass
	if filename == "" || len(content) == 0 {
		uploadsTotal.WithLabelValues("rejected").Inc()
		return nil, apperr.Validation("No file uploaded")
	}
	if int64(len(content)) > s.opts.MaxUploadBytes {
		uploadsTotal.WithLabelValues("rejected").Inc()
		return nil, apperr.Validation("File exceeds the maximum allowed size")
	}
	if !utf8.Valid(content) {
		uploadsTotal.WithLabelValues("rejected").Inc()
		return nil, apperr.Validation("Only plain text documents are allowed")
	}

	stagingPath, err := s.files.Stage(content)
	if err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, apperr.Storage("Failed to store uploaded file", err)
	}

	// Deduct: atomic check-then-decrement, serialized per user by the store
	deducted, err := s.repo.DeductCredits(ctx, userID, 1)
	if err != nil {
		s.cleanup(stagingPath)
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, apperr.Storage("Failed to deduct credits", err)
	}
	if !deducted {
		s.cleanup(stagingPath)
		user, lookupErr := s.repo.GetUserByID(ctx, userID)
		if lookupErr == nil && user == nil {
			uploadsTotal.WithLabelValues("error").Inc()
			return nil, apperr.NotFound("User not found")
		}
		uploadsTotal.WithLabelValues("insufficient_credits").Inc()
		return nil, apperr.InsufficientCredits()
	}

	// Compare: every stored document, concurrently; matches above the
	// threshold, ranked by score
	similar, err := s.findSimilar(ctx, string(content))
	if err != nil {
		s.cleanup(stagingPath)
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, apperr.Storage("Failed to compare documents", err)
	}

	// Persist bytes: staging to permanent per-user storage
	permanentPath, err := s.files.Promote(stagingPath, userID, filename)
	if err != nil {
		s.cleanup(stagingPath)
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, apperr.Storage("Failed to store document", err)
	}

	// Persist record: content and storage location land together
	doc := &models.Document{
		UserID:   userID,
		Filename: filename,
		Content:  string(content),
		FilePath: permanentPath,
	}
	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		s.cleanup(permanentPath)
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, apperr.Storage("Failed to save document", err)
	}

	// Audit: best-effort, never fails the upload
	s.logActivity(ctx, userID, ActionUpload, fmt.Sprintf("Uploaded %s", filename))

	uploadsTotal.WithLabelValues("success").Inc()
	return &models.UploadResponse{
		Status:           "success",
		DocumentID:       doc.ID,
		SimilarDocuments: similar,
	}, nil
}

// findSimilar scores the new content against every stored document and
// returns the matches above the threshold, sorted by descending score.
// Comparisons are independent and read-only, so they fan out across a
// bounded pool of workers.
func (s *DefaultService) findSimilar(ctx context.Context, content string) ([]models.SimilarDocument, error) {
	corpus, err := s.repo.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]models.SimilarDocument, 0)
	if len(corpus) == 0 {
		return matches, nil
	}

	newSig := s.scorer.Sign(content)

	workers := runtime.NumCPU()
	if workers > len(corpus) {
		workers = len(corpus)
	}

	jobs := make(chan models.Document)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				sig := s.signatures.SignatureFor(doc.ID, doc.Content)
				score := s.scorer.ScoreSigned(content, newSig, doc.Content, sig)
				if score > s.opts.SimilarityThreshold {
					mu.Lock()
					matches = append(matches, models.SimilarDocument{
						ID:         doc.ID,
						Filename:   doc.Filename,
						Similarity: score,
					})
					mu.Unlock()
				}
			}
		}()
	}

	for _, doc := range corpus {
		jobs <- doc
	}
	close(jobs)
	wg.Wait()

	// Highest score first; ties broken by id for a stable order
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ID < matches[j].ID
	})

	return matches, nil
}

// cleanup removes a partially-written upload artifact. Failures go to the
// operator channel only.
func (s *DefaultService) cleanup(path string) {
	if err := s.files.Remove(path); err != nil {
		s.logger.Error("Failed to clean up upload artifact %s: %v", path, err)
	}
}
