package services

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"debatehub/config"
	"debatehub/events"
	"debatehub/models"
	"debatehub/store"
)

// Job references one message awaiting verification.
type Job struct {
	DebateID  string
	MessageID string
	Claim     string
}

// FactCheckService runs asynchronous, best-effort claim verification on a
// bounded worker pool. Verification never gates the debate itself: judge
// failures are retried with backoff and then abandoned, leaving the message
// unflagged and unverified.
type FactCheckService struct {
	store store.Store
	judge Judge
	sink  events.Sink
	cfg   config.FactCheck

	jobs      chan Job
	wg        sync.WaitGroup
	closeOnce sync.Once

	mu       sync.Mutex
	inflight map[string]bool
}

// NewFactCheckService creates the pipeline and starts its workers.
func NewFactCheckService(st store.Store, judge Judge, sink events.Sink, cfg config.FactCheck) *FactCheckService {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	s := &FactCheckService{
		store:    st,
		judge:    judge,
		sink:     sink,
		cfg:      cfg,
		jobs:     make(chan Job, cfg.QueueSize),
		inflight: make(map[string]bool),
	}
	for i := 0; i < cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Enqueue submits a verification job without blocking. When the queue is
// saturated the job is dropped and false is returned; the message simply
// stays unverified.
func (s *FactCheckService) Enqueue(debateID, messageID, claim string) bool {
	select {
	case s.jobs <- Job{DebateID: debateID, MessageID: messageID, Claim: claim}:
		return true
	default:
		return false
	}
}

// Close stops accepting jobs and waits for in-flight verifications.
func (s *FactCheckService) Close() {
	s.closeOnce.Do(func() { close(s.jobs) })
	s.wg.Wait()
}

func (s *FactCheckService) worker() {
	defer s.wg.Done()
	for job := range s.jobs {
		s.Verify(context.Background(), job)
	}
}

// Verify runs the bounded-retry verification for one message. Concurrent
// calls for the same message collapse to one: the in-flight guard turns the
// duplicates into no-ops and the store upsert keys on the message id.
func (s *FactCheckService) Verify(ctx context.Context, job Job) {
	s.mu.Lock()
	if s.inflight[job.MessageID] {
		s.mu.Unlock()
		return
	}
	s.inflight[job.MessageID] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inflight, job.MessageID)
		s.mu.Unlock()
	}()

	verdict, err := s.judgeWithRetry(ctx, job.Claim)
	if err != nil {
		log.Printf("factcheck: abandoning message %s after %d attempts: %v",
			job.MessageID, s.cfg.MaxRetries+1, err)
		return
	}

	confidence := verdict.ConfidenceScore
	if confidence != nil {
		clamped := clamp01(*confidence)
		confidence = &clamped
	}
	flagged := isContradiction(verdict.Result) ||
		(confidence != nil && *confidence < s.cfg.FlagThreshold)

	factCheck := &models.FactCheck{
		ID:                 uuid.NewString(),
		MessageID:          job.MessageID,
		Claim:              job.Claim,
		VerificationResult: verdict.Result,
		ConfidenceScore:    confidence,
		Sources:            verdict.Sources,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.store.UpsertFactCheck(ctx, factCheck); err != nil {
		log.Printf("factcheck: persist result for message %s: %v", job.MessageID, err)
		return
	}
	if flagged {
		if err := s.store.SetMessageFlagged(ctx, job.MessageID, true); err != nil {
			log.Printf("factcheck: flag message %s: %v", job.MessageID, err)
		}
	}

	s.emit(job, verdict.Result, confidence, flagged)
}

func (s *FactCheckService) judgeWithRetry(ctx context.Context, claim string) (*Verdict, error) {
	backoff := time.Duration(s.cfg.BackoffMillis) * time.Millisecond
	timeout := time.Duration(s.cfg.TimeoutSeconds) * time.Second

	var verdict *Verdict
	var err error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff * time.Duration(attempt))
		}
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		verdict, err = s.judge.Judge(callCtx, claim)
		cancel()
		if err == nil {
			return verdict, nil
		}
	}
	return nil, err
}

func (s *FactCheckService) emit(job Job, result string, confidence *float64, flagged bool) {
	event, err := events.NewEvent(events.TypeFactCheckCompleted, events.FactCheckPayload{
		MessageID:       job.MessageID,
		DebateID:        job.DebateID,
		Result:          result,
		ConfidenceScore: confidence,
		Flagged:         flagged,
	})
	if err != nil {
		log.Printf("factcheck: build event: %v", err)
		return
	}
	s.sink.Publish(job.DebateID, event)
}

// isContradiction reports whether a verdict string means the claim failed.
func isContradiction(result string) bool {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "false", "mostly-false", "contradicted", "contradiction":
		return true
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
