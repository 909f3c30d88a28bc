package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debatehub/config"
	"debatehub/events"
	"debatehub/models"
	"debatehub/store"
)

// scriptedJudge fails a set number of times, then returns its verdict. An
// optional gate blocks calls until released.
type scriptedJudge struct {
	mu       sync.Mutex
	calls    int
	failures int
	verdict  *Verdict
	started  chan struct{}
	gate     chan struct{}
}

func (j *scriptedJudge) Judge(ctx context.Context, claim string) (*Verdict, error) {
	j.mu.Lock()
	j.calls++
	call := j.calls
	j.mu.Unlock()

	if j.started != nil {
		select {
		case j.started <- struct{}{}:
		default:
		}
	}
	if j.gate != nil {
		<-j.gate
	}
	if call <= j.failures {
		return nil, ErrVerificationUnavailable
	}
	return j.verdict, nil
}

func (j *scriptedJudge) callCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

func testFactCheckConfig() config.FactCheck {
	return config.FactCheck{
		Workers:        1,
		QueueSize:      4,
		FlagThreshold:  0.4,
		MaxRetries:     2,
		TimeoutSeconds: 1,
		BackoffMillis:  1,
	}
}

func floatPtr(v float64) *float64 { return &v }

// seedMessage puts a message row in the store so flagging has a target.
func seedMessage(t *testing.T, st *store.MemoryStore, debateID, messageID string) {
	t.Helper()
	err := st.AppendMessage(context.Background(), &models.Message{
		ID:        messageID,
		DebateID:  debateID,
		UserID:    "u1",
		Content:   "claim",
		Seq:       1,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestVerifyFlagsLowConfidence(t *testing.T) {
	st := store.NewMemoryStore()
	seedMessage(t, st, "d1", "m1")
	judge := &scriptedJudge{verdict: &Verdict{Result: "unverifiable", ConfidenceScore: floatPtr(0.2)}}
	service := NewFactCheckService(st, judge, events.Discard{}, testFactCheckConfig())
	defer service.Close()

	service.Verify(context.Background(), Job{DebateID: "d1", MessageID: "m1", Claim: "claim"})

	factCheck, err := st.GetFactCheckByMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "unverifiable", factCheck.VerificationResult)
	require.NotNil(t, factCheck.ConfidenceScore)
	assert.Equal(t, 0.2, *factCheck.ConfidenceScore)

	message, err := st.GetMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.True(t, message.IsFlagged)
}

func TestVerifyHighConfidenceUnflagged(t *testing.T) {
	st := store.NewMemoryStore()
	seedMessage(t, st, "d1", "m1")
	judge := &scriptedJudge{verdict: &Verdict{Result: "true", ConfidenceScore: floatPtr(0.95)}}
	service := NewFactCheckService(st, judge, events.Discard{}, testFactCheckConfig())
	defer service.Close()

	service.Verify(context.Background(), Job{DebateID: "d1", MessageID: "m1", Claim: "claim"})

	message, err := st.GetMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.False(t, message.IsFlagged)
}

func TestVerifyContradictionFlaggedDespiteConfidence(t *testing.T) {
	st := store.NewMemoryStore()
	seedMessage(t, st, "d1", "m1")
	judge := &scriptedJudge{verdict: &Verdict{Result: "false", ConfidenceScore: floatPtr(0.9)}}
	service := NewFactCheckService(st, judge, events.Discard{}, testFactCheckConfig())
	defer service.Close()

	service.Verify(context.Background(), Job{DebateID: "d1", MessageID: "m1", Claim: "claim"})

	message, err := st.GetMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.True(t, message.IsFlagged)
}

func TestVerifyWithoutConfidenceUnflagged(t *testing.T) {
	st := store.NewMemoryStore()
	seedMessage(t, st, "d1", "m1")
	judge := &scriptedJudge{verdict: &Verdict{Result: "unverifiable"}}
	service := NewFactCheckService(st, judge, events.Discard{}, testFactCheckConfig())
	defer service.Close()

	service.Verify(context.Background(), Job{DebateID: "d1", MessageID: "m1", Claim: "claim"})

	message, err := st.GetMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.False(t, message.IsFlagged)
}

func TestVerifyClampsConfidence(t *testing.T) {
	st := store.NewMemoryStore()
	seedMessage(t, st, "d1", "m1")
	judge := &scriptedJudge{verdict: &Verdict{Result: "true", ConfidenceScore: floatPtr(1.7)}}
	service := NewFactCheckService(st, judge, events.Discard{}, testFactCheckConfig())
	defer service.Close()

	service.Verify(context.Background(), Job{DebateID: "d1", MessageID: "m1", Claim: "claim"})

	factCheck, err := st.GetFactCheckByMessage(context.Background(), "m1")
	require.NoError(t, err)
	require.NotNil(t, factCheck.ConfidenceScore)
	assert.Equal(t, 1.0, *factCheck.ConfidenceScore)
}

func TestVerifyRetriesThenSucceeds(t *testing.T) {
	st := store.NewMemoryStore()
	seedMessage(t, st, "d1", "m1")
	judge := &scriptedJudge{
		failures: 2,
		verdict:  &Verdict{Result: "true", ConfidenceScore: floatPtr(0.8)},
	}
	service := NewFactCheckService(st, judge, events.Discard{}, testFactCheckConfig())
	defer service.Close()

	service.Verify(context.Background(), Job{DebateID: "d1", MessageID: "m1", Claim: "claim"})

	assert.Equal(t, 3, judge.callCount())
	_, err := st.GetFactCheckByMessage(context.Background(), "m1")
	assert.NoError(t, err)
}

func TestVerifyAbandonsAfterBoundedRetries(t *testing.T) {
	st := store.NewMemoryStore()
	seedMessage(t, st, "d1", "m1")
	judge := &scriptedJudge{failures: 100}
	service := NewFactCheckService(st, judge, events.Discard{}, testFactCheckConfig())
	defer service.Close()

	service.Verify(context.Background(), Job{DebateID: "d1", MessageID: "m1", Claim: "claim"})

	// MaxRetries=2 means three attempts total, then give up silently.
	assert.Equal(t, 3, judge.callCount())
	_, err := st.GetFactCheckByMessage(context.Background(), "m1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	message, err := st.GetMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.False(t, message.IsFlagged, "abandoned verification leaves the message untouched")
}

func TestConcurrentVerifySinglePersistedRow(t *testing.T) {
	st := store.NewMemoryStore()
	seedMessage(t, st, "d1", "m1")
	judge := &scriptedJudge{
		verdict: &Verdict{Result: "true", ConfidenceScore: floatPtr(0.8)},
		started: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
	service := NewFactCheckService(st, judge, events.Discard{}, testFactCheckConfig())
	defer service.Close()

	job := Job{DebateID: "d1", MessageID: "m1", Claim: "claim"}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		service.Verify(context.Background(), job)
	}()
	<-judge.started

	// Second call sees the in-flight guard and returns without judging.
	service.Verify(context.Background(), job)
	close(judge.gate)
	wg.Wait()

	assert.Equal(t, 1, judge.callCount())
	factCheck, err := st.GetFactCheckByMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", factCheck.MessageID)
}

func TestEnqueueDropsWhenSaturated(t *testing.T) {
	st := store.NewMemoryStore()
	seedMessage(t, st, "d1", "m1")
	seedMessage(t, st, "d1", "m2")
	judge := &scriptedJudge{
		verdict: &Verdict{Result: "true", ConfidenceScore: floatPtr(0.8)},
		started: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
	cfg := testFactCheckConfig()
	cfg.QueueSize = 1
	service := NewFactCheckService(st, judge, events.Discard{}, cfg)

	require.True(t, service.Enqueue("d1", "m1", "claim one"))
	<-judge.started // worker is now busy with m1, queue is empty

	require.True(t, service.Enqueue("d1", "m2", "claim two"))
	assert.False(t, service.Enqueue("d1", "m3", "claim three"), "saturated queue drops")

	close(judge.gate)
	service.Close()

	_, err := st.GetFactCheckByMessage(context.Background(), "m1")
	assert.NoError(t, err)
	_, err = st.GetFactCheckByMessage(context.Background(), "m2")
	assert.NoError(t, err)
	_, err = st.GetFactCheckByMessage(context.Background(), "m3")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestVerifyStoreFailureLeavesNoFlag(t *testing.T) {
	st := store.NewMemoryStore()
	// No message row seeded: flagging will fail, verification still persists.
	judge := &scriptedJudge{verdict: &Verdict{Result: "false", ConfidenceScore: floatPtr(0.1)}}
	service := NewFactCheckService(st, judge, events.Discard{}, testFactCheckConfig())
	defer service.Close()

	service.Verify(context.Background(), Job{DebateID: "d1", MessageID: "missing", Claim: "claim"})

	factCheck, err := st.GetFactCheckByMessage(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, "false", factCheck.VerificationResult)

	_, err = st.GetMessage(context.Background(), "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
