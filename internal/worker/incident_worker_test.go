package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/repository"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/kafka"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/retry"
)

// fakeSource commits like a consumer group: the committed position of a
// partition is one past the highest committed offset.
type fakeSource struct {
	mu        sync.Mutex
	batches   [][]*kafka.Record
	committed []*kafka.Record
	positions map[int32]int64
	closed    bool
}

func (f *fakeSource) Poll(ctx context.Context) ([]*kafka.Record, error) {
	f.mu.Lock()
	if len(f.batches) > 0 {
		batch := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return batch, nil
	}
	f.mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeSource) CommitRecords(ctx context.Context, records []*kafka.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.positions == nil {
		f.positions = make(map[int32]int64)
	}
	for _, r := range records {
		if next := r.Offset + 1; next > f.positions[r.Partition] {
			f.positions[r.Partition] = next
		}
	}
	f.committed = append(f.committed, records...)
	return nil
}

func (f *fakeSource) position(partition int32) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pos, ok := f.positions[partition]
	return pos, ok
}

func (f *fakeSource) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSource) committedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

type fakeDLQ struct {
	mu       sync.Mutex
	messages []*retry.DLQMessage
	err      error
	// failures fails this many publishes before succeeding
	failures int
	attempts int
}

func (f *fakeDLQ) PublishToDLQ(ctx context.Context, msg *retry.DLQMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.err != nil {
		return f.err
	}
	if f.failures > 0 {
		f.failures--
		return errors.New("broker unavailable")
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeDLQ) GetDLQTopic(originalTopic string) string { return originalTopic + ".dlq" }

type failingRepo struct {
	repository.IncidentRepository
	calls int
}

func (f *failingRepo) Record(ctx context.Context, incident *domain.PaymentIncident) (bool, error) {
	f.calls++
	return false, errors.New("database unavailable")
}

func testConfig() *IncidentWorkerConfig {
	return &IncidentWorkerConfig{
		Topic:             "checkout-events",
		PollBackoff:       10 * time.Millisecond,
		DeadLetterBackoff: time.Millisecond,
		Retry: &retry.Config{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      2,
		},
	}
}

func eventRecord(t *testing.T, offset int64, event domain.CheckoutEvent) *kafka.Record {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return &kafka.Record{
		Topic:  "checkout-events",
		Offset: offset,
		Key:    []byte(event.BookingID),
		Value:  value,
		Headers: map[string]string{
			"event_type": string(event.Type),
			"event_id":   event.EventID,
		},
	}
}

func capturedEvent(eventID string) domain.CheckoutEvent {
	return domain.CheckoutEvent{
		EventID:         eventID,
		Type:            domain.EventCapturedNotConfirmed,
		SessionID:       "sess-1",
		UserID:          "user-1",
		BookingID:       "bk-1",
		BookingNumber:   "JSB-1001",
		Method:          domain.PaymentCard,
		PaymentIntentID: "pi_123",
		Amount:          2080,
		Message:         "payment captured, confirmation timed out",
		OccurredAt:      time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestIncidentWorker_RecordsCapturedNotConfirmed(t *testing.T) {
	source := &fakeSource{}
	repo := repository.NewMemoryIncidentRepository()
	dlq := &fakeDLQ{}
	w := NewIncidentWorker(source, repo, dlq, testConfig())

	records := []*kafka.Record{
		eventRecord(t, 1, capturedEvent("evt-1")),
		eventRecord(t, 2, domain.CheckoutEvent{EventID: "evt-2", Type: domain.EventPaymentSucceeded, BookingID: "bk-2"}),
		// redelivery of the first event
		eventRecord(t, 3, capturedEvent("evt-1")),
	}
	w.ProcessBatch(context.Background(), records)

	open, err := repo.ListOpen(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "evt-1", open[0].EventID)
	assert.Equal(t, "pi_123", open[0].PaymentIntentID)
	assert.Equal(t, "JSB-1001", open[0].BookingNumber)
	assert.Equal(t, 2080.0, open[0].Amount)
	assert.Equal(t, domain.IncidentOpen, open[0].Status)

	assert.Equal(t, 3, source.committedCount())
	assert.Empty(t, dlq.messages)
}

func TestIncidentWorker_MalformedEventGoesToDLQ(t *testing.T) {
	source := &fakeSource{}
	dlq := &fakeDLQ{}
	w := NewIncidentWorker(source, repository.NewMemoryIncidentRepository(), dlq, testConfig())

	bad := &kafka.Record{Topic: "checkout-events", Offset: 7, Value: []byte("{not json"), Headers: map[string]string{"event_id": "evt-bad"}}
	incomplete := eventRecord(t, 8, domain.CheckoutEvent{EventID: "evt-x", Type: domain.EventCapturedNotConfirmed})
	w.ProcessBatch(context.Background(), []*kafka.Record{bad, incomplete})

	require.Len(t, dlq.messages, 2)
	assert.Equal(t, "evt-bad", dlq.messages[0].ID)
	assert.Equal(t, 1, dlq.messages[0].Attempts)
	assert.Equal(t, "checkout-events", dlq.messages[0].OriginalTopic)
	assert.Equal(t, 2, source.committedCount())
}

func TestIncidentWorker_RetriesRepositoryThenDeadLetters(t *testing.T) {
	source := &fakeSource{}
	repo := &failingRepo{}
	dlq := &fakeDLQ{}
	w := NewIncidentWorker(source, repo, dlq, testConfig())

	w.ProcessBatch(context.Background(), []*kafka.Record{eventRecord(t, 1, capturedEvent("evt-1"))})

	assert.Equal(t, 3, repo.calls)
	require.Len(t, dlq.messages, 1)
	assert.Equal(t, "database unavailable", dlq.messages[0].Error)
	assert.Equal(t, 1, source.committedCount())
}

func TestIncidentWorker_LeavesRecordUncommittedWhenDLQFails(t *testing.T) {
	source := &fakeSource{}
	dlq := &fakeDLQ{err: errors.New("broker down")}
	w := NewIncidentWorker(source, &failingRepo{}, dlq, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ok := eventRecord(t, 1, domain.CheckoutEvent{EventID: "evt-0", Type: domain.EventBookingCreated, BookingID: "bk-0"})
	stuck := eventRecord(t, 2, capturedEvent("evt-1"))
	w.ProcessBatch(ctx, []*kafka.Record{ok, stuck})

	require.Equal(t, 1, source.committedCount())
	assert.Equal(t, int64(1), source.committed[0].Offset)
	pos, _ := source.position(0)
	assert.Equal(t, int64(2), pos)
}

func TestIncidentWorker_DoesNotCommitPastStuckRecord(t *testing.T) {
	source := &fakeSource{}
	repo := &failingRepo{}
	dlq := &fakeDLQ{err: errors.New("broker down")}
	w := NewIncidentWorker(source, repo, dlq, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// same partition: committing the second would skip the first
	stuck := eventRecord(t, 10, capturedEvent("evt-1"))
	later := eventRecord(t, 11, domain.CheckoutEvent{EventID: "evt-2", Type: domain.EventBookingCreated, BookingID: "bk-2"})
	w.ProcessBatch(ctx, []*kafka.Record{stuck, later})

	assert.Zero(t, source.committedCount())
	_, committed := source.position(0)
	assert.False(t, committed)
	assert.Greater(t, dlq.attempts, 1)
}

func TestIncidentWorker_RetriesDeadLetterUntilPublished(t *testing.T) {
	source := &fakeSource{}
	dlq := &fakeDLQ{failures: 2}
	w := NewIncidentWorker(source, &failingRepo{}, dlq, testConfig())

	first := eventRecord(t, 10, capturedEvent("evt-1"))
	second := eventRecord(t, 11, domain.CheckoutEvent{EventID: "evt-2", Type: domain.EventBookingCreated, BookingID: "bk-2"})
	w.ProcessBatch(context.Background(), []*kafka.Record{first, second})

	assert.Equal(t, 3, dlq.attempts)
	require.Len(t, dlq.messages, 1)
	assert.Equal(t, "evt-1", dlq.messages[0].ID)
	assert.Equal(t, 2, source.committedCount())
	pos, _ := source.position(0)
	assert.Equal(t, int64(12), pos)
}

func TestIncidentWorker_StartStop(t *testing.T) {
	source := &fakeSource{batches: [][]*kafka.Record{{eventRecord(t, 1, capturedEvent("evt-1"))}}}
	repo := repository.NewMemoryIncidentRepository()
	w := NewIncidentWorker(source, repo, nil, testConfig())

	w.Start(context.Background())
	assert.Eventually(t, func() bool { return source.committedCount() == 1 }, time.Second, 5*time.Millisecond)

	w.Stop()
	w.Stop()
	assert.True(t, source.closed)

	open, err := repo.ListOpen(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}
