package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/metrics"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/repository"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/kafka"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/logger"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/retry"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/telemetry"
)

// RecordSource is the subset of kafka.Consumer the worker needs
type RecordSource interface {
	Poll(ctx context.Context) ([]*kafka.Record, error)
	CommitRecords(ctx context.Context, records []*kafka.Record) error
	Close()
}

// IncidentWorkerConfig holds configuration for the incident worker
type IncidentWorkerConfig struct {
	// Topic is used when a record arrives without one, for DLQ naming
	Topic string
	// PollBackoff is the pause after a failed poll
	PollBackoff time.Duration
	// DeadLetterBackoff is the pause before reprocessing a record whose DLQ publish failed
	DeadLetterBackoff time.Duration
	// Retry controls retries of a failed repository write
	Retry *retry.Config
}

// DefaultIncidentWorkerConfig returns default configuration
func DefaultIncidentWorkerConfig() *IncidentWorkerConfig {
	return &IncidentWorkerConfig{
		Topic:             "checkout-events",
		PollBackoff:       time.Second,
		DeadLetterBackoff: 5 * time.Second,
		Retry: &retry.Config{
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		},
	}
}

// IncidentWorker consumes checkout events and records captured-but-unconfirmed
// payments in the incident ledger. Other event types are only logged.
type IncidentWorker struct {
	source  RecordSource
	repo    repository.IncidentRepository
	dlq     *retry.DLQHandler
	config  *IncidentWorkerConfig
	now     func() time.Time
	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// NewIncidentWorker creates a new incident worker
func NewIncidentWorker(
	source RecordSource,
	repo repository.IncidentRepository,
	dlqPublisher retry.DLQPublisher,
	cfg *IncidentWorkerConfig,
) *IncidentWorker {
	defaults := DefaultIncidentWorkerConfig()
	if cfg == nil {
		cfg = defaults
	}
	if cfg.Topic == "" {
		cfg.Topic = defaults.Topic
	}
	if cfg.PollBackoff <= 0 {
		cfg.PollBackoff = defaults.PollBackoff
	}
	if cfg.DeadLetterBackoff <= 0 {
		cfg.DeadLetterBackoff = defaults.DeadLetterBackoff
	}
	if cfg.Retry == nil {
		cfg.Retry = defaults.Retry
	}
	if dlqPublisher == nil {
		dlqPublisher = retry.NoOpDLQPublisher{}
	}

	w := &IncidentWorker{
		source: source,
		repo:   repo,
		config: cfg,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	w.dlq = retry.NewDLQHandler(deadLetterPublisher{dlqPublisher}, cfg.Retry, func(msg *retry.DLQMessage) {
		logger.Get().Error("checkout event moved to DLQ",
			zap.String("id", msg.ID),
			zap.String("topic", msg.OriginalTopic),
			zap.Int("attempts", msg.Attempts),
			zap.String("error", msg.Error),
		)
	})
	return w
}

// Start runs the poll loop in the background
func (w *IncidentWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
	logger.Get().Info("incident worker started", zap.String("topic", w.config.Topic))
}

// Stop stops the poll loop and waits for the in-flight batch
func (w *IncidentWorker) Stop() {
	w.stopped.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.source.Close()
		logger.Get().Info("incident worker stopped")
	})
}

func (w *IncidentWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		records, err := w.source.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Get().Error("failed to poll checkout events", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.config.PollBackoff):
			}
			continue
		}
		if len(records) == 0 {
			continue
		}

		w.ProcessBatch(ctx, records)
	}
}

// ProcessBatch handles records in order and commits the handled prefix.
// A record that keeps failing is dead-lettered. When the dead-letter publish
// fails too, the record is reprocessed until it succeeds or ctx ends; nothing
// after it is committed, since a commit covers every earlier offset of the partition.
func (w *IncidentWorker) ProcessBatch(ctx context.Context, records []*kafka.Record) {
	committable := make([]*kafka.Record, 0, len(records))
	for _, record := range records {
		if !w.processUntilHandled(ctx, record) {
			logger.Get().Warn("stopping batch before an unhandled checkout event",
				zap.String("topic", record.Topic),
				zap.Int32("partition", record.Partition),
				zap.Int64("offset", record.Offset),
				zap.Int("remaining", len(records)-len(committable)),
			)
			break
		}
		committable = append(committable, record)
	}

	if err := w.source.CommitRecords(context.WithoutCancel(ctx), committable); err != nil {
		logger.Get().Error("failed to commit checkout event offsets", zap.Error(err))
	}
}

// processUntilHandled reports whether the record was processed or parked in the DLQ
func (w *IncidentWorker) processUntilHandled(ctx context.Context, record *kafka.Record) bool {
	for attempt := 1; ; attempt++ {
		err := w.process(ctx, record)
		if err != nil && ctx.Err() != nil {
			// interrupted by shutdown: leave it for redelivery
			return false
		}
		if !errors.Is(err, errDeadLetterFailed) {
			return true
		}

		logger.Get().Error("failed to dead-letter checkout event",
			zap.String("topic", record.Topic),
			zap.Int32("partition", record.Partition),
			zap.Int64("offset", record.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(w.config.DeadLetterBackoff):
		}
	}
}

var errDeadLetterFailed = errors.New("dead letter publish failed")

// deadLetterPublisher tags publish failures so ProcessBatch can tell them apart
type deadLetterPublisher struct {
	retry.DLQPublisher
}

func (p deadLetterPublisher) PublishToDLQ(ctx context.Context, msg *retry.DLQMessage) error {
	if err := p.DLQPublisher.PublishToDLQ(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", errDeadLetterFailed, err)
	}
	return nil
}

func (w *IncidentWorker) process(ctx context.Context, record *kafka.Record) error {
	ctx, span := telemetry.StartSpan(ctx, "worker.incident.process")
	defer span.End()

	topic := record.Topic
	if topic == "" {
		topic = w.config.Topic
	}
	eventType := record.Header("event_type")
	span.SetAttributes(
		attribute.String("topic", topic),
		attribute.String("event_type", eventType),
		attribute.Int64("offset", record.Offset),
	)

	msgCtx := &retry.MessageContext{
		ID:      record.Header("event_id"),
		Topic:   topic,
		Key:     string(record.Key),
		Payload: json.RawMessage(record.Value),
		Headers: record.Headers,
	}

	err := w.dlq.ProcessWithDLQ(ctx, msgCtx, func(ctx context.Context) error {
		return w.handle(ctx, record.Value)
	})
	if err == nil {
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if !errors.Is(err, errDeadLetterFailed) {
		metrics.RecordDeadLetter(ctx, eventType)
	}
	return err
}

func (w *IncidentWorker) handle(ctx context.Context, payload []byte) error {
	var event domain.CheckoutEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return retry.Permanent(fmt.Errorf("failed to unmarshal checkout event: %w", err))
	}

	log := logger.Get().With(
		zap.String("event_id", event.EventID),
		zap.String("event_type", string(event.Type)),
		zap.String("booking_id", event.BookingID),
	)

	if event.Type != domain.EventCapturedNotConfirmed {
		log.Debug("checkout event observed")
		return nil
	}
	if event.BookingID == "" || event.PaymentIntentID == "" {
		return retry.Permanent(fmt.Errorf("incident event %q is missing booking or payment intent", event.EventID))
	}

	eventID := event.EventID
	if eventID == "" {
		// deterministic so a redelivery still dedupes
		eventID = event.BookingID + ":" + event.PaymentIntentID
	}
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = w.now()
	}

	incident := &domain.PaymentIncident{
		ID:              uuid.New().String(),
		EventID:         eventID,
		BookingID:       event.BookingID,
		BookingNumber:   event.BookingNumber,
		UserID:          event.UserID,
		PaymentIntentID: event.PaymentIntentID,
		Amount:          event.Amount,
		Message:         event.Message,
		Status:          domain.IncidentOpen,
		OccurredAt:      occurredAt,
		CreatedAt:       w.now(),
	}

	inserted, err := w.repo.Record(ctx, incident)
	if err != nil {
		return err
	}
	metrics.RecordIncident(ctx, inserted)

	if inserted {
		log.WarnContext(ctx, "payment incident recorded",
			zap.String("incident_id", incident.ID),
			zap.String("payment_intent_id", incident.PaymentIntentID),
			zap.Float64("amount", incident.Amount),
		)
	} else {
		log.InfoContext(ctx, "payment incident already recorded")
	}
	return nil
}
