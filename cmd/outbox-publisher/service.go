package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/metrics"
	"github.com/angelmondragon/pos-backend/pkg/outbox"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 5 * time.Second
	defaultMaxAttempts    = 10
	defaultChannelPrefix  = "pos:events"
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

// eventPublisher is the redis surface the relay needs.
type eventPublisher interface {
	Ping(context.Context) error
	Publish(ctx context.Context, channel string, payload []byte) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	Publisher  eventPublisher
	Repository outboxRepository
	Metrics    *metrics.OutboxMetrics
}

// Service relays committed outbox rows to redis channels named
// <prefix>:<event_type>.
type Service struct {
	logg          *logger.Logger
	db            dbClient
	repo          outboxRepository
	publisher     eventPublisher
	metrics       *metrics.OutboxMetrics
	batchSize     int
	maxAttempts   int
	pollInterval  time.Duration
	channelPrefix string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}

	cfg := params.Config.Outbox
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := cfg.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	prefix := strings.TrimSuffix(strings.TrimSpace(cfg.ChannelPrefix), ":")
	if prefix == "" {
		prefix = defaultChannelPrefix
	}

	return &Service{
		logg:          params.Logger,
		db:            params.DB,
		repo:          params.Repository,
		publisher:     params.Publisher,
		metrics:       params.Metrics,
		batchSize:     batch,
		maxAttempts:   maxAttempts,
		pollInterval:  time.Duration(pollMs) * time.Millisecond,
		channelPrefix: prefix,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	return pingDependency(ctx, s.logg, "redis", s.publisher.Ping)
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	backoff := s.pollInterval
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox publisher context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}
		backoff = s.pollInterval

		if processed {
			continue
		}
		if err := s.sleep(ctx, withJitter(s.pollInterval)); err != nil {
			return err
		}
	}
}

// processBatch claims one batch and relays it inside a single transaction so
// row state and the claim are released together.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		processed = true
		for _, event := range events {
			if err := s.relay(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

func (s *Service) relay(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		s.metrics.IncFailed(string(event.EventType))
		return s.markTerminal(ctx, tx, event, fmt.Errorf("undecodable payload: %w", err), s.eventFields(event, outbox.PayloadEnvelope{}))
	}
	fields := s.eventFields(event, envelope)

	if err := s.publish(ctx, event); err != nil {
		s.metrics.IncFailed(string(event.EventType))
		nextAttempt := event.AttemptCount + 1
		fields["attempt_count"] = nextAttempt
		if nextAttempt >= s.maxAttempts {
			fields["terminal_reason"] = "max_attempts"
			return s.markTerminal(ctx, tx, event, fmt.Errorf("max publish attempts reached: %w", err), fields)
		}

		warnCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", err.Error())
		s.logg.Warn(warnCtx, "outbox publish failed")
		if markErr := s.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, markErr)
		}
		return nil
	}

	if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
		return fmt.Errorf("mark published %s: %w", event.ID, err)
	}
	s.metrics.IncPublished(string(event.EventType))
	s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
	return nil
}

func (s *Service) markTerminal(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, cause error, fields map[string]any) error {
	warnCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", cause.Error())
	s.logg.Warn(warnCtx, "outbox event will not be retried")
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent) error {
	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	return s.publisher.Publish(publishCtx, s.channel(event), event.Payload)
}

func (s *Service) channel(event models.OutboxEvent) string {
	return s.channelPrefix + ":" + string(event.EventType)
}

func (s *Service) eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"channel":        s.channel(event),
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}
