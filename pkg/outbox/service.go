package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
)

// DomainEvent is a side effect requested by a state change.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	// DedupeKey, when set, makes the row unique across the table.
	DedupeKey  string
	Data       interface{}
	Version    int
	OccurredAt time.Time
}

// Emitter is what domain services depend on to enqueue side effects.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event DomainEvent) (bool, error)
}

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	row, err := s.buildRow(event)
	if err != nil {
		return err
	}
	if tx == nil {
		return errors.New("transaction required")
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}
	s.logQueued(ctx, row, "outbox event queued")
	return nil
}

// EmitIfNotExists inserts the event unless a row with the same dedupe key is
// already stored. It reports whether a new row was written.
func (s *Service) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event DomainEvent) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	if strings.TrimSpace(event.DedupeKey) == "" {
		return false, errors.New("dedupe key required")
	}
	row, err := s.buildRow(event)
	if err != nil {
		return false, err
	}
	inserted, err := s.repo.InsertIgnoreDuplicate(tx, row)
	if err != nil {
		return false, err
	}
	if inserted {
		s.logQueued(ctx, row, "outbox event queued")
	}
	return inserted, nil
}

func (s *Service) buildRow(event DomainEvent) (models.OutboxEvent, error) {
	if !event.EventType.IsValid() {
		return models.OutboxEvent{}, errors.New("invalid outbox event type")
	}
	if !event.AggregateType.IsValid() {
		return models.OutboxEvent{}, errors.New("invalid outbox aggregate type")
	}
	if strings.TrimSpace(event.AggregateID) == "" {
		return models.OutboxEvent{}, errors.New("aggregate id required")
	}
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, err
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.Version == 0 {
		event.Version = 1
	}
	envelope := PayloadEnvelope{
		Version:    event.Version,
		EventID:    uuid.NewString(),
		OccurredAt: event.OccurredAt,
		Data:       payload,
	}
	payloadJSON, err := json.Marshal(envelope)
	if err != nil {
		return models.OutboxEvent{}, err
	}
	row := models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       datatypes.JSON(payloadJSON),
	}
	if key := strings.TrimSpace(event.DedupeKey); key != "" {
		row.DedupeKey = &key
	}
	return row, nil
}

func (s *Service) logQueued(ctx context.Context, row models.OutboxEvent, msg string) {
	if s.logg == nil {
		return
	}
	fields := map[string]any{
		"event_type":     row.EventType,
		"aggregate_id":   row.AggregateID,
		"aggregate_type": row.AggregateType,
	}
	if row.DedupeKey != nil {
		fields["dedupe_key"] = *row.DedupeKey
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}
