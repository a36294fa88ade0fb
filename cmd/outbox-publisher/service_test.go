package main

import (
	"context"
	"errors"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/akhilnathan/shopsite-backend/pkg/config"
	"github.com/akhilnathan/shopsite-backend/pkg/db/models"
	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	"github.com/akhilnathan/shopsite-backend/pkg/logger"
)

type stubRepository struct {
	events    []models.OutboxEvent
	fetchErr  error
	published []uuid.UUID
	failed    []uuid.UUID
}

func (s *stubRepository) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if limit < len(s.events) {
		return s.events[:limit], nil
	}
	return s.events, nil
}

func (s *stubRepository) MarkPublished(id uuid.UUID) error {
	s.published = append(s.published, id)
	return nil
}

func (s *stubRepository) MarkFailed(id uuid.UUID) error {
	s.failed = append(s.failed, id)
	return nil
}

type stubResult struct {
	err error
}

func (s stubResult) Get(ctx context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "msg-1", nil
}

type stubPublisher struct {
	err      error
	messages []*gcppubsub.Message
}

func (s *stubPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	s.messages = append(s.messages, msg)
	return stubResult{err: s.err}
}

func newTestService(t *testing.T, repo *stubRepository, factory publisherFactory) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:           &config.Config{},
		Logger:           logger.New(logger.Options{ServiceName: "test"}),
		Repository:       repo,
		PublisherFactory: factory,
	})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return svc
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	ordersPub := &stubPublisher{}
	inventoryPub := &stubPublisher{}
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"order_id":"abc"}`),
	}
	release := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventInventoryReleased,
		AggregateType: enums.AggregateInventory,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"variant_id":"def"}`),
	}
	repo := &stubRepository{events: []models.OutboxEvent{event, release}}

	svc := newTestService(t, repo, func(aggregate enums.AggregateType) publisher {
		if aggregate == enums.AggregateInventory {
			return inventoryPub
		}
		return ordersPub
	})

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to be processed")
	}

	if len(ordersPub.messages) != 1 || len(inventoryPub.messages) != 1 {
		t.Fatalf("messages routed wrong: orders=%d inventory=%d", len(ordersPub.messages), len(inventoryPub.messages))
	}
	if got := ordersPub.messages[0].Attributes["event_type"]; got != string(enums.EventOrderCreated) {
		t.Fatalf("unexpected event_type attribute %q", got)
	}
	if len(repo.published) != 2 {
		t.Fatalf("expected 2 published marks, got %d", len(repo.published))
	}
	if len(repo.failed) != 0 {
		t.Fatalf("expected no failure marks, got %d", len(repo.failed))
	}
}

func TestProcessBatchMarksFailureAndContinues(t *testing.T) {
	failing := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
	}
	ok := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventInventoryReleased,
		AggregateType: enums.AggregateInventory,
		AggregateID:   uuid.New(),
	}
	repo := &stubRepository{events: []models.OutboxEvent{failing, ok}}

	svc := newTestService(t, repo, func(aggregate enums.AggregateType) publisher {
		if aggregate == enums.AggregateOrder {
			return &stubPublisher{err: errors.New("broker unavailable")}
		}
		return &stubPublisher{}
	})

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to be processed")
	}

	if len(repo.failed) != 1 || repo.failed[0] != failing.ID {
		t.Fatalf("expected failing event marked failed, got %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != ok.ID {
		t.Fatalf("expected healthy event marked published, got %v", repo.published)
	}
}

func TestProcessBatchEmptyReturnsFalse(t *testing.T) {
	repo := &stubRepository{}
	svc := newTestService(t, repo, func(enums.AggregateType) publisher {
		return &stubPublisher{}
	})

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if processed {
		t.Fatal("expected no work")
	}
}
