package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/akhilnathan/shopsite-backend/pkg/logger"
)

type stubReleaser struct {
	batches []int
	calls   int
	err     error
}

func (s *stubReleaser) ReleaseExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	if s.calls >= len(s.batches) {
		return 0, s.err
	}
	released := s.batches[s.calls]
	s.calls++
	if s.calls == len(s.batches) && s.err != nil {
		return released, s.err
	}
	return released, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

func TestReservationSweepDrainsFullBatches(t *testing.T) {
	t.Parallel()

	releaser := &stubReleaser{batches: []int{3, 3, 1}}
	job, err := NewReservationSweepJob(ReservationSweepJobParams{
		Logger:    testLogger(),
		Inventory: releaser,
		BatchSize: 3,
	})
	if err != nil {
		t.Fatalf("build job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if releaser.calls != 3 {
		t.Fatalf("expected 3 batches, got %d", releaser.calls)
	}
}

func TestReservationSweepReportsErrors(t *testing.T) {
	t.Parallel()

	releaser := &stubReleaser{batches: []int{2}, err: errors.New("db down")}
	job, err := NewReservationSweepJob(ReservationSweepJobParams{
		Logger:    testLogger(),
		Inventory: releaser,
		BatchSize: 3,
	})
	if err != nil {
		t.Fatalf("build job: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected sweep error")
	}
}

func TestRegistryKeepsOrderAndSkipsNil(t *testing.T) {
	t.Parallel()

	releaser := &stubReleaser{}
	job, err := NewReservationSweepJob(ReservationSweepJobParams{
		Logger:    testLogger(),
		Inventory: releaser,
	})
	if err != nil {
		t.Fatalf("build job: %v", err)
	}

	registry := NewRegistry(nil, job)
	registry.Register(nil)
	jobs := registry.Jobs()
	if len(jobs) != 1 || jobs[0].Name() != "reservation-sweep" {
		t.Fatalf("unexpected registry contents: %+v", jobs)
	}
}
