package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/akhilnathan/shopsite-backend/pkg/logger"
	"go.uber.org/multierr"
)

const sweepBatchSize = 200

type expiredReleaser interface {
	ReleaseExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

// ReservationSweepJobParams configure the expired-reservation sweeper.
type ReservationSweepJobParams struct {
	Logger    *logger.Logger
	Inventory expiredReleaser
	BatchSize int
}

type reservationSweepJob struct {
	logg      *logger.Logger
	inventory expiredReleaser
	batchSize int
}

// NewReservationSweepJob builds the cron job that returns expired pending
// holds to availability.
func NewReservationSweepJob(params ReservationSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = sweepBatchSize
	}
	return &reservationSweepJob{
		logg:      params.Logger,
		inventory: params.Inventory,
		batchSize: batchSize,
	}, nil
}

func (j *reservationSweepJob) Name() string {
	return "reservation-sweep"
}

// Run drains expired reservations batch by batch until a batch comes back
// short. Batch errors are collected rather than aborting the whole sweep.
func (j *reservationSweepJob) Run(ctx context.Context) error {
	var errs error
	total := 0

	for {
		released, err := j.inventory.ReleaseExpired(ctx, time.Now().UTC(), j.batchSize)
		total += released
		if err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		if released < j.batchSize {
			break
		}
	}

	if total > 0 {
		jctx := j.logg.WithField(ctx, "released", total)
		j.logg.Info(jctx, "expired reservations swept")
	}
	return errs
}
