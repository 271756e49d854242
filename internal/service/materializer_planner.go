package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gym-scheduling-api/internal/models"
	"github.com/noah-isme/gym-scheduling-api/pkg/jobs"
)

const materializeJobType = "materialize_next_occurrence"

type activeScheduleLister interface {
	ListActive(ctx context.Context) ([]models.ClassSchedule, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
	Depth() int
}

type nextOccurrenceMaterializer interface {
	MaterializeNext(ctx context.Context, scheduleID string) (*models.ClassSession, bool, error)
}

// MaterializerPlanner periodically enqueues one materialization job per
// active schedule so each template's next occurrence exists ahead of time.
// Re-running a plan is harmless: materialization is idempotent by key.
type MaterializerPlanner struct {
	schedules activeScheduleLister
	sessions  nextOccurrenceMaterializer
	queue     jobEnqueuer
	interval  time.Duration
	logger    *zap.Logger
}

// NewMaterializerPlanner wires the planner.
func NewMaterializerPlanner(schedules activeScheduleLister, sessions nextOccurrenceMaterializer, queue jobEnqueuer, interval time.Duration, logger *zap.Logger) *MaterializerPlanner {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaterializerPlanner{schedules: schedules, sessions: sessions, queue: queue, interval: interval, logger: logger}
}

// Run plans immediately and then on every tick until the context ends.
func (p *MaterializerPlanner) Run(ctx context.Context) {
	p.planOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.planOnce(ctx)
		}
	}
}

func (p *MaterializerPlanner) planOnce(ctx context.Context) {
	schedules, err := p.schedules.ListActive(ctx)
	if err != nil {
		p.logger.Error("materializer plan failed", zap.Error(err))
		return
	}
	for _, schedule := range schedules {
		job := jobs.Job{
			ID:      fmt.Sprintf("%s-%d", schedule.ID, time.Now().UTC().Unix()),
			Type:    materializeJobType,
			Payload: schedule.ID,
		}
		if err := p.queue.Enqueue(job); err != nil {
			p.logger.Warn("failed to enqueue materialization", zap.String("schedule_id", schedule.ID), zap.Error(err))
		}
	}
	p.logger.Debug("materializer plan enqueued", zap.Int("schedules", len(schedules)), zap.Int("queue_depth", p.queue.Depth()))
}

// HandleJob processes one queued materialization.
func (p *MaterializerPlanner) HandleJob(ctx context.Context, job jobs.Job) error {
	scheduleID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for %s", job.Payload, job.Type)
	}
	_, created, err := p.sessions.MaterializeNext(ctx, scheduleID)
	if err != nil {
		return fmt.Errorf("materialize schedule %s: %w", scheduleID, err)
	}
	if created {
		p.logger.Info("background session created", zap.String("schedule_id", scheduleID))
	}
	return nil
}
