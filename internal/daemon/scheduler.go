package daemon

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// Scheduler wraps a gocron scheduler for periodic pipeline runs. Jobs run in
// singleton mode: a tick that fires while the previous run is still going is
// rescheduled instead of overlapping it.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for running jobs to return.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleEvery runs task every interval.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, task func(), opts ...gocron.JobOption) (uuid.UUID, error) {
	if interval <= 0 {
		return uuid.Nil, fmt.Errorf("interval must be positive, got %s", interval)
	}
	return s.newJob(name, gocron.DurationJob(interval), task, opts)
}

// ScheduleCron runs task on a five-field cron expression.
func (s *Scheduler) ScheduleCron(name, expr string, task func(), opts ...gocron.JobOption) (uuid.UUID, error) {
	return s.newJob(name, gocron.CronJob(expr, false), task, opts)
}

// Schedule accepts either a Go duration ("6h") or a cron expression ("0 */4 * * *").
func (s *Scheduler) Schedule(name, schedule string, task func(), opts ...gocron.JobOption) (uuid.UUID, error) {
	if d, err := time.ParseDuration(schedule); err == nil {
		return s.ScheduleEvery(name, d, task, opts...)
	}
	return s.ScheduleCron(name, schedule, task, opts...)
}

// Remove deletes a job. Removing an unknown job is an error.
func (s *Scheduler) Remove(id uuid.UUID) error {
	return s.scheduler.RemoveJob(id)
}

func (s *Scheduler) newJob(name string, def gocron.JobDefinition, task func(), opts []gocron.JobOption) (uuid.UUID, error) {
	all := append([]gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}, opts...)
	job, err := s.scheduler.NewJob(def, gocron.NewTask(task), all...)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create %s job: %w", name, err)
	}
	return job.ID(), nil
}
