// Package cleanup runs the scheduled purge jobs that keep the auth tables bounded
package cleanup

import (
	"context"
	"fmt"
	"log"
	"motolens/internal/repository"
	"time"

	"github.com/robfig/cron/v3"
)

// Retention windows for the purge jobs
const (
	EventRetention   = 90 * 24 * time.Hour
	HistoryRetention = 365 * 24 * time.Hour
)

// Job is one scheduled purge task
type Job interface {
	// Name returns the unique name of the job
	Name() string
	// Schedule in cron format (e.g. "0 3 * * *" for daily at 03:00)
	Schedule() string
	// Run executes the purge
	Run(ctx context.Context) error
}

// Manager handles the scheduling and execution of purge jobs
type Manager struct {
	jobs []Job
	cron *cron.Cron
}

// NewManager creates a new cleanup manager
func NewManager() *Manager {
	// Create a new cron scheduler with seconds disabled
	c := cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
	)))

	return &Manager{
		jobs: make([]Job, 0),
		cron: c,
	}
}

// Register adds a job to the manager
func (m *Manager) Register(job Job) {
	m.jobs = append(m.jobs, job)
}

// RunAll executes every registered job once, outside the schedule
func (m *Manager) RunAll(ctx context.Context) error {
	for _, job := range m.jobs {
		if err := job.Run(ctx); err != nil {
			return fmt.Errorf("cleanup job %s: %w", job.Name(), err)
		}
	}
	return nil
}

// Start runs all registered jobs on their schedules until the context is
// cancelled
func (m *Manager) Start(ctx context.Context) error {
	for _, j := range m.jobs {
		if j.Schedule() == "" {
			return fmt.Errorf("cleanup job %s has no schedule configured", j.Name())
		}

		job := j
		_, err := m.cron.AddFunc(job.Schedule(), func() {
			log.Printf("Running scheduled cleanup job %s", job.Name())
			if err := job.Run(ctx); err != nil {
				log.Printf("Error running cleanup job %s: %v", job.Name(), err)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule cleanup job %s: %w", job.Name(), err)
		}

		log.Printf("Scheduled cleanup job %s with schedule %s", job.Name(), job.Schedule())
	}

	m.cron.Start()
	log.Println("Cleanup scheduler started")

	<-ctx.Done()
	log.Println("Stopping cleanup scheduler...")
	m.cron.Stop()

	return nil
}

// SessionJob removes refresh-token sessions past their expiry
type SessionJob struct {
	repo repository.SessionRepository
}

func NewSessionJob(repo repository.SessionRepository) *SessionJob {
	return &SessionJob{repo: repo}
}

func (j *SessionJob) Name() string     { return "expired-sessions" }
func (j *SessionJob) Schedule() string { return "0 3 * * *" }

func (j *SessionJob) Run(ctx context.Context) error {
	return j.repo.DeleteExpired(ctx)
}

// ResetTokenJob removes password reset tokens past their expiry
type ResetTokenJob struct {
	repo repository.PasswordResetRepository
}

func NewResetTokenJob(repo repository.PasswordResetRepository) *ResetTokenJob {
	return &ResetTokenJob{repo: repo}
}

func (j *ResetTokenJob) Name() string     { return "expired-reset-tokens" }
func (j *ResetTokenJob) Schedule() string { return "15 * * * *" }

func (j *ResetTokenJob) Run(ctx context.Context) error {
	return j.repo.DeleteExpired(ctx)
}

// VerifyTokenJob removes email verification tokens past their expiry
type VerifyTokenJob struct {
	repo repository.EmailVerificationRepository
}

func NewVerifyTokenJob(repo repository.EmailVerificationRepository) *VerifyTokenJob {
	return &VerifyTokenJob{repo: repo}
}

func (j *VerifyTokenJob) Name() string     { return "expired-verify-tokens" }
func (j *VerifyTokenJob) Schedule() string { return "30 3 * * *" }

func (j *VerifyTokenJob) Run(ctx context.Context) error {
	return j.repo.DeleteExpired(ctx)
}

// EventJob trims the security audit trail to the retention window
type EventJob struct {
	repo repository.SecurityEventRepository
}

func NewEventJob(repo repository.SecurityEventRepository) *EventJob {
	return &EventJob{repo: repo}
}

func (j *EventJob) Name() string     { return "old-security-events" }
func (j *EventJob) Schedule() string { return "45 3 * * *" }

func (j *EventJob) Run(ctx context.Context) error {
	return j.repo.CleanupOld(ctx, EventRetention)
}

// HistoryJob trims retained password hashes past the retention window
type HistoryJob struct {
	repo repository.PasswordHistoryRepository
}

func NewHistoryJob(repo repository.PasswordHistoryRepository) *HistoryJob {
	return &HistoryJob{repo: repo}
}

func (j *HistoryJob) Name() string     { return "old-password-history" }
func (j *HistoryJob) Schedule() string { return "0 4 * * *" }

func (j *HistoryJob) Run(ctx context.Context) error {
	return j.repo.CleanupOld(ctx, HistoryRetention)
}
