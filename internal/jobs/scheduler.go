package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"futurion/internal/config"
)

// Scheduler is responsible for running background jobs
type Scheduler struct {
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	enabled   bool
	isRunning bool

	// Mutex to prevent overlapping runs of the same job
	processingMutex sync.Mutex
	isProcessing    map[string]bool

	jobs []*scheduledJob
	wg   sync.WaitGroup
}

func NewScheduler(dbManager ConnectionProvider, cfg *config.Config, logger *slog.Logger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		enabled:   true,
		isRunning: false,

		isProcessing: make(map[string]bool),
	}

	interval := time.Duration(cfg.CleanupIntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	s.Register(NewCleanupJob(dbManager, logger, cfg.ContactRetentionDays), interval)

	return s, nil
}

// Register adds a job. It only takes effect before Start.
func (s *Scheduler) Register(job Job, interval time.Duration) {
	s.jobs = append(s.jobs, &scheduledJob{job: job, interval: interval})
}

// executeJobSafely runs a job only if its previous run has finished
func (s *Scheduler) executeJobSafely(job Job) {
	jobName := job.Name()

	s.processingMutex.Lock()
	if s.isProcessing[jobName] {
		s.logger.Debug("Skipping job execution - previous job still running", slog.String("job", jobName))
		s.processingMutex.Unlock()
		return
	}
	s.isProcessing[jobName] = true
	s.processingMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", jobName),
				slog.Any("panic", r))
		}

		s.processingMutex.Lock()
		delete(s.isProcessing, jobName)
		s.processingMutex.Unlock()
	}()

	if err := job.Run(); err != nil {
		s.logger.Error("Error executing job", slog.String("job", jobName), slog.Any("error", err))
	}
}

// Start begins all background jobs.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Start() error {
	if !s.enabled {
		s.logger.Info("Background jobs are disabled.")
		return nil
	}

	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}

	s.logger.Info("Starting background jobs...")
	s.isRunning = true

	for _, sj := range s.jobs {
		s.startJob(sj)
	}

	s.logger.Info("Background jobs started",
		slog.Int("jobs", len(s.jobs)),
		slog.Bool("isRunning", s.isRunning))

	return nil
}

func (s *Scheduler) startJob(sj *scheduledJob) {
	name := sj.job.Name()
	s.logger.Info("Starting job", slog.String("job", name), slog.Duration("interval", sj.interval))
	sj.ticker = time.NewTicker(sj.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.executeJobSafely(sj.job)

		for {
			select {
			case <-sj.ticker.C:
				s.executeJobSafely(sj.job)
			case <-s.ctx.Done():
				s.logger.Info("Job stopped", slog.String("job", name))
				return
			}
		}
	}()
}

// Stop halts all background jobs.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background jobs...")
	s.enabled = false

	for _, sj := range s.jobs {
		if sj.ticker != nil {
			sj.ticker.Stop()
		}
	}

	s.cancel()
	s.wg.Wait()
	s.isRunning = false
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	return s.isRunning
}

// RunNow runs every registered job once, in registration order.
func (s *Scheduler) RunNow() {
	for _, sj := range s.jobs {
		s.executeJobSafely(sj.job)
	}
}
