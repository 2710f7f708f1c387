package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gtmhq/gtm-advisor/internal/agent"
	"github.com/gtmhq/gtm-advisor/internal/domain"
	"github.com/gtmhq/gtm-advisor/internal/events"
	"github.com/gtmhq/gtm-advisor/internal/repository"
	"github.com/gtmhq/gtm-advisor/pkg/util"
)

const analysisQueueSize = 64

type queuedJob struct {
	jobID string
	task  string
	names []string
	input agent.Context
}

// AnalysisService is a single-producer/single-consumer job queue over the
// durable job store. One worker goroutine drains the queue and runs the
// agents sequentially; results are persisted keyed by job id, so they
// survive restarts even though the in-flight queue does not.
type AnalysisService struct {
	jobs         repository.AnalysisJobRepository
	companies    repository.CompanyRepository
	orchestrator *agent.Orchestrator
	dispatcher   events.Dispatcher
	logger       *zap.Logger

	queue chan queuedJob
	done  chan struct{}

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewAnalysisService builds the service; call Start before enqueuing.
func NewAnalysisService(jobs repository.AnalysisJobRepository, companies repository.CompanyRepository, orchestrator *agent.Orchestrator, dispatcher events.Dispatcher, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		jobs:         jobs,
		companies:    companies,
		orchestrator: orchestrator,
		dispatcher:   dispatcher,
		logger:       logger,
		queue:        make(chan queuedJob, analysisQueueSize),
		cancels:      make(map[string]context.CancelFunc),
	}
}

// RecoverOrphans marks jobs left running by a previous process as
// interrupted. They are never resumed.
func (s *AnalysisService) RecoverOrphans(ctx context.Context) error {
	n, err := s.jobs.MarkOrphans(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Warn("marked orphaned analysis jobs as interrupted", zap.Int64("count", n))
	}
	return nil
}

// Start launches the worker goroutine. baseCtx bounds the lifetime of all
// job runs; cancelling it stops the worker after the current job.
func (s *AnalysisService) Start(baseCtx context.Context) {
	s.done = make(chan struct{})
	go s.run(baseCtx)
}

// Stop waits for the worker to drain after its base context is cancelled.
func (s *AnalysisService) Stop() {
	close(s.queue)
	if s.done != nil {
		<-s.done
	}
}

// premiumAgents require a paid tier; resolved against the identity's current
// tier at request time, not the token claim.
var premiumAgents = map[string]domain.Tier{
	agent.NameLeadHunter: domain.Tier1,
	agent.NameCampaign:   domain.Tier1,
}

// Enqueue validates and persists a job, then hands it to the worker.
func (s *AnalysisService) Enqueue(ctx context.Context, companyID, requestedBy string, tier domain.Tier, task string, names []string) (*domain.AnalysisJob, error) {
	if len(names) == 0 {
		names = []string{agent.NameMarketIntelligence, agent.NameCompetitor, agent.NamePersona}
	}
	for _, name := range names {
		if !s.orchestrator.Known(name) {
			return nil, util.NewValidationError("unknown agent", map[string]any{"agent": name})
		}
		if min, premium := premiumAgents[name]; premium && !tier.AtLeast(min) {
			return nil, util.NewForbidden("agent requires a paid subscription tier")
		}
	}

	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	job := &domain.AnalysisJob{
		ID:          uuid.NewString(),
		CompanyID:   company.ID,
		RequestedBy: requestedBy,
		Task:        task,
		Agents:      names,
		Status:      domain.AnalysisStatusQueued,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	input := agent.Context{
		"company_name": company.Name,
		"domain":       company.Domain,
		"industry":     company.Industry,
		"description":  company.Description,
	}
	select {
	case s.queue <- queuedJob{jobID: job.ID, task: task, names: names, input: input}:
	default:
		_ = s.jobs.SetResult(ctx, job.ID, domain.AnalysisStatusFailed, nil, "analysis queue full")
		return nil, util.NewConflict("analysis queue full, retry later", nil)
	}
	return job, nil
}

// Get returns a job by id.
func (s *AnalysisService) Get(ctx context.Context, id string) (*domain.AnalysisJob, error) {
	return s.jobs.GetByID(ctx, id)
}

// Cancel stops a queued or running job. Queued jobs are marked cancelled and
// skipped by the worker; running jobs get their context cancelled.
func (s *AnalysisService) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	cancel, running := s.cancels[id]
	s.mu.Unlock()
	if running {
		cancel()
		return nil
	}

	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job.Status != domain.AnalysisStatusQueued {
		return util.NewConflict("job is not cancellable", map[string]any{"status": string(job.Status)})
	}
	return s.jobs.SetStatus(ctx, id, domain.AnalysisStatusCancelled)
}

func (s *AnalysisService) run(baseCtx context.Context) {
	defer close(s.done)
	for queued := range s.queue {
		if baseCtx.Err() != nil {
			return
		}
		s.process(baseCtx, queued)
	}
}

func (s *AnalysisService) process(baseCtx context.Context, queued queuedJob) {
	// A cancelled-while-queued job must not run.
	job, err := s.jobs.GetByID(baseCtx, queued.jobID)
	if err != nil {
		s.logger.Error("failed to load queued job", zap.Error(err), zap.String("job_id", queued.jobID))
		return
	}
	if job.Status != domain.AnalysisStatusQueued {
		return
	}

	runCtx, cancel := context.WithCancel(baseCtx)
	s.mu.Lock()
	s.cancels[queued.jobID] = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.cancels, queued.jobID)
		s.mu.Unlock()
	}()

	if err := s.jobs.SetStatus(baseCtx, queued.jobID, domain.AnalysisStatusRunning); err != nil {
		s.logger.Error("failed to mark job running", zap.Error(err), zap.String("job_id", queued.jobID))
		return
	}

	started := time.Now()
	results, runErr := s.orchestrator.RunSequence(runCtx, queued.names, queued.task, queued.input)

	status := domain.AnalysisStatusCompleted
	errorMessage := ""
	switch {
	case errors.Is(runErr, context.Canceled):
		status = domain.AnalysisStatusCancelled
		errorMessage = "cancelled"
	case runErr != nil:
		status = domain.AnalysisStatusFailed
		errorMessage = runErr.Error()
	}

	raw, err := json.Marshal(results)
	if err != nil {
		status = domain.AnalysisStatusFailed
		errorMessage = err.Error()
		raw = nil
	}

	if err := s.jobs.SetResult(baseCtx, queued.jobID, status, raw, errorMessage); err != nil {
		s.logger.Error("failed to persist job result", zap.Error(err), zap.String("job_id", queued.jobID))
		return
	}

	s.logger.Info("analysis job finished",
		zap.String("job_id", queued.jobID),
		zap.String("status", string(status)),
		zap.Duration("duration", time.Since(started)))

	_ = s.dispatcher.Publish(baseCtx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAnalysisCompleted,
		UserID:    job.RequestedBy,
		Timestamp: time.Now(),
		Payload: events.AnalysisCompletedPayload{
			JobID:     queued.jobID,
			CompanyID: job.CompanyID,
			Status:    status,
		},
	})
}
