package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"churninsight/dashboard/internal/metrics"
	"churninsight/dashboard/internal/models"
	"churninsight/dashboard/internal/repositories"
)

const DefaultPollInterval = 2 * time.Second

var batchExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
}

// ValidateBatchFileName rejects missing names and unsupported file types.
func ValidateBatchFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Message: "no file selected"}
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !batchExtensions[ext] {
		return &ValidationError{Message: fmt.Sprintf("unsupported file type %q: upload a .csv or .xlsx file", ext)}
	}
	return nil
}

type BatchOptions struct {
	PollInterval time.Duration
	SessionID    string
	Jobs         repositories.BatchJobRepository
	Metrics      *metrics.Collector
	Logger       *zap.Logger
}

// BatchController drives one batch job from upload to a terminal status.
// Responses that arrive after a reset or a newer upload are discarded.
type BatchController struct {
	client    BackendClient
	jobs      repositories.BatchJobRepository
	metrics   *metrics.Collector
	log       *zap.Logger
	interval  time.Duration
	sessionID string

	mu         sync.Mutex
	state      models.BatchState
	jobID      string
	fileName   string
	status     *models.BatchStatus
	lastErr    string
	loading    bool
	generation uint64
	pollerSeq  uint64
	pollerID   uint64
	stopPoll   context.CancelFunc
	stopUpload context.CancelFunc
	notified   bool
	onTerminal []func(models.BatchStatus)
}

func NewBatchController(client BackendClient, opts BatchOptions) *BatchController {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &BatchController{
		client:    client,
		jobs:      opts.Jobs,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		interval:  opts.PollInterval,
		sessionID: opts.SessionID,
		state:     models.BatchStateIdle,
	}
}

// OnTerminal registers fn to run once per job when a terminal status is
// committed. fn runs outside the controller lock.
func (c *BatchController) OnTerminal(fn func(models.BatchStatus)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTerminal = append(c.onTerminal, fn)
}

// Upload submits a batch file. Any previous job is abandoned first. Polling
// starts automatically when the initial status is not terminal.
func (c *BatchController) Upload(ctx context.Context, fileName string, content io.Reader) (models.BatchStatus, error) {
	if content == nil {
		return models.BatchStatus{}, &ValidationError{Message: "no file selected"}
	}
	if err := ValidateBatchFileName(fileName); err != nil {
		return models.BatchStatus{}, err
	}

	c.mu.Lock()
	c.stopPollerLocked()
	c.stopUploadLocked()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.stopUpload = cancel
	c.generation++
	gen := c.generation
	c.jobID = ""
	c.status = nil
	c.lastErr = ""
	c.notified = false
	c.fileName = fileName
	c.state = models.BatchStateUploading
	c.loading = true
	c.mu.Unlock()

	payload, err := c.client.UploadBatch(ctx, fileName, content)

	var status models.BatchStatus
	if err == nil {
		status = NormalizeBatchStatus(payload)
		if status.JobID == "" {
			err = &TransportError{Endpoint: "batch.upload", Message: "upload response has no job id"}
		}
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return models.BatchStatus{}, ErrAborted
	}
	c.stopUpload = nil
	c.loading = false

	if err != nil {
		c.state = models.BatchStateIdle
		if IsAborted(err) {
			c.mu.Unlock()
			c.metrics.RecordUpload("aborted")
			return models.BatchStatus{}, ErrAborted
		}
		c.lastErr = err.Error()
		c.mu.Unlock()
		c.metrics.RecordUpload("failed")
		c.log.Warn("batch upload failed", zap.String("file", fileName), zap.Error(err))
		return models.BatchStatus{}, fmt.Errorf("batch upload: %w", err)
	}

	c.jobID = status.JobID
	c.state = models.BatchStatePolling
	hooks := c.commitLocked(status)
	if !status.IsTerminal() {
		c.startPollerLocked(c.interval)
	}
	c.mu.Unlock()

	c.metrics.RecordUpload("accepted")
	c.log.Info("batch job accepted", zap.String("job_id", status.JobID), zap.String("status", status.Status))
	c.record(status)
	c.fire(hooks, status)
	return status, nil
}

// StartPolling starts a status poller for the current job and returns its
// disposer. A running poller is disposed first. Without a job it does nothing.
func (c *BatchController) StartPolling(interval time.Duration) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.jobID == "" {
		return func() {}
	}
	if interval <= 0 {
		interval = c.interval
	}
	c.state = models.BatchStatePolling
	return c.startPollerLocked(interval)
}

// CheckStatus fetches the job status once, outside the polling cycle.
func (c *BatchController) CheckStatus(ctx context.Context) (models.BatchStatus, error) {
	c.mu.Lock()
	if c.jobID == "" {
		c.mu.Unlock()
		return models.BatchStatus{}, &ValidationError{Message: "no batch job to check"}
	}
	gen, jobID := c.generation, c.jobID
	c.loading = true
	c.mu.Unlock()

	payload, err := c.client.BatchStatus(ctx, jobID)

	c.mu.Lock()
	if gen != c.generation || jobID != c.jobID {
		c.mu.Unlock()
		return models.BatchStatus{}, ErrAborted
	}
	c.loading = false
	if err != nil {
		if IsAborted(err) {
			c.mu.Unlock()
			return models.BatchStatus{}, ErrAborted
		}
		c.lastErr = err.Error()
		c.mu.Unlock()
		return models.BatchStatus{}, fmt.Errorf("batch status: %w", err)
	}

	status := NormalizeBatchStatus(payload)
	if status.JobID == "" {
		status.JobID = jobID
	}
	hooks := c.commitLocked(status)
	c.mu.Unlock()

	c.record(status)
	c.fire(hooks, status)
	return status, nil
}

// Reset disposes the poller, aborts an upload in flight and forgets the job.
func (c *BatchController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPollerLocked()
	c.stopUploadLocked()
	c.generation++
	c.jobID = ""
	c.fileName = ""
	c.status = nil
	c.lastErr = ""
	c.loading = false
	c.notified = false
	c.state = models.BatchStateIdle
}

// Close disposes the poller and aborts an upload in flight. Responses still in
// flight are discarded.
func (c *BatchController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPollerLocked()
	c.stopUploadLocked()
	c.generation++
	c.loading = false
}

func (c *BatchController) Snapshot() models.BatchSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := models.BatchSnapshot{
		State:   c.state,
		JobID:   c.jobID,
		Polling: c.stopPoll != nil,
		Loading: c.loading,
		Error:   c.lastErr,
	}
	if c.status != nil {
		status := *c.status
		snap.Status = &status
		snap.Progress = status.Progress()
	}
	return snap
}

// commitLocked stores a fresh status and returns the hooks to fire, if this
// commit is the job's first terminal status.
func (c *BatchController) commitLocked(status models.BatchStatus) []func(models.BatchStatus) {
	c.status = &status
	c.lastErr = ""

	if !status.IsTerminal() {
		if c.stopPoll != nil {
			c.state = models.BatchStatePolling
		}
		return nil
	}

	c.stopPollerLocked()
	if strings.ToUpper(status.Status) == models.BatchCompleted {
		c.state = models.BatchStateCompleted
	} else {
		c.state = models.BatchStateFailed
	}
	if c.notified {
		return nil
	}
	c.notified = true
	return append([]func(models.BatchStatus){}, c.onTerminal...)
}

func (c *BatchController) startPollerLocked(interval time.Duration) func() {
	c.stopPollerLocked()

	ctx, cancel := context.WithCancel(context.Background())
	c.pollerSeq++
	id := c.pollerSeq
	c.pollerID = id
	c.stopPoll = cancel

	go c.poll(ctx, id, c.generation, c.jobID, interval)

	return func() {
		c.mu.Lock()
		if c.pollerID == id {
			c.stopPollerLocked()
		}
		c.mu.Unlock()
		cancel()
	}
}

func (c *BatchController) stopPollerLocked() {
	if c.stopPoll != nil {
		c.stopPoll()
		c.stopPoll = nil
	}
	c.pollerID = 0
}

// stopUploadLocked aborts the upload in flight, if any.
func (c *BatchController) stopUploadLocked() {
	if c.stopUpload != nil {
		c.stopUpload()
		c.stopUpload = nil
	}
}

func (c *BatchController) poll(ctx context.Context, id, gen uint64, jobID string, interval time.Duration) {
	c.metrics.PollerStarted()
	defer c.metrics.PollerStopped()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := c.pollOnce(ctx, id, gen, jobID); done {
				return
			}
		}
	}
}

// pollOnce runs one status fetch and reports whether polling is over.
func (c *BatchController) pollOnce(ctx context.Context, id, gen uint64, jobID string) bool {
	payload, err := c.client.BatchStatus(ctx, jobID)
	if ctx.Err() != nil {
		return true
	}

	c.mu.Lock()
	if id != c.pollerID || gen != c.generation || jobID != c.jobID {
		c.mu.Unlock()
		return true
	}

	if err != nil {
		if IsAborted(err) {
			c.mu.Unlock()
			return true
		}
		c.stopPollerLocked()
		c.state = models.BatchStateStopped
		c.lastErr = err.Error()
		status := c.status
		c.mu.Unlock()

		c.metrics.RecordPoll("error")
		c.log.Warn("batch polling stopped", zap.String("job_id", jobID), zap.Error(err))
		if status != nil {
			c.record(*status)
		}
		return true
	}

	status := NormalizeBatchStatus(payload)
	if status.JobID == "" {
		status.JobID = jobID
	}
	hooks := c.commitLocked(status)
	c.mu.Unlock()

	c.metrics.RecordPoll(strings.ToLower(status.Status))
	c.record(status)
	c.fire(hooks, status)
	return status.IsTerminal()
}

func (c *BatchController) fire(hooks []func(models.BatchStatus), status models.BatchStatus) {
	for _, fn := range hooks {
		fn(status)
	}
}

func (c *BatchController) record(status models.BatchStatus) {
	if c.jobs == nil || status.JobID == "" {
		return
	}

	c.mu.Lock()
	fileName := c.fileName
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.jobs.Upsert(ctx, &models.BatchJobRecord{
		JobID:        status.JobID,
		SessionID:    c.sessionID,
		FileName:     fileName,
		Status:       status.Status,
		Processed:    status.Processed,
		SuccessCount: status.SuccessCount,
		ErrorCount:   status.ErrorCount,
		Message:      status.Message,
	})
	if err != nil {
		c.log.Warn("failed to record batch job", zap.String("job_id", status.JobID), zap.Error(err))
	}
}
