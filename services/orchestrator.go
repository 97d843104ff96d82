package services

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/WilliamAGH/searchai/domain"
)

// defaultResultsFetchTimeout bounds how long one poll waits on the result
// backend, so callers polling on a timer are never blocked long.
const defaultResultsFetchTimeout = 1 * time.Second

// Consumer-side interfaces
type ContextStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type ArchiveRepository interface {
	SaveResults(contextID string, results []domain.ScrapeResult) error
}

// Orchestrator decides whether scraping runs inline or through the task
// queue, tracks in-flight task groups across request/response cycles via
// the context store, and reconciles finished groups back into the
// user-visible result set. Dispatch and Poll never propagate scraping or
// queue failures to the caller: submission errors degrade to synchronous
// scraping, and poll-time errors report the group as still pending.
type Orchestrator struct {
	adapter      QueueAdapter
	store        ContextStore
	extractor    Extractor
	estimator    Estimator
	archive      ArchiveRepository
	asyncEnabled bool
	fetchTimeout time.Duration
	logger       *zap.Logger
}

// Functional Options Pattern
type OrchestratorOption func(*Orchestrator)

func WithQueueAdapter(a QueueAdapter) OrchestratorOption {
	return func(o *Orchestrator) { o.adapter = a }
}

func WithContextStore(s ContextStore) OrchestratorOption {
	return func(o *Orchestrator) { o.store = s }
}

func WithExtractor(e Extractor) OrchestratorOption {
	return func(o *Orchestrator) { o.extractor = e }
}

func WithEstimator(e Estimator) OrchestratorOption {
	return func(o *Orchestrator) { o.estimator = e }
}

func WithArchive(a ArchiveRepository) OrchestratorOption {
	return func(o *Orchestrator) { o.archive = a }
}

func WithAsyncScraping(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) { o.asyncEnabled = enabled }
}

func WithResultsFetchTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.fetchTimeout = timeout }
}

func WithLogger(l *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		fetchTimeout: defaultResultsFetchTimeout,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Dispatch submits the requested URLs for scraping. With async scraping
// enabled and a queue adapter configured it dispatches one job per request
// as a task group and returns pending placeholders; otherwise, or when
// submission fails, it scrapes every URL inline and returns terminal
// results. Either way the outcome's result list is persisted in the
// context store before returning.
func (o *Orchestrator) Dispatch(ctx context.Context, contextID string, requests []domain.ScrapeRequest) domain.DispatchOutcome {
	outcome := domain.DispatchOutcome{}
	if len(requests) == 0 {
		return outcome
	}

	useAsync := o.asyncEnabled && o.adapter != nil
	if useAsync {
		o.logger.Info("attempting asynchronous scrape dispatch",
			zap.String("context_id", contextID), zap.Int("links", len(requests)))

		jobs := make([]domain.ScrapeJobMessage, 0, len(requests))
		for _, req := range requests {
			jobs = append(jobs, domain.ScrapeJobMessage{
				ContextID: contextID,
				URL:       req.URL,
				Index:     req.Index,
			})
		}

		groupID, err := o.adapter.SubmitBatch(ctx, jobs)
		if err != nil {
			o.logger.Error("async dispatch failed, falling back to synchronous scraping",
				zap.String("context_id", contextID),
				zap.Bool("broker_error", domain.IsBrokerError(err)),
				zap.Error(err))
			o.clearGroupHandle(ctx, contextID)
		} else if err := o.store.Set(ctx, domain.TaskGroupKey(contextID), groupID); err != nil {
			// A handle nobody can poll is worthless; scrape inline instead
			o.logger.Error("failed to persist group handle, falling back to synchronous scraping",
				zap.String("context_id", contextID),
				zap.String("group_id", groupID),
				zap.Error(err))
		} else {
			outcome.GroupID = groupID
			outcome.Pending = true
			outcome.Results = pendingResults(requests)
			o.logger.Info("task group dispatched",
				zap.String("context_id", contextID),
				zap.String("group_id", groupID),
				zap.Int("links", len(requests)))
		}
	}

	if !outcome.Pending {
		outcome.Results = o.scrapeSync(ctx, contextID, requests)
		o.archiveResults(contextID, outcome.Results)
	}

	o.persistResults(ctx, contextID, outcome.Results)
	return outcome
}

// Poll checks an in-flight task group. It returns the handle to keep
// polling with and whether scraping is still pending. Once the group is
// ready its results are normalized, persisted, and the handle consumed;
// any failure along the way conservatively reports still-pending so a
// transient backend hiccup never discards in-flight work.
func (o *Orchestrator) Poll(ctx context.Context, contextID, groupID string) (string, bool) {
	if groupID == "" || !o.asyncEnabled || o.adapter == nil {
		return "", false
	}

	group, err := o.adapter.RestoreGroup(ctx, groupID)
	if err != nil {
		o.logger.Warn("could not restore task group",
			zap.String("context_id", contextID),
			zap.String("group_id", groupID),
			zap.Error(err))
		return groupID, true
	}

	ready, err := group.IsReady(ctx)
	if err != nil {
		o.logger.Warn("could not check task group status",
			zap.String("group_id", groupID), zap.Error(err))
		return groupID, true
	}
	if !ready {
		completed, cerr := group.CompletedCount(ctx)
		if cerr == nil {
			o.logger.Info("task group still pending",
				zap.String("group_id", groupID),
				zap.Int("completed", completed),
				zap.Int("total", group.Size()))
		}
		return groupID, true
	}

	raw, err := group.FetchResults(ctx, o.fetchTimeout)
	if err != nil {
		o.logger.Warn("fetching task group results failed, assuming still pending",
			zap.String("group_id", groupID), zap.Error(err))
		return groupID, true
	}

	results := normalizeJobResults(raw)
	data, merr := json.Marshal(results)
	if merr != nil {
		o.logger.Error("failed to marshal reconciled results, assuming still pending",
			zap.String("group_id", groupID), zap.Error(merr))
		return groupID, true
	}
	if err := o.store.Set(ctx, domain.ResultsKey(contextID), string(data)); err != nil {
		o.logger.Error("failed to persist reconciled results, assuming still pending",
			zap.String("context_id", contextID), zap.Error(err))
		return groupID, true
	}

	o.clearGroupHandle(ctx, contextID)
	if err := group.Forget(ctx); err != nil {
		o.logger.Warn("failed to discard consumed task group",
			zap.String("group_id", groupID), zap.Error(err))
	}
	o.archiveResults(contextID, results)

	o.logger.Info("task group reconciled",
		zap.String("context_id", contextID),
		zap.String("group_id", groupID),
		zap.Int("results", len(results)),
		zap.Int("tokens", domain.TotalTokens(results)))
	return "", false
}

// LoadResults returns the scrape results currently persisted for a
// context, or nil when none exist.
func (o *Orchestrator) LoadResults(ctx context.Context, contextID string) ([]domain.ScrapeResult, error) {
	data, found, err := o.store.Get(ctx, domain.ResultsKey(contextID))
	if err != nil || !found {
		return nil, err
	}
	var results []domain.ScrapeResult
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		return nil, err
	}
	return results, nil
}

// ActiveGroupID returns the task group currently tracked for a context,
// or empty when no group is in flight.
func (o *Orchestrator) ActiveGroupID(ctx context.Context, contextID string) string {
	groupID, found, err := o.store.Get(ctx, domain.TaskGroupKey(contextID))
	if err != nil || !found {
		return ""
	}
	return groupID
}

// scrapeSync extracts every URL inline, one failed URL never aborting the
// batch.
func (o *Orchestrator) scrapeSync(ctx context.Context, contextID string, requests []domain.ScrapeRequest) []domain.ScrapeResult {
	o.logger.Info("scraping synchronously",
		zap.String("context_id", contextID), zap.Int("links", len(requests)))

	results := make([]domain.ScrapeResult, 0, len(requests))
	for _, req := range requests {
		content, err := o.extractor.Extract(ctx, req.URL)
		if err != nil {
			o.logger.Error("synchronous scrape failed",
				zap.String("url", req.URL), zap.Error(err))
			results = append(results, domain.ScrapeResult{
				Link:   req.URL,
				Status: domain.StatusFailed,
				Index:  req.Index,
				Error:  err.Error(),
			})
			continue
		}

		tokenCount := 0
		if content != "" {
			tokenCount = o.estimator.Estimate(content)
		} else {
			o.logger.Warn("scraped URL but received no content", zap.String("url", req.URL))
		}
		results = append(results, domain.ScrapeResult{
			Link:       req.URL,
			Content:    content,
			Status:     domain.StatusSuccess,
			Index:      req.Index,
			TokenCount: tokenCount,
		})
	}
	return results
}

func (o *Orchestrator) persistResults(ctx context.Context, contextID string, results []domain.ScrapeResult) {
	data, err := json.Marshal(results)
	if err != nil {
		o.logger.Error("failed to marshal scrape results",
			zap.String("context_id", contextID), zap.Error(err))
		return
	}
	if err := o.store.Set(ctx, domain.ResultsKey(contextID), string(data)); err != nil {
		o.logger.Error("failed to persist scrape results",
			zap.String("context_id", contextID), zap.Error(err))
	}
}

func (o *Orchestrator) clearGroupHandle(ctx context.Context, contextID string) {
	if err := o.store.Delete(ctx, domain.TaskGroupKey(contextID)); err != nil {
		o.logger.Warn("failed to clear group handle",
			zap.String("context_id", contextID), zap.Error(err))
	}
}

func (o *Orchestrator) archiveResults(contextID string, results []domain.ScrapeResult) {
	if o.archive == nil || len(results) == 0 {
		return
	}
	if err := o.archive.SaveResults(contextID, results); err != nil {
		o.logger.Warn("failed to archive scrape results",
			zap.String("context_id", contextID), zap.Error(err))
	}
}

func pendingResults(requests []domain.ScrapeRequest) []domain.ScrapeResult {
	results := make([]domain.ScrapeResult, 0, len(requests))
	for _, req := range requests {
		results = append(results, domain.ScrapeResult{
			Link:    req.URL,
			Content: domain.PendingContent,
			Status:  domain.StatusPending,
			Index:   req.Index,
		})
	}
	return results
}

// normalizeJobResults converts raw job outcomes into ScrapeResults.
// Successful results are kept as reported; everything else, including
// malformed payloads, becomes a failed_task entry with placeholder values
// for whatever fields are missing.
func normalizeJobResults(raw []domain.JobResult) []domain.ScrapeResult {
	results := make([]domain.ScrapeResult, 0, len(raw))
	for _, jr := range raw {
		if status, ok := jr.String("status"); ok && status == domain.StatusSuccess {
			link, _ := jr.String("link")
			content, _ := jr.String("content")
			index, _ := jr.Int("index")
			tokenCount, _ := jr.Int("token_count")
			results = append(results, domain.ScrapeResult{
				Link:       link,
				Content:    content,
				Status:     domain.StatusSuccess,
				Index:      index,
				TokenCount: tokenCount,
			})
			continue
		}

		link, ok := jr.String("link")
		if !ok {
			link = domain.UnknownLink
		}
		errMsg, ok := jr.String("error")
		if !ok {
			errMsg = domain.UnknownError
		}
		index, ok := jr.Int("index")
		if !ok {
			index = domain.UnknownIndex
		}
		results = append(results, domain.ScrapeResult{
			Link:   link,
			Status: domain.StatusFailedTask,
			Index:  index,
			Error:  errMsg,
		})
	}
	return results
}
