package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/WilliamAGH/searchai/domain"
)

const defaultGroupTTL = 1 * time.Hour

// Consumer-side interfaces
type QueueTransport interface {
	SendMessageBatch(ctx context.Context, queueURL string, messages []interface{}) error
}

type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
	HSet(ctx context.Context, key, field, value string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// QueueAdapter abstracts the distributed task queue: submit a batch of
// scrape jobs as one group, then restore and inspect that group later,
// possibly from a different process.
type QueueAdapter interface {
	SubmitBatch(ctx context.Context, jobs []domain.ScrapeJobMessage) (string, error)
	RestoreGroup(ctx context.Context, groupID string) (TaskGroup, error)
}

// TaskGroup is a restored batch of in-flight jobs.
type TaskGroup interface {
	Size() int
	CompletedCount(ctx context.Context) (int, error)
	IsReady(ctx context.Context) (bool, error)
	FetchResults(ctx context.Context, timeout time.Duration) ([]domain.JobResult, error)
	Forget(ctx context.Context) error
}

// SQSRedisAdapter dispatches jobs over SQS and tracks group completion in
// Redis: a total counter written at submit time, a done counter workers
// increment, and a hash of per-job results keyed by position index.
type SQSRedisAdapter struct {
	queue    QueueTransport
	redis    RedisClient
	queueURL string
	groupTTL time.Duration
	logger   *zap.Logger
}

// Functional Options Pattern
type AdapterOption func(*SQSRedisAdapter)

func WithTransport(q QueueTransport) AdapterOption {
	return func(a *SQSRedisAdapter) { a.queue = q }
}

func WithAdapterRedis(r RedisClient) AdapterOption {
	return func(a *SQSRedisAdapter) { a.redis = r }
}

func WithJobQueueURL(url string) AdapterOption {
	return func(a *SQSRedisAdapter) { a.queueURL = url }
}

func WithGroupTTL(ttl time.Duration) AdapterOption {
	return func(a *SQSRedisAdapter) { a.groupTTL = ttl }
}

func WithAdapterLogger(l *zap.Logger) AdapterOption {
	return func(a *SQSRedisAdapter) { a.logger = l }
}

func NewSQSRedisAdapter(opts ...AdapterOption) *SQSRedisAdapter {
	a := &SQSRedisAdapter{
		groupTTL: defaultGroupTTL,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *SQSRedisAdapter) SubmitBatch(ctx context.Context, jobs []domain.ScrapeJobMessage) (string, error) {
	if len(jobs) == 0 {
		return "", &domain.AdapterError{
			Kind: domain.ErrorKindTask,
			Op:   "submit",
			Err:  errors.New("no jobs to submit"),
		}
	}

	groupID := uuid.NewString()

	if err := a.redis.Set(ctx, groupTotalKey(groupID), strconv.Itoa(len(jobs)), a.groupTTL); err != nil {
		return "", classifyQueueError("submit", err)
	}
	if err := a.redis.Set(ctx, groupDoneKey(groupID), "0", a.groupTTL); err != nil {
		a.forgetGroupKeys(ctx, groupID)
		return "", classifyQueueError("submit", err)
	}

	messages := make([]interface{}, 0, len(jobs))
	for _, job := range jobs {
		job.GroupID = groupID
		messages = append(messages, job)
	}
	if err := a.queue.SendMessageBatch(ctx, a.queueURL, messages); err != nil {
		a.forgetGroupKeys(ctx, groupID)
		return "", classifyQueueError("submit", err)
	}

	a.logger.Info("submitted scrape job batch",
		zap.String("group_id", groupID), zap.Int("jobs", len(jobs)))
	return groupID, nil
}

func (a *SQSRedisAdapter) RestoreGroup(ctx context.Context, groupID string) (TaskGroup, error) {
	exists, err := a.redis.Exists(ctx, groupTotalKey(groupID))
	if err != nil {
		return nil, classifyQueueError("restore", err)
	}
	if !exists {
		return nil, domain.ErrGroupNotFound
	}

	totalStr, err := a.redis.Get(ctx, groupTotalKey(groupID))
	if err != nil {
		return nil, classifyQueueError("restore", err)
	}
	size, err := strconv.Atoi(totalStr)
	if err != nil {
		return nil, &domain.AdapterError{
			Kind: domain.ErrorKindOther,
			Op:   "restore",
			Err:  fmt.Errorf("corrupt group size %q: %w", totalStr, err),
		}
	}

	return &redisTaskGroup{adapter: a, groupID: groupID, size: size}, nil
}

// forgetGroupKeys removes all Redis state for a group, best-effort.
func (a *SQSRedisAdapter) forgetGroupKeys(ctx context.Context, groupID string) {
	err := a.redis.Del(ctx, groupTotalKey(groupID), groupDoneKey(groupID), groupResultsKey(groupID))
	if err != nil {
		a.logger.Warn("failed to clean up group keys",
			zap.String("group_id", groupID), zap.Error(err))
	}
}

type redisTaskGroup struct {
	adapter *SQSRedisAdapter
	groupID string
	size    int
}

func (g *redisTaskGroup) Size() int {
	return g.size
}

func (g *redisTaskGroup) CompletedCount(ctx context.Context) (int, error) {
	val, err := g.adapter.redis.Get(ctx, groupDoneKey(g.groupID))
	if err != nil {
		return 0, classifyQueueError("status", err)
	}
	done, err := strconv.Atoi(val)
	if err != nil {
		return 0, &domain.AdapterError{
			Kind: domain.ErrorKindOther,
			Op:   "status",
			Err:  fmt.Errorf("corrupt done counter %q: %w", val, err),
		}
	}
	return done, nil
}

func (g *redisTaskGroup) IsReady(ctx context.Context) (bool, error) {
	done, err := g.CompletedCount(ctx)
	if err != nil {
		return false, err
	}
	return done >= g.size, nil
}

func (g *redisTaskGroup) FetchResults(ctx context.Context, timeout time.Duration) ([]domain.JobResult, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := g.adapter.redis.HGetAll(fetchCtx, groupResultsKey(g.groupID))
	if err != nil {
		return nil, classifyQueueError("fetch", err)
	}

	results := make([]domain.JobResult, 0, len(raw))
	for field, payload := range raw {
		var jr domain.JobResult
		if err := json.Unmarshal([]byte(payload), &jr); err != nil {
			g.adapter.logger.Warn("malformed job result payload",
				zap.String("group_id", g.groupID), zap.String("field", field), zap.Error(err))
			jr = domain.JobResult{}
		}
		results = append(results, jr)
	}
	return results, nil
}

func (g *redisTaskGroup) Forget(ctx context.Context) error {
	return g.adapter.redis.Del(ctx,
		groupTotalKey(g.groupID), groupDoneKey(g.groupID), groupResultsKey(g.groupID))
}

func groupTotalKey(groupID string) string {
	return fmt.Sprintf(domain.RedisKeyGroupTotal, groupID)
}

func groupDoneKey(groupID string) string {
	return fmt.Sprintf(domain.RedisKeyGroupDone, groupID)
}

func groupResultsKey(groupID string) string {
	return fmt.Sprintf(domain.RedisKeyGroupResults, groupID)
}

// classifyQueueError maps backend failures onto the adapter's error
// taxonomy. Service-side rejections carrying a client fault are the jobs'
// problem; everything else (transport failures, timeouts, backend errors)
// is broker-class.
func classifyQueueError(op string, err error) *domain.AdapterError {
	kind := domain.ErrorKindBroker
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorFault() == smithy.FaultClient {
		kind = domain.ErrorKindTask
	}
	return &domain.AdapterError{Kind: kind, Op: op, Err: err}
}
