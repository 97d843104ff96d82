package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/WilliamAGH/searchai/domain"
)

// ScrapeWorkerService executes one scrape job: extract the page, count
// tokens, record the result in the group's result hash, and bump the
// done counter. The group becomes ready once every job has recorded an
// outcome, successful or not.
type ScrapeWorkerService struct {
	redis     RedisClient
	extractor Extractor
	estimator Estimator
	groupTTL  time.Duration
	logger    *zap.Logger
}

// Functional Options Pattern
type WorkerOption func(*ScrapeWorkerService)

func WithWorkerRedis(r RedisClient) WorkerOption {
	return func(s *ScrapeWorkerService) { s.redis = r }
}

func WithWorkerExtractor(e Extractor) WorkerOption {
	return func(s *ScrapeWorkerService) { s.extractor = e }
}

func WithWorkerEstimator(e Estimator) WorkerOption {
	return func(s *ScrapeWorkerService) { s.estimator = e }
}

func WithWorkerGroupTTL(ttl time.Duration) WorkerOption {
	return func(s *ScrapeWorkerService) { s.groupTTL = ttl }
}

func WithWorkerLogger(l *zap.Logger) WorkerOption {
	return func(s *ScrapeWorkerService) { s.logger = l }
}

func NewScrapeWorkerService(opts ...WorkerOption) *ScrapeWorkerService {
	s := &ScrapeWorkerService{
		groupTTL: defaultGroupTTL,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ScrapeWorkerService) ProcessMessage(ctx context.Context, msg domain.ScrapeJobMessage) {
	s.logger.Info("scraping URL",
		zap.String("url", msg.URL),
		zap.String("group_id", msg.GroupID),
		zap.Int("index", msg.Index))

	result := domain.ScrapeResult{
		Link:  msg.URL,
		Index: msg.Index,
	}

	content, err := s.extractor.Extract(ctx, msg.URL)
	if err != nil {
		s.logger.Error("scrape failed",
			zap.String("url", msg.URL), zap.Error(err))
		result.Status = domain.StatusFailed
		result.Error = err.Error()
	} else {
		result.Status = domain.StatusSuccess
		result.Content = content
		result.TokenCount = s.estimator.Estimate(content)
		if content == "" {
			s.logger.Warn("scraped URL but received no content", zap.String("url", msg.URL))
		} else {
			s.logger.Info("scraped URL",
				zap.String("url", msg.URL),
				zap.Int("content_length", len(content)),
				zap.Int("token_count", result.TokenCount))
		}
	}

	s.recordResult(ctx, msg, result)
}

// recordResult writes the job outcome into the group hash, then increments
// the done counter. Write order matters: once the counter says the group is
// ready, every result must already be in the hash.
func (s *ScrapeWorkerService) recordResult(ctx context.Context, msg domain.ScrapeJobMessage, result domain.ScrapeResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		// ScrapeResult always marshals; guard anyway so a bug here cannot
		// wedge the group.
		s.logger.Error("failed to marshal scrape result",
			zap.String("group_id", msg.GroupID), zap.Error(err))
		payload = []byte(`{"status":"failed","error":"result marshalling failed"}`)
	}

	resultsKey := groupResultsKey(msg.GroupID)
	if err := s.redis.HSet(ctx, resultsKey, strconv.Itoa(msg.Index), string(payload)); err != nil {
		s.logger.Error("failed to record scrape result",
			zap.String("group_id", msg.GroupID), zap.Int("index", msg.Index), zap.Error(err))
	}
	if err := s.redis.Expire(ctx, resultsKey, s.groupTTL); err != nil {
		s.logger.Warn("failed to refresh results TTL",
			zap.String("group_id", msg.GroupID), zap.Error(err))
	}

	done, err := s.redis.Incr(ctx, groupDoneKey(msg.GroupID))
	if err != nil {
		s.logger.Error("failed to increment done counter, group may never report ready",
			zap.String("group_id", msg.GroupID), zap.Error(err))
		return
	}
	s.logger.Debug("job recorded",
		zap.String("group_id", msg.GroupID),
		zap.Int64("completed", done))
}
