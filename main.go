package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	config_aws "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/WilliamAGH/searchai/config"
	"github.com/WilliamAGH/searchai/domain"
	"github.com/WilliamAGH/searchai/repositories"
	"github.com/WilliamAGH/searchai/services"
)

const (
	MaxBatchSize   = 10
	FlushInterval  = 1 * time.Second
	SQSMaxMessages = 10
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	awsCfg, err := config_aws.LoadDefaultConfig(context.TODO())
	if err != nil {
		logger.Fatal("unable to load SDK config", zap.Error(err))
	}

	rawSQSClient := sqs.NewFromConfig(awsCfg)
	sqsClient := repositories.NewSQSClient(rawSQSClient)
	redisClient := repositories.NewRedisClient(cfg.RedisHost, cfg.RedisPort)
	pageFetcher := repositories.NewPageFetcher(cfg.FetchTimeout)

	extractor := services.NewPageExtractor(
		services.WithFetcher(pageFetcher),
		services.WithExtractorLogger(logger),
	)
	estimator := services.NewTiktokenEstimator(logger)

	workerService := services.NewScrapeWorkerService(
		services.WithWorkerRedis(redisClient),
		services.WithWorkerExtractor(extractor),
		services.WithWorkerEstimator(estimator),
		services.WithWorkerGroupTTL(cfg.GroupTTL),
		services.WithWorkerLogger(logger),
	)

	logger.Info("scrape worker started (Concurrent Worker Pool)",
		zap.Int("workers", cfg.NumWorkers),
		zap.Int("batch_size", MaxBatchSize))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Channels
	jobs := make(chan types.Message, cfg.NumWorkers*2)
	deletes := make(chan types.Message, cfg.NumWorkers*2)

	// WaitGroup for workers
	var workerWg sync.WaitGroup
	// WaitGroup for all (workers + deleter)
	var wg sync.WaitGroup

	// Start Workers
	for i := 0; i < cfg.NumWorkers; i++ {
		workerWg.Add(1)
		wg.Add(1)
		go worker(ctx, &workerWg, &wg, workerService, jobs, deletes, i, logger)
	}

	// Start Batch Deleter
	wg.Add(1)
	go batchDeleter(ctx, &wg, sqsClient, cfg.InputQueueURL, deletes, logger)

	// Graceful Shutdown handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received signal, initiating shutdown", zap.String("signal", sig.String()))
		cancel()
	}()

	// Main Producer Loop
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		default:
			// Fetch messages
			msgOutput, err := sqsClient.ReceiveMessages(ctx, cfg.InputQueueURL, SQSMaxMessages)
			if err != nil {
				logger.Error("failed to receive messages", zap.Error(err))
				time.Sleep(5 * time.Second) // Backoff
				continue
			}

			if len(msgOutput.Messages) == 0 {
				continue
			}

			// checking for context cancellation before sending to avoid blocking
			for _, msg := range msgOutput.Messages {
				select {
				case jobs <- msg:
				case <-ctx.Done():
					break loop
				}
			}
		}
	}

	logger.Info("main loop exited, waiting for workers to finish")
	close(jobs)     // Signal workers to stop
	workerWg.Wait() // Wait for ALL workers to finish writing to deletes
	close(deletes)  // NOW it is safe to close deletes
	wg.Wait()       // Wait for deleter (and workers, implicitly) to finish
	logger.Info("shutdown complete")
}

func worker(ctx context.Context, workerWg *sync.WaitGroup, wg *sync.WaitGroup, svc *services.ScrapeWorkerService, jobs <-chan types.Message, deletes chan<- types.Message, id int, logger *zap.Logger) {
	defer workerWg.Done()
	defer wg.Done()
	for {
		select {
		case msg, ok := <-jobs:
			if !ok {
				return
			}
			var body domain.ScrapeJobMessage
			if err := json.Unmarshal([]byte(*msg.Body), &body); err != nil {
				logger.Error("failed to unmarshal job",
					zap.Int("worker", id), zap.Error(err))
				// Delete malformed messages to avoid a poison pill loop
				select {
				case deletes <- msg:
				case <-ctx.Done():
					return
				}
				continue
			}

			svc.ProcessMessage(ctx, body)

			// Send for deletion
			select {
			case deletes <- msg:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func batchDeleter(ctx context.Context, wg *sync.WaitGroup, client *repositories.AWSSQSClient, queueURL string, deletes <-chan types.Message, logger *zap.Logger) {
	defer wg.Done()
	var batch []types.DeleteMessageBatchRequestEntry
	ticker := time.NewTicker(FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			if err := client.DeleteMessageBatch(context.Background(), queueURL, batch); err != nil {
				logger.Error("failed to delete batch", zap.Error(err))
			}
			batch = nil // Reset
		}
	}

	for {
		select {
		case msg, ok := <-deletes:
			if !ok {
				flush()
				return
			}
			batch = append(batch, types.DeleteMessageBatchRequestEntry{
				Id:            msg.MessageId,
				ReceiptHandle: msg.ReceiptHandle,
			})
			if len(batch) >= MaxBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		}
	}
}
