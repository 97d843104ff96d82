package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// sqsBatchLimit is the maximum number of entries SQS accepts per batch call.
const sqsBatchLimit = 10

type SQSClient interface {
	SendMessageBatch(ctx context.Context, queueURL string, messages []interface{}) error
	ReceiveMessages(ctx context.Context, queueURL string, maxMessages int32) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, queueURL string, entries []types.DeleteMessageBatchRequestEntry) error
}

type AWSSQSClient struct {
	Client *sqs.Client
}

func NewSQSClient(client *sqs.Client) *AWSSQSClient {
	return &AWSSQSClient{Client: client}
}

// SendMessageBatch marshals each message to JSON and submits them in chunks
// of the SQS batch limit. Partial failures reported by SQS are surfaced as
// errors so the caller never mistakes a half-submitted batch for success.
func (s *AWSSQSClient) SendMessageBatch(ctx context.Context, queueURL string, messages []interface{}) error {
	var entries []types.SendMessageBatchRequestEntry
	for i, msg := range messages {
		body, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message %d: %w", i, err)
		}
		entries = append(entries, types.SendMessageBatchRequestEntry{
			Id:          aws.String(fmt.Sprintf("msg-%d", i)),
			MessageBody: aws.String(string(body)),
		})
	}

	for start := 0; start < len(entries); start += sqsBatchLimit {
		end := start + sqsBatchLimit
		if end > len(entries) {
			end = len(entries)
		}
		out, err := s.Client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: aws.String(queueURL),
			Entries:  entries[start:end],
		})
		if err != nil {
			return fmt.Errorf("failed to send message batch to %s: %w", queueURL, err)
		}
		if len(out.Failed) > 0 {
			first := out.Failed[0]
			return fmt.Errorf("failed to send %d of %d messages to %s: %s (%s)",
				len(out.Failed), end-start, queueURL,
				aws.ToString(first.Message), aws.ToString(first.Code))
		}
	}
	return nil
}

func (s *AWSSQSClient) ReceiveMessages(ctx context.Context, queueURL string, maxMessages int32) (*sqs.ReceiveMessageOutput, error) {
	return s.Client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(queueURL),
		MaxNumberOfMessages: maxMessages,
		WaitTimeSeconds:     20,
	})
}

func (s *AWSSQSClient) DeleteMessageBatch(ctx context.Context, queueURL string, entries []types.DeleteMessageBatchRequestEntry) error {
	_, err := s.Client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: aws.String(queueURL),
		Entries:  entries,
	})
	if err != nil {
		return fmt.Errorf("failed to delete message batch from %s: %w", queueURL, err)
	}
	return nil
}
