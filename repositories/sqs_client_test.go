package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go/middleware"
	"github.com/stretchr/testify/assert"
)

// Mock middleware to return specific output or error
func mockSQSMiddleware(output interface{}, err error) func(*middleware.Stack) error {
	return func(stack *middleware.Stack) error {
		return stack.Finalize.Add(
			middleware.FinalizeMiddlewareFunc("MockMiddleware", func(context.Context, middleware.FinalizeInput, middleware.FinalizeHandler) (middleware.FinalizeOutput, middleware.Metadata, error) {
				return middleware.FinalizeOutput{
					Result: output,
				}, middleware.Metadata{}, err
			}),
			middleware.Before,
		)
	}
}

func TestSQSClient_SendMessageBatch(t *testing.T) {
	// Success case
	client := sqs.NewFromConfig(aws.Config{}, func(o *sqs.Options) {
		o.APIOptions = append(o.APIOptions, mockSQSMiddleware(&sqs.SendMessageBatchOutput{}, nil))
	})

	repo := NewSQSClient(client)
	err := repo.SendMessageBatch(context.TODO(), "queue-url", []interface{}{
		map[string]string{"url": "http://a"},
		map[string]string{"url": "http://b"},
	})
	assert.NoError(t, err)

	// Error case
	clientErr := sqs.NewFromConfig(aws.Config{}, func(o *sqs.Options) {
		o.APIOptions = append(o.APIOptions, mockSQSMiddleware(nil, errors.New("aws error")))
	})

	repoErr := NewSQSClient(clientErr)
	err = repoErr.SendMessageBatch(context.TODO(), "queue-url", []interface{}{
		map[string]string{"url": "http://a"},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send message batch")
}

func TestSQSClient_SendMessageBatch_PartialFailure(t *testing.T) {
	output := &sqs.SendMessageBatchOutput{
		Failed: []types.BatchResultErrorEntry{
			{Id: aws.String("msg-0"), Code: aws.String("InternalError"), Message: aws.String("boom")},
		},
	}
	client := sqs.NewFromConfig(aws.Config{}, func(o *sqs.Options) {
		o.APIOptions = append(o.APIOptions, mockSQSMiddleware(output, nil))
	})

	repo := NewSQSClient(client)
	err := repo.SendMessageBatch(context.TODO(), "queue-url", []interface{}{
		map[string]string{"url": "http://a"},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send 1 of 1 messages")
}

func TestSQSClient_SendMessageBatch_Unmarshalable(t *testing.T) {
	client := sqs.NewFromConfig(aws.Config{}, func(o *sqs.Options) {
		o.APIOptions = append(o.APIOptions, mockSQSMiddleware(&sqs.SendMessageBatchOutput{}, nil))
	})

	repo := NewSQSClient(client)
	err := repo.SendMessageBatch(context.TODO(), "queue-url", []interface{}{make(chan int)})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to marshal")
}

func TestSQSClient_ReceiveMessages(t *testing.T) {
	output := &sqs.ReceiveMessageOutput{
		Messages: []types.Message{
			{Body: aws.String(`{"url":"http://a"}`), ReceiptHandle: aws.String("handle")},
		},
	}
	client := sqs.NewFromConfig(aws.Config{}, func(o *sqs.Options) {
		o.APIOptions = append(o.APIOptions, mockSQSMiddleware(output, nil))
	})

	repo := NewSQSClient(client)
	out, err := repo.ReceiveMessages(context.TODO(), "queue-url", 10)
	assert.NoError(t, err)
	assert.Len(t, out.Messages, 1)
}

func TestSQSClient_DeleteMessageBatch(t *testing.T) {
	client := sqs.NewFromConfig(aws.Config{}, func(o *sqs.Options) {
		o.APIOptions = append(o.APIOptions, mockSQSMiddleware(&sqs.DeleteMessageBatchOutput{}, nil))
	})

	repo := NewSQSClient(client)
	err := repo.DeleteMessageBatch(context.TODO(), "queue-url", []types.DeleteMessageBatchRequestEntry{
		{Id: aws.String("id"), ReceiptHandle: aws.String("handle")},
	})
	assert.NoError(t, err)

	clientErr := sqs.NewFromConfig(aws.Config{}, func(o *sqs.Options) {
		o.APIOptions = append(o.APIOptions, mockSQSMiddleware(nil, errors.New("aws error")))
	})
	repoErr := NewSQSClient(clientErr)
	err = repoErr.DeleteMessageBatch(context.TODO(), "queue-url", []types.DeleteMessageBatchRequestEntry{
		{Id: aws.String("id"), ReceiptHandle: aws.String("handle")},
	})
	assert.Error(t, err)
}
