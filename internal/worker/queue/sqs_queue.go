package queue

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSAPI is the subset of *sqs.Client the queue uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	GetQueueAttributes(ctx context.Context, in *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

// SQSQueue carries run IDs as message bodies. A message is deleted as soon
// as it is received, so delivery is at most once like BRPOP.
type SQSQueue struct {
	client   SQSAPI
	queueURL string
	// WaitSeconds is the long-poll duration of one Pop.
	WaitSeconds int32
	// VisibilitySeconds hides a received message from other workers until
	// it is deleted.
	VisibilitySeconds int32
}

func NewSQSQueue(client SQSAPI, queueURL string) *SQSQueue {
	return &SQSQueue{
		client:            client,
		queueURL:          queueURL,
		WaitSeconds:       20,
		VisibilitySeconds: 300,
	}
}

func (q *SQSQueue) Name() string { return q.queueURL }

func (q *SQSQueue) Push(ctx context.Context, runID string) error {
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(runID),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to queue: %w", err)
	}
	return nil
}

func (q *SQSQueue) Pop(ctx context.Context) (string, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     q.WaitSeconds,
		VisibilityTimeout:   q.VisibilitySeconds,
	})
	if err != nil {
		return "", err
	}
	if len(out.Messages) == 0 {
		return "", nil
	}

	msg := out.Messages[0]
	if _, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	}); err != nil {
		return "", fmt.Errorf("failed to delete message: %w", err)
	}
	return aws.ToString(msg.Body), nil
}

func (q *SQSQueue) Ping(ctx context.Context) error {
	_, err := q.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(q.queueURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessages},
	})
	return err
}
