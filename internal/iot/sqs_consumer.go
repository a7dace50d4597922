package iot

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/idiarso/linux-park-sub001/internal/config"
)

// SQSConsumer long-polls the device event queue and hands each message to
// the router. Messages that fail processing are left on the queue and come
// back after the visibility timeout.
type SQSConsumer struct {
	sqsClient *sqs.Client
	queueURL  string
	router    *EventRouter
}

func NewSQSConsumer(client *sqs.Client, cfg *config.Config, router *EventRouter) *SQSConsumer {
	return &SQSConsumer{
		sqsClient: client,
		queueURL:  cfg.SQSEventQueueURL,
		router:    router,
	}
}

func (c *SQSConsumer) Start(ctx context.Context) {
	log.Printf("SQSConsumer: listening on queue %s", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			log.Println("SQSConsumer: context cancelled, stopping")
			return
		default:
			receiveInput := &sqs.ReceiveMessageInput{
				QueueUrl:            &c.queueURL,
				MaxNumberOfMessages: 10,
				WaitTimeSeconds:     20,
				VisibilityTimeout:   60,
			}

			result, err := c.sqsClient.ReceiveMessage(ctx, receiveInput)
			if err != nil {
				log.Printf("SQSConsumer: receive failed: %v", err)
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}

			for _, message := range result.Messages {
				if message.Body == nil {
					c.deleteMessage(ctx, message.ReceiptHandle)
					continue
				}
				if err := c.router.HandleDeviceEvent(ctx, *message.Body); err != nil {
					log.Printf("SQSConsumer: processing message %s: %v", *message.MessageId, err)
					continue
				}
				c.deleteMessage(ctx, message.ReceiptHandle)
			}
		}
	}
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		return
	}
	_, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		log.Printf("SQSConsumer: deleting message: %v", err)
	}
}
