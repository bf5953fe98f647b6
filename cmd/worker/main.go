package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/exposome-labs/causeway/backend/internal/queue"
	"github.com/exposome-labs/causeway/backend/internal/util"
	"github.com/exposome-labs/causeway/backend/pkg/biokb/rest"
	"github.com/exposome-labs/causeway/backend/pkg/discovery"
	"github.com/exposome-labs/causeway/backend/pkg/logger"
	"github.com/exposome-labs/causeway/backend/pkg/logger/console"
)

const maxMessageRetries = 10

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	// Discovery pipeline
	biokbClient := rest.NewClient(rest.NewClientParams{
		BaseURL:            util.GetEnv("BIOKB_URL"),
		APIKey:             util.GetEnv("BIOKB_API_KEY"),
		CallTimeout:        util.GetEnvDuration("BIOKB_CALL_TIMEOUT", 10*time.Second),
		MaxConcurrentCalls: int64(util.GetEnvNumeric("BIOKB_PARALLEL_REQ", 5)),
		CallsPerMinute:     int(util.GetEnvNumeric("BIOKB_CALLS_PER_MINUTE", 30)),
	})
	dctx := discovery.NewContext(discovery.NewContextParams{
		Client:          biokbClient,
		RequestDeadline: util.GetEnvDuration("DISCOVERY_DEADLINE", 5*time.Second),
		PairConcurrency: int(util.GetEnvNumeric("DISCOVERY_PAIR_CONCURRENCY", 5)),
	})
	orchestrator := discovery.NewOrchestrator(dctx)

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	queues := []string{queue.DiscoveryQueue}
	if err := queue.SetupQueues(ch, queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	logger.Info("Listening for messages")

	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	consumerTag := fmt.Sprintf("%s_consumer", queue.DiscoveryQueue)
	msgs, err := consumerCh.Consume(
		queue.DiscoveryQueue,
		consumerTag,
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.DiscoveryQueue, "err", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Info("Message channel closed", "queue", queue.DiscoveryQueue)
					return
				}

				startTime := time.Now()
				logger.Info("Received message", "queue", queue.DiscoveryQueue)

				processingErr := queue.ProcessDiscoveryMessage(ctx, orchestrator, ch, string(msg.Body))
				if processingErr != nil {
					logger.Error("Error processing message", "queue", queue.DiscoveryQueue, "err", processingErr)
					handleProcessingError(consumerCh, msg, queue.DiscoveryQueue)
				} else {
					if err := msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", queue.DiscoveryQueue)
				}

				logger.Info("Processing time", "duration", time.Since(startTime).Round(time.Millisecond))
				logger.Info("Waiting for next message")
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	if retries >= maxMessageRetries {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = retries + 1

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
