package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/exposome-labs/causeway/backend/internal/util"
	"github.com/exposome-labs/causeway/backend/pkg/discovery"
	"github.com/exposome-labs/causeway/backend/pkg/logger"
)

// ProcessDiscoveryMessage handles one discovery request from the queue: it
// decodes the request, runs the orchestrator, and publishes the response to
// the results topic.
//
// An undecodable body is a permanent failure and is returned as an error so
// the consumer routes it to the retry/DLQ path. A business-error response
// (NO_CAUSAL_PATH and friends) is still a successfully handled message; it
// is published like any other result and the message is acked.
func ProcessDiscoveryMessage(
	ctx context.Context,
	orchestrator *discovery.Orchestrator,
	ch *amqp091.Channel,
	msg string,
) error {
	request := new(discovery.Request)
	if err := json.Unmarshal([]byte(msg), request); err != nil {
		return fmt.Errorf("failed to decode discovery request: %w", err)
	}

	response := orchestrator.Discover(ctx, *request)

	body, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to encode discovery response: %w", err)
	}

	err = util.RetryErr(3, func() error {
		return PublishTopic(ch, ResultsTopic, body)
	})
	if err != nil {
		return fmt.Errorf("failed to publish discovery result: %w", err)
	}

	logger.Info("[Queue] Discovery result published",
		"request", response.RequestID,
		"status", response.Status)
	return nil
}
