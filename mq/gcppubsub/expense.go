// Package gcppubsub implements the expense message queues on GCP Pub/Sub
// with one topic per ledger action and per-trip filtered subscriptions.
package gcppubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"

	"tripledger/mq/mq"
)

const (
	tripIDAttribute = "tripId"
)

// subscriptionInfo holds details about an active Pub/Sub subscription.
type subscriptionInfo struct {
	gcpSubscription *pubsub.Subscription
	cancel          context.CancelFunc
}

// PubSubExpenseMessageQueue implements mq.ExpenseMessageQueue on one
// Pub/Sub topic. Subscriptions are created with a per-trip attribute filter
// and deleted again on DeSubscribe.
type PubSubExpenseMessageQueue struct {
	action              mq.Action
	client              *pubsub.Client
	topic               *pubsub.Topic
	activeSubscriptions map[uuid.UUID]*subscriptionInfo
	subscriptionsMutex  sync.Mutex
	ctx                 context.Context
}

// NewPubSubExpenseMessageQueue creates the queue for one ledger action,
// creating the underlying topic when it does not exist yet.
func NewPubSubExpenseMessageQueue(ctx context.Context, client *pubsub.Client, action mq.Action) (*PubSubExpenseMessageQueue, error) {
	if client == nil {
		return nil, fmt.Errorf("GCP Pub/Sub client is nil")
	}

	topicID := topicIDForAction(action)
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existence of topic %s: %w", topicID, err)
	}
	if !exists {
		topic, err = client.CreateTopic(ctx, topicID)
		if err != nil {
			return nil, fmt.Errorf("failed to create topic %s: %w", topicID, err)
		}
		log.Printf("Created Pub/Sub topic: %s", topicID)
	}

	return &PubSubExpenseMessageQueue{
		action:              action,
		client:              client,
		topic:               topic,
		activeSubscriptions: make(map[uuid.UUID]*subscriptionInfo),
		ctx:                 ctx,
	}, nil
}

func topicIDForAction(action mq.Action) string {
	switch action {
	case mq.ActionCreate:
		return "trip-expense-create"
	case mq.ActionUpdate:
		return "trip-expense-update"
	case mq.ActionDelete:
		return "trip-expense-delete"
	}
	return fmt.Sprintf("trip-expense-action-%d", action)
}

// GetAction returns the action associated with this queue.
func (s *PubSubExpenseMessageQueue) GetAction() mq.Action {
	return s.action
}

// Publish sends a message to the topic with the trip id as an attribute.
func (s *PubSubExpenseMessageQueue) Publish(msg mq.ExpenseMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal ExpenseMessage: %w", err)
	}

	pubsubMsg := &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			tripIDAttribute: msg.GetTopic().String(),
		},
	}

	result := s.topic.Publish(s.ctx, pubsubMsg)
	if _, err = result.Get(s.ctx); err != nil {
		return fmt.Errorf("failed to publish ExpenseMessage to topic %s: %w", s.topic.ID(), err)
	}
	return nil
}

// Subscribe creates a filtered subscription on GCP and starts listening.
func (s *PubSubExpenseMessageQueue) Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan mq.ExpenseMessage, error) {
	subscriptionID := uuid.New() // internal id for tracking

	gcpSubName := fmt.Sprintf("sub-%s-%s-%s", s.topic.ID(), tripID.String(), subscriptionID.String())

	config := pubsub.SubscriptionConfig{
		Topic:            s.topic,
		Filter:           fmt.Sprintf("attributes.%s = \"%s\"", tripIDAttribute, tripID.String()),
		ExpirationPolicy: 24 * time.Hour,
		AckDeadline:      10 * time.Second,
	}

	gcpSub, err := s.client.CreateSubscription(s.ctx, gcpSubName, config)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to create GCP subscription %s: %w", gcpSubName, err)
	}

	msgChan := make(chan mq.ExpenseMessage, 5)
	receiveCtx, cancel := context.WithCancel(s.ctx)

	s.subscriptionsMutex.Lock()
	s.activeSubscriptions[subscriptionID] = &subscriptionInfo{
		gcpSubscription: gcpSub,
		cancel:          cancel,
	}
	s.subscriptionsMutex.Unlock()

	go func() {
		defer func() {
			s.subscriptionsMutex.Lock()
			delete(s.activeSubscriptions, subscriptionID)
			s.subscriptionsMutex.Unlock()

			// Delete the subscription from GCP to prevent resource leaks.
			if deleteErr := gcpSub.Delete(context.Background()); deleteErr != nil {
				log.Printf("Error deleting GCP subscription %s: %v", gcpSub.ID(), deleteErr)
			}
			close(msgChan)
		}()

		// Receive blocks until the context is cancelled.
		err := gcpSub.Receive(receiveCtx, func(ctx context.Context, pubsubMsg *pubsub.Message) {
			pubsubMsg.Ack()

			var msg mq.ExpenseMessage
			if err := json.Unmarshal(pubsubMsg.Data, &msg); err != nil {
				log.Printf("Error unmarshaling ExpenseMessage for %s: %v. Body: %s", subscriptionID, err, string(pubsubMsg.Data))
				return
			}

			select {
			case msgChan <- msg:
			case <-ctx.Done():
			}
		})
		if err != nil && receiveCtx.Err() == nil {
			log.Printf("Pub/Sub Receive for %s returned: %v", subscriptionID, err)
		}
	}()

	return subscriptionID, msgChan, nil
}

// DeSubscribe cancels the receiver; the goroutine deletes the GCP
// subscription on exit.
func (s *PubSubExpenseMessageQueue) DeSubscribe(id uuid.UUID) error {
	s.subscriptionsMutex.Lock()
	info, ok := s.activeSubscriptions[id]
	s.subscriptionsMutex.Unlock()

	if !ok {
		return fmt.Errorf("subscription with ID %s not found", id)
	}
	info.cancel()
	return nil
}

// PubSubExpenseMessageQueueWrapper hands out one Pub/Sub queue per action.
type PubSubExpenseMessageQueueWrapper struct {
	ExpenseMQArray [mq.ActionCnt]mq.ExpenseMessageQueue
}

func (wrapper *PubSubExpenseMessageQueueWrapper) GetExpenseMessageQueue(action mq.Action) mq.ExpenseMessageQueue {
	if action < 0 || action >= mq.ActionCnt {
		return nil
	}
	return wrapper.ExpenseMQArray[action]
}

// NewPubSubExpenseMessageQueueWrapper creates queues for every ledger action
// over one Pub/Sub client.
func NewPubSubExpenseMessageQueueWrapper(ctx context.Context, client *pubsub.Client) (mq.ExpenseMessageQueueWrapper, error) {
	wrapper := PubSubExpenseMessageQueueWrapper{}
	for action := mq.Action(0); action < mq.ActionCnt; action++ {
		q, err := NewPubSubExpenseMessageQueue(ctx, client, action)
		if err != nil {
			return nil, fmt.Errorf("failed to create Pub/Sub queue for action %d: %w", action, err)
		}
		wrapper.ExpenseMQArray[action] = q
	}
	return &wrapper, nil
}
