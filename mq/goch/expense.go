// Package goch implements the expense message queues with in-process Go
// channels. It is the default backend for dev and tests; a single process
// sees every event it publishes.
package goch

import (
	"sync"

	"github.com/google/uuid"

	"tripledger/mq/mq"
)

const subscriberBufferSize = 16

type subscriber struct {
	tripID  uuid.UUID
	channel chan mq.ExpenseMessage
}

// ChannelExpenseMessageQueue fans each published message out to every
// subscriber of the message's trip. Slow subscribers with a full buffer are
// skipped rather than blocking the publisher.
type ChannelExpenseMessageQueue struct {
	action      mq.Action
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*subscriber
}

// NewChannelExpenseMessageQueue creates a queue for one ledger action.
func NewChannelExpenseMessageQueue(action mq.Action) *ChannelExpenseMessageQueue {
	return &ChannelExpenseMessageQueue{
		action:      action,
		subscribers: make(map[uuid.UUID]*subscriber),
	}
}

// GetAction returns the action associated with this queue.
func (q *ChannelExpenseMessageQueue) GetAction() mq.Action {
	return q.action
}

// Publish delivers the message to every subscriber of its trip.
func (q *ChannelExpenseMessageQueue) Publish(msg mq.ExpenseMessage) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, sub := range q.subscribers {
		if sub.tripID != msg.TripID {
			continue
		}
		select {
		case sub.channel <- msg:
		default:
			// Subscriber buffer full; drop for that subscriber only.
		}
	}
	return nil
}

// Subscribe registers a consumer for one trip's events.
func (q *ChannelExpenseMessageQueue) Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan mq.ExpenseMessage, error) {
	sub := &subscriber{
		tripID:  tripID,
		channel: make(chan mq.ExpenseMessage, subscriberBufferSize),
	}
	id := uuid.New()

	q.mu.Lock()
	q.subscribers[id] = sub
	q.mu.Unlock()

	return id, sub.channel, nil
}

// DeSubscribe removes a subscriber and closes its channel.
func (q *ChannelExpenseMessageQueue) DeSubscribe(id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	sub, ok := q.subscribers[id]
	if !ok {
		return ErrSubscriberNotFound
	}
	delete(q.subscribers, id)
	close(sub.channel)
	return nil
}

// GoChanExpenseMessageQueueWrapper hands out one channel queue per action.
type GoChanExpenseMessageQueueWrapper struct {
	ExpenseMQArray [mq.ActionCnt]mq.ExpenseMessageQueue
}

func (wrapper *GoChanExpenseMessageQueueWrapper) GetExpenseMessageQueue(action mq.Action) mq.ExpenseMessageQueue {
	if action < 0 || action >= mq.ActionCnt {
		return nil
	}
	return wrapper.ExpenseMQArray[action]
}

// NewGoChanExpenseMessageQueueWrapper creates queues for every ledger action.
func NewGoChanExpenseMessageQueueWrapper() mq.ExpenseMessageQueueWrapper {
	wrapper := GoChanExpenseMessageQueueWrapper{}
	for action := mq.Action(0); action < mq.ActionCnt; action++ {
		wrapper.ExpenseMQArray[action] = NewChannelExpenseMessageQueue(action)
	}
	return &wrapper
}

// --- Error Definitions ---
type QueueError string

func (e QueueError) Error() string {
	return string(e)
}

const (
	ErrSubscriberNotFound QueueError = "subscriber not found"
)
