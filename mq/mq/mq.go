package mq

import "github.com/google/uuid"

// TopicProvider exposes the topic id a message routes by.
type TopicProvider interface {
	GetTopic() uuid.UUID
}

// ExpenseMessageQueueWrapper hands out one queue per ledger action.
type ExpenseMessageQueueWrapper interface {
	GetExpenseMessageQueue(action Action) ExpenseMessageQueue
}

// ExpenseMessageQueue is one action's event stream. Subscribe filters by
// trip; the returned id identifies the subscription for DeSubscribe.
type ExpenseMessageQueue interface {
	GetAction() Action
	Publish(msg ExpenseMessage) error
	Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan ExpenseMessage, error)
	DeSubscribe(id uuid.UUID) error
}
