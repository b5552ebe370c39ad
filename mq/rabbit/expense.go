// Package rabbit implements the expense message queues on RabbitMQ with one
// durable topic exchange and one queue per ledger action.
package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"tripledger/mq/mq"
)

const (
	exchangeName = "trip_expense_events_exchange"
)

const (
	expenseCreateRoutingKey = "expense.create"
	expenseUpdateRoutingKey = "expense.update"
	expenseDeleteRoutingKey = "expense.delete"
)

func getRoutingKey(action mq.Action) string {
	switch action {
	case mq.ActionCreate:
		return expenseCreateRoutingKey
	case mq.ActionUpdate:
		return expenseUpdateRoutingKey
	case mq.ActionDelete:
		return expenseDeleteRoutingKey
	}
	return ""
}

type consumer struct {
	tripID  uuid.UUID
	channel chan mq.ExpenseMessage
}

// rabbitExpenseMessageQueue implements mq.ExpenseMessageQueue for RabbitMQ.
type rabbitExpenseMessageQueue struct {
	action     mq.Action
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	queueName  string
	routingKey string
	mu         sync.RWMutex // protects the consumers map
	consumers  map[uuid.UUID]*consumer
}

// NewRabbitExpenseMessageQueue creates a RabbitMQ-backed queue for one
// ledger action.
func NewRabbitExpenseMessageQueue(action mq.Action, conn *amqp091.Connection) (mq.ExpenseMessageQueue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	queueName := fmt.Sprintf("trip_expense_%d_queue", action)
	routingKey := getRoutingKey(action)

	if err := DeclareQueueAndExchange(ch, queueName, exchangeName, routingKey); err != nil {
		ch.Close()
		return nil, err
	}

	return &rabbitExpenseMessageQueue{
		action:     action,
		conn:       conn,
		channel:    ch,
		queueName:  queueName,
		routingKey: routingKey,
		consumers:  make(map[uuid.UUID]*consumer),
	}, nil
}

// GetAction returns the action associated with this queue.
func (q *rabbitExpenseMessageQueue) GetAction() mq.Action {
	return q.action
}

// Publish sends an ExpenseMessage to the exchange.
func (q *rabbitExpenseMessageQueue) Publish(msg mq.ExpenseMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = q.channel.PublishWithContext(ctx,
		exchangeName, // exchange
		q.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Subscribe registers a consumer for one trip's events. Messages for other
// trips arriving on the shared queue are dropped for this consumer.
func (q *rabbitExpenseMessageQueue) Subscribe(tripID uuid.UUID) (uuid.UUID, <-chan mq.ExpenseMessage, error) {
	msgs, err := q.channel.Consume(
		q.queueName, // queue
		"",          // consumer
		true,        // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to register a consumer: %w", err)
	}

	subscriberID := uuid.New()
	sub := &consumer{tripID: tripID, channel: make(chan mq.ExpenseMessage)}

	q.mu.Lock()
	q.consumers[subscriberID] = sub
	q.mu.Unlock()

	go func() {
		defer func() {
			q.mu.Lock()
			if c, ok := q.consumers[subscriberID]; ok {
				close(c.channel)
				delete(q.consumers, subscriberID)
			}
			q.mu.Unlock()
		}()

		for d := range msgs {
			var msg mq.ExpenseMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				log.Printf("Failed to unmarshal ExpenseMessage: %v", err)
				continue
			}
			if msg.TripID != tripID {
				continue
			}

			q.mu.RLock()
			c, ok := q.consumers[subscriberID]
			q.mu.RUnlock()
			if !ok {
				// Consumer was unsubscribed while the message was in flight.
				return
			}
			select {
			case c.channel <- msg:
			case <-time.After(1 * time.Second):
				log.Printf("Timeout sending message to ExpenseMessage consumer %s. Skipping.", subscriberID)
			}
		}
	}()

	return subscriberID, sub.channel, nil
}

// DeSubscribe removes a subscriber by its ID.
func (q *rabbitExpenseMessageQueue) DeSubscribe(subscriberID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if c, ok := q.consumers[subscriberID]; ok {
		delete(q.consumers, subscriberID)
		close(c.channel)
		return nil
	}
	return fmt.Errorf("consumer with ID %s not found for queue %s", subscriberID, q.queueName)
}

// RabbitExpenseMessageQueueWrapper hands out one RabbitMQ queue per action.
type RabbitExpenseMessageQueueWrapper struct {
	ExpenseMQArray [mq.ActionCnt]mq.ExpenseMessageQueue
}

func (wrapper *RabbitExpenseMessageQueueWrapper) GetExpenseMessageQueue(action mq.Action) mq.ExpenseMessageQueue {
	if action < 0 || action >= mq.ActionCnt {
		return nil
	}
	return wrapper.ExpenseMQArray[action]
}

// NewRabbitExpenseMessageQueueWrapper declares queues for every ledger
// action over one connection.
func NewRabbitExpenseMessageQueueWrapper(conn *amqp091.Connection) (mq.ExpenseMessageQueueWrapper, error) {
	wrapper := RabbitExpenseMessageQueueWrapper{}
	for action := mq.Action(0); action < mq.ActionCnt; action++ {
		q, err := NewRabbitExpenseMessageQueue(action, conn)
		if err != nil {
			return nil, fmt.Errorf("failed to create queue for action %d: %w", action, err)
		}
		wrapper.ExpenseMQArray[action] = q
	}
	return &wrapper, nil
}
