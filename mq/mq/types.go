package mq

import (
	"fmt"

	"github.com/google/uuid"
)

// Mode selects the message queue backend at startup.
type Mode string

const (
	ModeGoChan Mode = "go_chan"
	ModeRabbit Mode = "rabbitmq"
	ModePubSub Mode = "gcp_pub_sub"
)

type Action int

const (
	ActionCreate Action = iota
	ActionUpdate
	ActionDelete
	ActionCnt
)

var actionNames = []string{"create", "update", "delete"}

func (a Action) String() string {
	if a < 0 || a >= ActionCnt {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// ExpenseMessage is the event published after every accepted ledger write.
// Amounts travel as integer minor units; the wire never carries floats.
type ExpenseMessage struct {
	TripID           uuid.UUID `json:"tripId"`
	ID               uuid.UUID `json:"id"`
	Description      string    `json:"description"`
	AmountMinorUnits int64     `json:"amountMinorUnits"`
	Currency         string    `json:"currency"`
	PaidBy           string    `json:"paidBy"`
	// Changed lists the record fields an update touched; empty for create
	// and delete events.
	Changed []string `json:"changed,omitempty"`
}

// GetTopic routes the message by its trip.
func (m ExpenseMessage) GetTopic() uuid.UUID {
	return m.TripID
}
