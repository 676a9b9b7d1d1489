package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"expensetracker/internal/core"
)

// Actions carried by a ChangeMessage.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionJoined  = "joined"
	ActionQuit    = "quit"
)

// Entities a ChangeMessage can refer to.
const (
	EntitySpace        = "space"
	EntityExpense      = "expense"
	EntityCategory     = "category"
	EntityCollaborator = "collaborator"
)

var ErrInvalidMessage = errors.New("invalid change message")

// ChangeMessage announces a successful mutation of a space. It carries ids
// only; consumers fetch the current state from the API.
type ChangeMessage struct {
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	SpaceID   core.ID   `json:"space_id"`
	EntityID  core.ID   `json:"entity_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeMessage creates a message stamped with the current time
func NewChangeMessage(action, entity string, spaceID, entityID core.ID, username string) *ChangeMessage {
	return &ChangeMessage{
		Action:    action,
		Entity:    entity,
		SpaceID:   spaceID,
		EntityID:  entityID,
		Username:  username,
		Timestamp: time.Now().UTC(),
	}
}

// SpaceRemoved reports whether the space itself is gone for the sender.
func (m *ChangeMessage) SpaceRemoved() bool {
	return m.Entity == EntitySpace && (m.Action == ActionDeleted || m.Action == ActionQuit)
}

func (m *ChangeMessage) Validate() error {
	if m.SpaceID.IsZero() {
		return fmt.Errorf("%w: missing space_id", ErrInvalidMessage)
	}
	switch m.Action {
	case ActionCreated, ActionUpdated, ActionDeleted, ActionJoined, ActionQuit:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidMessage, m.Action)
	}
	switch m.Entity {
	case EntitySpace, EntityExpense, EntityCategory, EntityCollaborator:
	default:
		return fmt.Errorf("%w: unknown entity %q", ErrInvalidMessage, m.Entity)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and validates a message.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
