package entities

import (
	"time"

	"github.com/google/uuid"
)

// EntityChangeType describes what happened to a searchable entity
type EntityChangeType string

const (
	EntityChangeCreated EntityChangeType = "created"
	EntityChangeUpdated EntityChangeType = "updated"
	EntityChangeDeleted EntityChangeType = "deleted"
	EntityChangeHidden  EntityChangeType = "hidden"
)

// EntityChangedEvent is published by the services that own the entities
type EntityChangedEvent struct {
	ID         string           `json:"id"`
	EntityType EntityType       `json:"entity_type"`
	EntityID   string           `json:"entity_id"`
	Change     EntityChangeType `json:"change"`
	Timestamp  time.Time        `json:"timestamp"`
}

// NewEntityChangedEvent creates a new entity change event
func NewEntityChangedEvent(entityType EntityType, entityID string, change EntityChangeType) *EntityChangedEvent {
	return &EntityChangedEvent{
		ID:         uuid.New().String(),
		EntityType: entityType,
		EntityID:   entityID,
		Change:     change,
		Timestamp:  time.Now(),
	}
}

// RemovesContent reports whether cached results may now show content that must disappear
func (e *EntityChangedEvent) RemovesContent() bool {
	return e.Change == EntityChangeDeleted || e.Change == EntityChangeHidden
}
