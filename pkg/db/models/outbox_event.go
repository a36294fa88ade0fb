package models

import (
	"encoding/json"
	"time"

	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	"github.com/google/uuid"
)

// OutboxEvent is a domain event written in the same transaction as the state
// change it describes. The publisher drains unpublished rows in order.
type OutboxEvent struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	EventType     enums.EventType     `gorm:"column:event_type;type:text;not null"`
	AggregateType enums.AggregateType `gorm:"column:aggregate_type;type:text;not null"`
	AggregateID   uuid.UUID           `gorm:"column:aggregate_id;type:uuid;not null;index"`
	Payload       json.RawMessage     `gorm:"column:payload;type:jsonb;not null"`
	Attempts      int                 `gorm:"column:attempts;not null;default:0"`
	PublishedAt   *time.Time          `gorm:"column:published_at;index"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}
