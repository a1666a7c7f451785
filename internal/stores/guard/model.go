package guard

import (
	"time"
)

// RequestModel represents the database model for a processed request id
type RequestModel struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;index"`

	RequestID string `json:"request_id" gorm:"column:request_id;uniqueIndex;not null;size:255"`
}

// TableName sets the table name for GORM
func (RequestModel) TableName() string {
	return "processed_requests"
}
