package models

import "time"

// EmergencyContact is managed by the contact surface; the pipeline only reads
// the active ones.
type EmergencyContact struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       uint      `json:"userId" gorm:"index"`
	Name         string    `json:"name" gorm:"size:128"`
	Phone        string    `json:"phone" gorm:"size:32"`
	Email        string    `json:"email" gorm:"size:128"`
	Relationship string    `json:"relationship" gorm:"size:64"`
	IsPrimary    bool      `json:"isPrimary"`
	IsActive     bool      `json:"isActive" gorm:"index"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NotificationRecord is an append-only log line, one per contact per alert.
type NotificationRecord struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	PanicID   string    `json:"panicId,omitempty" gorm:"size:64;index"`
	Contact   string    `json:"contact" gorm:"size:128"`
	Phone     string    `json:"phone" gorm:"size:32"`
	Email     string    `json:"email" gorm:"size:128"`
	Status    string    `json:"status" gorm:"size:16"`
	Method    []string  `json:"method" gorm:"serializer:json"`
	MessageID string    `json:"messageId" gorm:"size:128"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"-"`
}

const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)
