package models

import "time"

const (
	StatusActive    = "active"
	StatusProcessed = "processed"
	StatusResolved  = "resolved"
	StatusCancelled = "cancelled"
)

// PanicEvent is one trigger and everything learned about it. Enrichment
// columns are nil until their stage completes.
type PanicEvent struct {
	ID                 uint                `json:"id" gorm:"primaryKey"`
	PanicID            string              `json:"panicId" gorm:"size:64;uniqueIndex"`
	UserID             uint                `json:"userId" gorm:"index"`
	UserEmail          string              `json:"userEmail" gorm:"size:128;index"`
	Location           *Location           `json:"location" gorm:"type:text"`
	Timestamp          string              `json:"timestamp" gorm:"size:64"`
	PhotoPresent       bool                `json:"photoPresent"`
	PhotoURL           string              `json:"photoUrl,omitempty" gorm:"size:512"`
	Status             string              `json:"status" gorm:"size:16;index"`
	ImageAnalysis      *ImageAnalysis      `json:"imageAnalysis" gorm:"type:text"`
	SafetyData         *SafetyData         `json:"safetyData" gorm:"type:text"`
	NotificationResult *NotificationResult `json:"notificationResult" gorm:"type:text"`
	Device             *ClientDevice       `json:"device,omitempty" gorm:"type:text"`
	CreatedAt          time.Time           `json:"createdAt" gorm:"index"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// EventPatch lists the columns a pipeline stage wants to set. Nil fields are
// left untouched.
type EventPatch struct {
	Status             *string
	PhotoURL           *string
	ImageAnalysis      *ImageAnalysis
	SafetyData         *SafetyData
	NotificationResult *NotificationResult
}

func (p EventPatch) columns() map[string]any {
	cols := make(map[string]any, 5)
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.PhotoURL != nil {
		cols["photo_url"] = *p.PhotoURL
	}
	if p.ImageAnalysis != nil {
		cols["image_analysis"] = p.ImageAnalysis
	}
	if p.SafetyData != nil {
		cols["safety_data"] = p.SafetyData
	}
	if p.NotificationResult != nil {
		cols["notification_result"] = p.NotificationResult
	}
	return cols
}

// Apply copies the patch onto an in-memory event.
func (p EventPatch) Apply(ev *PanicEvent) {
	if p.Status != nil {
		ev.Status = *p.Status
	}
	if p.PhotoURL != nil {
		ev.PhotoURL = *p.PhotoURL
	}
	if p.ImageAnalysis != nil {
		ev.ImageAnalysis = p.ImageAnalysis
	}
	if p.SafetyData != nil {
		ev.SafetyData = p.SafetyData
	}
	if p.NotificationResult != nil {
		ev.NotificationResult = p.NotificationResult
	}
}
