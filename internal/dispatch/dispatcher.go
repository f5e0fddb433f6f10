package dispatch

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"GuardianPath/internal/models"
	"GuardianPath/pkg/notification"

	"go.uber.org/zap"
)

const errNoRecipients = "No valid email addresses found"

type AlertUser struct {
	ID    uint
	Name  string
	Email string
}

// AlertPayload is everything the alert mentions. Enrichment fields may be nil
// or failure markers.
type AlertPayload struct {
	PanicID       string
	User          AlertUser
	Location      *models.Location
	Timestamp     string
	ImageAnalysis *models.ImageAnalysis
	SafetyData    *models.SafetyData
}

type NotificationLog interface {
	AppendNotifications(ctx context.Context, records []models.NotificationRecord) error
}

type Dispatcher struct {
	transport notification.Transport
	log       NotificationLog
	logger    *zap.Logger
	now       func() time.Time
}

func NewDispatcher(transport notification.Transport, log NotificationLog, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{transport: transport, log: log, logger: logger, now: time.Now}
}

type recipient struct {
	contact models.EmergencyContact
	address string
}

// Dispatch sends one alert to every contact with a usable email address.
// Delivery is all-or-nothing for the batch. It never returns nil.
func (d *Dispatcher) Dispatch(ctx context.Context, payload AlertPayload, contacts []models.EmergencyContact) *models.NotificationResult {
	recipients := resolveRecipients(contacts)
	if len(recipients) == 0 {
		d.logger.Warn("no contact has a valid email", zap.String("panic_id", payload.PanicID), zap.Int("contacts", len(contacts)))
		return &models.NotificationResult{
			Success:       false,
			Error:         errNoRecipients,
			Message:       "Emergency contacts could not be reached by email",
			Notifications: []models.NotificationRecord{},
		}
	}

	html, text, err := Render(payload)
	if err != nil {
		d.logger.Error("render alert", zap.String("panic_id", payload.PanicID), zap.Error(err))
		return &models.NotificationResult{
			Success:       false,
			Error:         "Failed to render alert",
			Message:       "Notification system encountered an error",
			Notifications: []models.NotificationRecord{},
		}
	}

	to := uniqueAddresses(recipients)
	now := d.now()
	messageID, sendErr := d.transport.Send(ctx, &notification.Mail{
		To:      to,
		Subject: Subject(payload, now),
		HTML:    html,
		Text:    text,
	})

	status := models.DeliverySent
	if sendErr != nil {
		status = models.DeliveryFailed
		messageID = ""
		d.logger.Warn("alert email failed", zap.String("panic_id", payload.PanicID), zap.Strings("to", to), zap.Error(sendErr))
	}

	records := make([]models.NotificationRecord, 0, len(recipients))
	for _, r := range recipients {
		method := []string{"email"}
		if strings.TrimSpace(r.contact.Phone) != "" {
			method = append(method, "sms")
		}
		records = append(records, models.NotificationRecord{
			PanicID:   payload.PanicID,
			Contact:   r.contact.Name,
			Phone:     r.contact.Phone,
			Email:     r.address,
			Status:    status,
			Method:    method,
			MessageID: messageID,
			Timestamp: now,
		})
	}
	if d.log != nil {
		if err := d.log.AppendNotifications(ctx, records); err != nil {
			d.logger.Warn("append notification log", zap.String("panic_id", payload.PanicID), zap.Error(err))
		}
	}

	result := &models.NotificationResult{Notifications: records}
	if sendErr != nil {
		result.Success = false
		result.Error = "Email delivery failed"
		result.Message = "Failed to send emergency alerts"
		return result
	}
	result.Success = true
	result.ContactsNotified = len(records)
	result.EmailsSent = len(to)
	result.Message = fmt.Sprintf("Emergency alerts sent to %d contacts", len(records))
	return result
}

func resolveRecipients(contacts []models.EmergencyContact) []recipient {
	var out []recipient
	for _, c := range contacts {
		raw := strings.TrimSpace(c.Email)
		if raw == "" {
			continue
		}
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			continue
		}
		out = append(out, recipient{contact: c, address: addr.Address})
	}
	return out
}

func uniqueAddresses(rs []recipient) []string {
	seen := make(map[string]bool, len(rs))
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		key := strings.ToLower(r.address)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r.address)
	}
	return out
}
