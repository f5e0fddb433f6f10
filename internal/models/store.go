package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrEventNotFound = errors.New("panic event not found")

// GormStore is the persistence adapter for the panic pipeline.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &EmergencyContact{}, &PanicEvent{}, &NotificationRecord{})
}

func (s *GormStore) DB() *gorm.DB { return s.db }

func (s *GormStore) ActiveContacts(ctx context.Context, userID uint) ([]EmergencyContact, error) {
	var contacts []EmergencyContact
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("is_primary DESC, id ASC").
		Find(&contacts).Error
	return contacts, err
}

func (s *GormStore) CreateEvent(ctx context.Context, ev *PanicEvent) error {
	return s.db.WithContext(ctx).Create(ev).Error
}

// UpdateEvent writes only the columns set in patch, keyed by panic id, so
// concurrent stages never overwrite each other's fields.
func (s *GormStore) UpdateEvent(ctx context.Context, panicID string, patch EventPatch) error {
	cols := patch.columns()
	if len(cols) == 0 {
		return nil
	}
	cols["updated_at"] = s.now()
	res := s.db.WithContext(ctx).Model(&PanicEvent{}).Where("panic_id = ?", panicID).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (s *GormStore) GetEvent(ctx context.Context, panicID string) (*PanicEvent, error) {
	var ev PanicEvent
	err := s.db.WithContext(ctx).Where("panic_id = ?", panicID).Take(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *GormStore) RecentEvents(ctx context.Context, userID uint, limit int) ([]PanicEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	var events []PanicEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// StaleActiveEvents returns events still active that were created before t.
func (s *GormStore) StaleActiveEvents(ctx context.Context, before time.Time) ([]PanicEvent, error) {
	var events []PanicEvent
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", StatusActive, before).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}

func (s *GormStore) AppendNotifications(ctx context.Context, records []NotificationRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(records, 100).Error
}

func (s *GormStore) NotificationsFor(ctx context.Context, panicID string) ([]NotificationRecord, error) {
	var records []NotificationRecord
	err := s.db.WithContext(ctx).Where("panic_id = ?", panicID).Order("id ASC").Find(&records).Error
	return records, err
}
