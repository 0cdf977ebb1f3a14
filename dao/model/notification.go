package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification is what the user sees. Created only by the outbox drain
// worker; never mutated except for the read flag.
type Notification struct {
	gorm.Model
	UserID   uint             `gorm:"not null;index"`
	Type     NotificationType `gorm:"type:varchar(32);not null"`
	Title    string           `gorm:"type:varchar(128);not null"`
	Message  string           `gorm:"type:varchar(512);not null"`
	Read     bool             `gorm:"not null;default:false"`
	Metadata datatypes.JSON   `gorm:"comment:type-specific payload (task id, workspace id, ...)"`
}

// NotificationOutbox is appended by primary mutations in their own
// transaction. The drain worker delivers rows (notification row, websocket
// emit, optional email) and stamps DeliveredAt; failed rows are retried on the
// next tick instead of failing the primary action.
type NotificationOutbox struct {
	gorm.Model
	RecipientID uint             `gorm:"not null;index"`
	Type        NotificationType `gorm:"type:varchar(32);not null"`
	Title       string           `gorm:"type:varchar(128);not null"`
	Message     string           `gorm:"type:varchar(512);not null"`
	Metadata    datatypes.JSON
	Email       *string `gorm:"type:varchar(128);comment:set when the event should also go out by mail"`

	// NotifiedAt marks the in-app part done independently of DeliveredAt, so
	// a retry after a failed email does not create a second notification row.
	NotifiedAt  *time.Time
	DeliveredAt *time.Time `gorm:"index"`
	Attempts    int        `gorm:"not null;default:0"`
	LastError   *string    `gorm:"type:varchar(512)"`
}

// PendingNotification reports whether the row still owes an in-app
// notification to its recipient.
func (o *NotificationOutbox) PendingNotification() bool {
	return o.RecipientID != 0 && o.NotifiedAt == nil
}
