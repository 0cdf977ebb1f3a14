package notify

import (
	"context"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/raids-lab/teamspace/dao/model"
	"github.com/raids-lab/teamspace/pkg/logutils"
)

const (
	drainBatchSize = 100
	maxAttempts    = 10
)

// Drainer delivers pending outbox rows: a notification row for in-app
// recipients, a websocket emit, and an email when the row carries an address.
type Drainer struct {
	db     *gorm.DB
	hub    *Hub
	mailer *Mailer
}

func NewDrainer(db *gorm.DB, hub *Hub, mailer *Mailer) *Drainer {
	return &Drainer{db: db, hub: hub, mailer: mailer}
}

// Drain processes one batch. Failed rows keep their error and are retried on
// the next tick until maxAttempts; they are never pushed back to the caller
// of the primary mutation.
func (d *Drainer) Drain(ctx context.Context) {
	var rows []model.NotificationOutbox
	err := d.db.WithContext(ctx).
		Where("delivered_at IS NULL AND attempts < ?", maxAttempts).
		Order("id").
		Limit(drainBatchSize).
		Find(&rows).Error
	if err != nil {
		logutils.Log.Errorf("outbox query failed: %v", err)
		return
	}

	for i := range rows {
		row := &rows[i]
		if err := d.deliver(ctx, row); err != nil {
			logutils.Log.WithFields(logutils.Fields{"outbox": row.ID}).
				Warnf("outbox delivery failed (attempt %d): %v", row.Attempts+1, err)
			d.db.WithContext(ctx).Model(row).Updates(map[string]any{
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": lo.ToPtr(err.Error()),
			})
			continue
		}
		d.db.WithContext(ctx).Model(row).Update("delivered_at", time.Now())
	}
}

func (d *Drainer) deliver(ctx context.Context, row *model.NotificationOutbox) error {
	if row.PendingNotification() {
		notification := model.Notification{
			UserID:   row.RecipientID,
			Type:     row.Type,
			Title:    row.Title,
			Message:  row.Message,
			Metadata: row.Metadata,
		}
		if err := d.db.WithContext(ctx).Create(&notification).Error; err != nil {
			return err
		}
		// Stamp before the email so a mail failure retries only the mail.
		now := time.Now()
		if err := d.db.WithContext(ctx).Model(row).Update("notified_at", now).Error; err != nil {
			return err
		}
		row.NotifiedAt = &now
		d.hub.EmitToUser(row.RecipientID, Event{Kind: "notification", Payload: notification})
	}
	if row.Email != nil {
		if err := d.mailer.Send(*row.Email, row.Title, row.Message); err != nil {
			return err
		}
	}
	return nil
}
