// Package cronjob schedules the background workers: the notification outbox
// drain and the invitation expiry sweep.
package cronjob

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/raids-lab/teamspace/dao/model"
	"github.com/raids-lab/teamspace/pkg/config"
	"github.com/raids-lab/teamspace/pkg/logutils"
	"github.com/raids-lab/teamspace/pkg/notify"
)

type Manager struct {
	db      *gorm.DB
	drainer *notify.Drainer
	cron    *cron.Cron
}

func NewManager(db *gorm.DB, drainer *notify.Drainer) *Manager {
	return &Manager{
		db:      db,
		drainer: drainer,
		cron:    cron.New(cron.WithLocation(time.Local)),
	}
}

func (m *Manager) Start() error {
	conf := config.GetConfig()
	if _, err := m.cron.AddFunc(conf.Outbox.DrainSpec, func() {
		m.drainer.Drain(context.Background())
	}); err != nil {
		return err
	}
	if _, err := m.cron.AddFunc(conf.Outbox.SweepSpec, m.sweepInvitations); err != nil {
		return err
	}
	m.cron.Start()
	logutils.Log.Info("cron workers started")
	return nil
}

func (m *Manager) Stop() {
	<-m.cron.Stop().Done()
}

// sweepInvitations materializes the expired status for pending invitations
// past their deadline. Read paths already treat such rows as expired; the
// sweep only keeps the table tidy.
func (m *Manager) sweepInvitations() {
	res := m.db.Model(&model.WorkspaceInvitation{}).
		Where("status = ? AND expires_at < ?", model.InvitationPending, time.Now()).
		Update("status", model.InvitationExpired)
	if res.Error != nil {
		logutils.Log.Errorf("invitation sweep failed: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		logutils.Log.Infof("expired %d invitation(s)", res.RowsAffected)
	}
}
