package notify

import (
	gomail "gopkg.in/gomail.v2"

	"github.com/raids-lab/teamspace/pkg/config"
	"github.com/raids-lab/teamspace/pkg/logutils"
)

// Mailer sends outbox emails over SMTP. With no SMTP host configured it is a
// disabled stub that logs and drops.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer() *Mailer {
	conf := config.GetConfig()
	if conf.SMTP.Host == "" {
		logutils.Log.Warn("SMTP not configured, outbox emails will be dropped")
		return &Mailer{}
	}
	return &Mailer{
		dialer: gomail.NewDialer(conf.SMTP.Host, conf.SMTP.Port, conf.SMTP.User, conf.SMTP.Password),
		from:   conf.SMTP.From,
	}
}

func (m *Mailer) Enabled() bool {
	return m.dialer != nil
}

func (m *Mailer) Send(to, subject, body string) error {
	if !m.Enabled() {
		logutils.Log.Debugf("mailer disabled, dropping mail to %s", to)
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}
