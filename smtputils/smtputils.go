package smtputils

import (
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/pkg/errors"
	"github.com/scorredoira/email"

	"github.com/derekvan/canvas-markdown-tools/config"
	"github.com/derekvan/canvas-markdown-tools/recon"
)

var Log = config.Cfg().GetLogger()

// SendHTMLEmail sends one HTML message through the configured SMTP relay.
func SendHTMLEmail(subject, body string, to []string) error {
	cfg := config.Cfg()
	if cfg.SMTPHost == "" {
		return errors.New("smtp host not configured")
	}
	m := email.NewHTMLMessage(subject, body)
	m.From = mail.Address{Name: cfg.SMTPFromName, Address: cfg.SMTPFromAddress}
	m.To = to
	auth := smtp.PlainAuth("", cfg.SMTPUserName, cfg.SMTPPassword, cfg.SMTPHost)
	if err := email.Send(cfg.SMTPConnectionString, auth, m); err != nil {
		return errors.Wrap(err, "unable to send email")
	}
	return nil
}

// SendSyncReport mails a per-entity outcome table for a finished sync to the
// configured recipient. With no recipient configured it is a silent no-op, so
// callers never need to care whether reporting is on.
func SendSyncReport(courseName string, sum *recon.Summary) error {
	recipient := config.Cfg().SMTPReportRecipient
	if recipient == "" {
		return nil
	}
	subject := fmt.Sprintf("Course sync report: %s (%d created, %d updated, %d failed)",
		courseName, sum.Created, sum.Updated, sum.Failed)
	if err := SendHTMLEmail(subject, reportBody(sum), []string{recipient}); err != nil {
		return err
	}
	Log.Info("Sent sync report to ", recipient)
	return nil
}

func reportBody(sum *recon.Summary) string {
	var b strings.Builder
	b.WriteString("<h2>Sync summary</h2>")
	fmt.Fprintf(&b, "<p>Started %s, finished %s.</p>",
		sum.StartedAt.Format("2006-01-02 15:04:05"), sum.FinishedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "<p>%d created, %d updated, %d unchanged, %d skipped, %d failed.</p>",
		sum.Created, sum.Updated, sum.Unchanged, sum.Skipped, sum.Failed)
	b.WriteString("<table border=\"1\" cellpadding=\"4\"><tr><th>Entity</th><th>Title</th><th>Action</th><th>Detail</th></tr>")
	for _, o := range sum.Outcomes {
		detail := strings.Join(o.Fields, ", ")
		if o.Reason != "" {
			detail = o.Reason
		}
		if o.Err != nil {
			detail = o.Err.Error()
		}
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			o.Entity, o.Title, o.Action.String(), detail)
	}
	b.WriteString("</table>")
	return b.String()
}
