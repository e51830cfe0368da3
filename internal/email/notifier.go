package email

import (
	"fmt"
	"html"
	"log/slog"

	"outpass-control/internal/config"
	"outpass-control/internal/storage"
)

// Notifier sends outpass lifecycle mail. Delivery is best effort; a
// failed send is logged and the transition stands.
type Notifier struct {
	client  *Client
	baseURL string
	logger  *slog.Logger
	enabled bool
}

func NewNotifier(cfg *config.SMTPConfig, baseURL string) *Notifier {
	return &Notifier{
		client:  NewClient(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.From),
		baseURL: baseURL,
		logger:  slog.With("component", "email"),
		enabled: cfg.Enabled,
	}
}

const timeFormat = "Mon, 02 Jan 2006 15:04"

func (n *Notifier) OutpassSubmitted(rec *storage.OutpassRecord, advisor *storage.User) {
	if !n.enabled || advisor.Email == "" {
		return
	}

	subject := fmt.Sprintf("Outpass request #%d awaiting your review", rec.ID)
	body := fmt.Sprintf(
		`<p>Hello %s,</p>
<p>%s (%s) has requested an outpass.</p>
<table>
<tr><td>Departure</td><td>%s</td></tr>
<tr><td>Expected return</td><td>%s</td></tr>
<tr><td>Reason</td><td>%s</td></tr>
<tr><td>Destination</td><td>%s</td></tr>
</table>
<p><a href="%s/staff/requests/%d">Review the request</a></p>`,
		html.EscapeString(advisorName(advisor)),
		html.EscapeString(rec.StudentName),
		html.EscapeString(rec.RegistrationNo),
		rec.DepartAt.Format(timeFormat),
		rec.ReturnAt.Format(timeFormat),
		html.EscapeString(rec.Reason),
		html.EscapeString(rec.Destination),
		n.baseURL, rec.ID,
	)

	n.send([]string{advisor.Email}, subject, body, rec.ID)
}

func (n *Notifier) OutpassDecided(rec *storage.OutpassRecord, student *storage.User, stage string, approved bool, remarks string) {
	if !n.enabled || student.Email == "" {
		return
	}

	verdict := "rejected"
	if approved {
		verdict = "approved"
	}
	stageName := "your advisor"
	if stage == "hod" {
		stageName = "the head of department"
	}

	subject := fmt.Sprintf("Outpass request #%d %s", rec.ID, verdict)
	body := fmt.Sprintf(
		`<p>Hello %s,</p>
<p>Your outpass request for %s has been <strong>%s</strong> by %s.</p>`,
		html.EscapeString(student.FullName),
		rec.DepartAt.Format(timeFormat),
		verdict, stageName,
	)
	if remarks != "" {
		body += fmt.Sprintf("<p>Remarks: %s</p>", html.EscapeString(remarks))
	}
	if approved && stage == "hod" {
		body += fmt.Sprintf(`<p>Your gate pass is ready. <a href="%s/student/requests/%d/pass">Show the QR code at the gate.</a></p>`,
			n.baseURL, rec.ID)
	}

	n.send([]string{student.Email}, subject, body, rec.ID)
}

func (n *Notifier) send(to []string, subject, body string, outpassID int64) {
	err := n.client.Send(&Message{To: to, Subject: subject, HTML: body})
	if err != nil {
		n.logger.Error("Failed to send notification", "outpass_id", outpassID, "error", err)
		return
	}
	n.logger.Debug("Notification sent", "outpass_id", outpassID, "subject", subject)
}

func advisorName(u *storage.User) string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
