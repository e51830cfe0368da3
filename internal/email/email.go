package email

import (
	"fmt"
	"log/slog"

	"github.com/inbucket/html2text"
	"github.com/wneessen/go-mail"
)

// Client represents an email client
type Client struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Message represents an email message
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string // optional, will be auto-generated from HTML if empty
}

// NewClient creates a new email client
func NewClient(host string, port int, username, password, from string) *Client {
	return &Client{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
	}
}

// Send sends an email message
func (c *Client) Send(msg *Message) error {
	if msg.Text == "" {
		text, err := htmlToText(msg.HTML)
		if err != nil {
			return fmt.Errorf("failed to convert HTML to text: %w", err)
		}
		msg.Text = text
	}

	m := mail.NewMsg()
	if err := m.From(c.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)

	opts := []mail.Option{mail.WithPort(c.Port)}
	if c.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(c.Username),
			mail.WithPassword(c.Password),
		)
	}

	client, err := mail.NewClient(c.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}

	return client.DialAndSend(m)
}

// htmlToText converts HTML to plain text
func htmlToText(htmlContent string) (string, error) {
	text, err := html2text.FromString(htmlContent, html2text.Options{
		PrettyTables: true,
		OmitLinks:    false,
	})
	if err != nil {
		slog.Error("failed to convert HTML to text", "error", err)
		return "", err
	}
	return text, nil
}
