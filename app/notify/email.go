package notify

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

// Email sends briefings over SMTP. net/smtp upgrades to STARTTLS when the
// server offers it.
type Email struct {
	host       string
	port       int
	sender     string
	password   string
	recipients []string

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

var _ Sender = (*Email)(nil)

func NewEmail(host string, port int, sender, password string, recipients []string) *Email {
	return &Email{
		host:       host,
		port:       port,
		sender:     sender,
		password:   password,
		recipients: recipients,
		sendMail:   smtp.SendMail,
	}
}

func (e *Email) Name() string       { return "email" }
func (e *Email) Audience() Audience { return Broadcast }
func (e *Email) MaxLength() int     { return 0 }

func (e *Email) Send(ctx context.Context, _ string, text string) error {
	if e.sender == "" || len(e.recipients) == 0 {
		return fmt.Errorf("email sender misconfigured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := e.buildMessage(text, time.Now())
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	var auth smtp.Auth
	if e.password != "" {
		auth = smtp.PlainAuth("", e.sender, e.password, e.host)
	}

	addr := e.host + ":" + strconv.Itoa(e.port)
	if err := e.sendMail(addr, auth, e.sender, e.recipients, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// buildMessage renders a multipart/alternative message. The first line of
// text becomes the subject.
func (e *Email) buildMessage(text string, now time.Time) ([]byte, error) {
	subject, _, _ := strings.Cut(text, "\n")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	plain, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=UTF-8"}})
	if err != nil {
		return nil, err
	}
	if _, err := plain.Write([]byte(text)); err != nil {
		return nil, err
	}

	rich, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=UTF-8"}})
	if err != nil {
		return nil, err
	}
	htmlBody := strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
	if _, err := fmt.Fprintf(rich, "<html><body><pre style=\"font-family: sans-serif; white-space: pre-wrap;\">%s</pre></body></html>", htmlBody); err != nil {
		return nil, err
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", e.sender)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(e.recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", strings.TrimSpace(subject)))
	fmt.Fprintf(&msg, "Date: %s\r\n", now.Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())
	msg.Write(body.Bytes())

	return msg.Bytes(), nil
}
