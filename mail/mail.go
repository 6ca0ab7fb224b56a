package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Links builds the client URLs embedded in outgoing mail.
type Links struct {
	BaseURL string
}

func (l Links) Verify(token string) string {
	return strings.TrimRight(l.BaseURL, "/") + "/user/verify-email/" + token
}

func (l Links) Reset(token string) string {
	return strings.TrimRight(l.BaseURL, "/") + "/reset-password/" + token
}

func verificationMessage(l Links, to, name, token string) Message {
	return Message{
		To:      to,
		Subject: "Verify your email",
		Body: fmt.Sprintf("Hi %s,\r\n\r\nConfirm your email address to finish signing up:\r\n%s\r\n\r\nThe link expires in 24 hours.\r\n",
			name, l.Verify(token)),
	}
}

func resetMessage(l Links, to, name, token string) Message {
	return Message{
		To:      to,
		Subject: "Reset your password",
		Body: fmt.Sprintf("Hi %s,\r\n\r\nUse this link to choose a new password:\r\n%s\r\n\r\nThe link expires in 1 hour. If you did not ask for this, ignore this email.\r\n",
			name, l.Reset(token)),
	}
}

type SMTP struct {
	host     string
	port     int
	username string
	password string
	from     string
	links    Links
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTP(host string, port int, username, password, from string, links Links) *SMTP {
	return &SMTP{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		links:    links,
		send:     smtp.SendMail,
	}
}

func (s *SMTP) SendVerification(ctx context.Context, to, name, token string) error {
	return s.deliver(ctx, verificationMessage(s.links, to, name, token))
}

func (s *SMTP) SendPasswordReset(ctx context.Context, to, name, token string) error {
	return s.deliver(ctx, resetMessage(s.links, to, name, token))
}

func (s *SMTP) deliver(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var a smtp.Auth
	if s.username != "" {
		a = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	raw := "From: " + s.from + "\r\n" +
		"To: " + msg.To + "\r\n" +
		"Subject: " + msg.Subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n" +
		msg.Body

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	if err := s.send(addr, a, s.from, []string{msg.To}, []byte(raw)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", msg.To, err)
	}
	return nil
}

// Log writes outgoing mail to the logger instead of delivering it. Used in
// development when no SMTP relay is configured.
type Log struct {
	logger *zap.SugaredLogger
	links  Links
}

func NewLog(logger *zap.SugaredLogger, links Links) *Log {
	return &Log{logger: logger, links: links}
}

func (l *Log) SendVerification(_ context.Context, to, name, token string) error {
	msg := verificationMessage(l.links, to, name, token)
	l.logger.Infow("Verification email", "to", msg.To, "link", l.links.Verify(token))
	return nil
}

func (l *Log) SendPasswordReset(_ context.Context, to, name, token string) error {
	msg := resetMessage(l.links, to, name, token)
	l.logger.Infow("Password reset email", "to", msg.To, "link", l.links.Reset(token))
	return nil
}
