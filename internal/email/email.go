// Package email delivers transactional mail. The Postmark client is used in
// production; LogSender stands in for local development.
package email

import "log/slog"

// Sender delivers the transactional messages the platform sends.
type Sender interface {
	SendPasswordReset(toEmail, resetLink string) error
	SendWelcome(toEmail, fullName string) error
	SendPasswordChanged(toEmail string) error
}

// LogSender writes mail to the log instead of delivering it.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "email")}
}

func (s *LogSender) SendPasswordReset(toEmail, resetLink string) error {
	s.logger.Info("password reset email", "to", toEmail, "link", resetLink)
	return nil
}

func (s *LogSender) SendWelcome(toEmail, fullName string) error {
	s.logger.Info("welcome email", "to", toEmail, "name", fullName)
	return nil
}

func (s *LogSender) SendPasswordChanged(toEmail string) error {
	s.logger.Info("password changed email", "to", toEmail)
	return nil
}
