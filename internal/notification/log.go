package notification

import "log/slog"

// LogNotifier writes tokens to the log instead of sending email. For
// local development when SMTP is not configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendActivationToken(to, token string) error {
	n.logger.Info("activation token issued", "to", to, "token", token)
	return nil
}

func (n *LogNotifier) SendRecoveryToken(to, token string) error {
	n.logger.Info("recovery token issued", "to", to, "token", token)
	return nil
}
