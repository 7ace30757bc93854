package verification

import (
	"context"
	"log/slog"
)

// Mailer delivers a verification code to an address.
type Mailer interface {
	SendCode(ctx context.Context, email, code string) error
}

// LogMailer writes codes to the log instead of sending mail. For
// development deployments without an outbound mail relay.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) SendCode(ctx context.Context, email, code string) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "verification code issued",
		slog.String("email", email),
		slog.String("code", code),
	)
	return nil
}
