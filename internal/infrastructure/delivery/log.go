package delivery

import (
	"context"
	"log/slog"

	"correspondent/internal/domain"
	"correspondent/internal/ports"
)

// LogDeliverer prints reports instead of sending them. Used when SMTP is not
// configured, so a local setup still shows what would have gone out.
type LogDeliverer struct {
	logger *slog.Logger
}

var _ ports.Deliverer = (*LogDeliverer)(nil)

// NewLogDeliverer wires the logger sink.
func NewLogDeliverer(logger *slog.Logger) *LogDeliverer {
	return &LogDeliverer{logger: logger}
}

// Deliver logs the digest at info level.
func (d *LogDeliverer) Deliver(ctx context.Context, user domain.User, report domain.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.logger.Info("report delivery",
		"user", user.ID,
		"email", user.Email,
		"items", len(report.Items),
		"digest", FormatDigest(report))
	return nil
}
