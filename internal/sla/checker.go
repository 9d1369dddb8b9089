// Package sla alerts once on protocols left open past their deadline.
package sla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/protocolos/internal/models"
	"github.com/xelth-com/protocolos/internal/notify"
)

// Source is the persistence the checker needs.
type Source interface {
	Overdue(ctx context.Context, cutoff time.Time) ([]models.Protocol, error)
	MarkAlerted(ctx context.Context, id string, at time.Time) error
}

// Notifier delivers the alert.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notification) error
}

// DefaultInterval is the pause between passes when none is configured.
const DefaultInterval = 15 * time.Minute

// Checker finds protocols open longer than Threshold.
type Checker struct {
	source    Source
	notifier  Notifier
	threshold time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewChecker(source Source, notifier Notifier, threshold time.Duration, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{source: source, notifier: notifier, threshold: threshold, logger: logger, now: time.Now}
}

// CheckOnce alerts every overdue protocol and returns how many were alerted.
// A protocol no sink received is not stamped, so the next pass retries it.
// When only some sinks fail the alert counts as sent.
func (c *Checker) CheckOnce(ctx context.Context) (int, error) {
	now := c.now().UTC()
	overdue, err := c.source.Overdue(ctx, now.Add(-c.threshold))
	if err != nil {
		return 0, fmt.Errorf("failed to load overdue protocols: %w", err)
	}

	alerted := 0
	for _, p := range overdue {
		age := now.Sub(p.CreatedAt).Truncate(time.Hour)
		err := c.notifier.Notify(ctx, notify.Notification{
			Kind:       notify.KindSLAOverdue,
			ProtocolID: p.ID,
			Number:     p.Number,
			UnitCode:   p.UnitCode,
			PdvName:    p.PdvName,
			Reason:     p.Reason,
			Status:     p.Status,
			Detail:     fmt.Sprintf("aberto há %s", age),
			At:         now,
		})
		if err != nil {
			var delivery *notify.DeliveryError
			if !errors.As(err, &delivery) || !delivery.Partial() {
				c.logger.Warn("sla alert not delivered", zap.String("protocol", p.Number), zap.Error(err))
				continue
			}
			c.logger.Warn("sla alert partially delivered", zap.String("protocol", p.Number), zap.Int("delivered", delivery.Delivered), zap.Error(err))
		}
		if err := c.source.MarkAlerted(ctx, p.ID, now); err != nil {
			return alerted, fmt.Errorf("failed to mark %s alerted: %w", p.Number, err)
		}
		alerted++
	}
	if alerted > 0 {
		c.logger.Info("sla alerts sent", zap.Int("count", alerted))
	}
	return alerted, nil
}

// Run checks every interval until ctx is cancelled.
// A non-positive interval falls back to DefaultInterval.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := c.CheckOnce(ctx); err != nil {
			c.logger.Error("sla check failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
