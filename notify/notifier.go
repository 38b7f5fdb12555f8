// Package notify delivers run failure alerts to operators.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"amazon-scraper/utils"
)

//go:generate mockery --name Notifier --filename notifier.go

// Notifier reports a failed scheduled run. Delivery is best effort.
type Notifier interface {
	NotifyFailure(ctx context.Context, message, frequency string) error
}

// Multi fans a failure out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) NotifyFailure(ctx context.Context, message, frequency string) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyFailure(ctx, message, frequency); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes the failure to the log. It is the fallback when no channel is configured.
type LogNotifier struct {
	logger *utils.Logger
}

func NewLogNotifier(logger *utils.Logger) LogNotifier {
	return LogNotifier{logger: logger}
}

func (n LogNotifier) NotifyFailure(_ context.Context, message, frequency string) error {
	n.logger.Error("[notify] Scrape failed for schedule %q: %s", frequency, message)
	return nil
}

// FailureSubject is the alert title shared by every channel.
func FailureSubject(frequency string, at time.Time) string {
	return fmt.Sprintf("Scrape Failed: %s | %s", frequency, at.Format("2006-01-02 15:04"))
}
