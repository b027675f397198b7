package mfa

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"adaptive-auth/backend/internal/logging"
)

// Delivery is a code to hand to the user out of band.
type Delivery struct {
	UserID      string
	ChallengeID string
	Code        string
	ExpiresAt   time.Time
}

// Deliverer sends a challenge code to the user (email, SMS, push). Called fire-and-forget after
// the challenge is persisted; an error never changes the login decision.
type Deliverer interface {
	Deliver(ctx context.Context, d Delivery) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, d Delivery) error

// Deliver calls f.
func (f DelivererFunc) Deliver(ctx context.Context, d Delivery) error {
	return f(ctx, d)
}

// LogDeliverer records that a code was issued without revealing it. Used when no real channel is wired.
type LogDeliverer struct {
	log *logrus.Entry
}

// NewLogDeliverer returns a LogDeliverer writing to the shared logger.
func NewLogDeliverer() *LogDeliverer {
	return &LogDeliverer{log: logging.For("delivery")}
}

// Deliver logs the challenge id and expiry.
func (l *LogDeliverer) Deliver(ctx context.Context, d Delivery) error {
	l.log.WithFields(logrus.Fields{
		"user_id":      d.UserID,
		"challenge_id": d.ChallengeID,
		"expires_at":   d.ExpiresAt.Format(time.RFC3339),
	}).Info("delivery: challenge code issued")
	return nil
}

// MultiDeliverer hands the code to every deliverer and joins their errors.
type MultiDeliverer []Deliverer

// Deliver calls each deliverer in order.
func (m MultiDeliverer) Deliver(ctx context.Context, d Delivery) error {
	var errs []error
	for _, dl := range m {
		if dl == nil {
			continue
		}
		if err := dl.Deliver(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
