// Package audit writes the append-only record of authentication decisions.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"adaptive-auth/backend/internal/audit/domain"
	auditrepo "adaptive-auth/backend/internal/audit/repository"
	"adaptive-auth/backend/internal/geo"
	"adaptive-auth/backend/internal/logging"
	"adaptive-auth/backend/internal/metrics"
)

// UnknownOrigin is recorded when the caller's network address could not be determined.
const UnknownOrigin = "unknown"

// Entry is the caller-supplied part of a record; ID and CreatedAt are assigned by the Recorder.
type Entry struct {
	UserID        string
	Origin        string
	Fingerprint   string
	Location      *geo.Point
	RiskScore     int
	RiskLevel     string
	Success       bool
	FailureReason string
}

// Recorder persists one record per completed decision.
type Recorder struct {
	repo auditrepo.Repository
	now  func() time.Time
	log  *logrus.Entry
}

// NewRecorder returns a Recorder backed by repo.
func NewRecorder(repo auditrepo.Repository) *Recorder {
	return &Recorder{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
		log:  logging.For("audit"),
	}
}

// Record writes the entry. A write failure is logged and counted, then returned so the caller can
// report it; the caller's decision does not depend on it.
func (r *Recorder) Record(ctx context.Context, e Entry) (*domain.Record, error) {
	origin := e.Origin
	if origin == "" {
		origin = UnknownOrigin
	}
	rec := &domain.Record{
		ID:            uuid.New().String(),
		UserID:        e.UserID,
		CreatedAt:     r.now(),
		Origin:        origin,
		Fingerprint:   e.Fingerprint,
		Location:      e.Location,
		RiskScore:     e.RiskScore,
		RiskLevel:     e.RiskLevel,
		Success:       e.Success,
		FailureReason: e.FailureReason,
	}
	if err := r.repo.Create(ctx, rec); err != nil {
		metrics.AuditWriteFailures.Inc()
		r.log.WithError(err).WithFields(logrus.Fields{
			"user_id":        e.UserID,
			"success":        e.Success,
			"failure_reason": e.FailureReason,
		}).Error("audit: failed to write record")
		return nil, err
	}
	return rec, nil
}
