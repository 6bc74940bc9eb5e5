package service

import (
	"fmt"
	"strings"

	"Lens_Community/internal/model"
	apierrors "Lens_Community/internal/pkg/errors"
	"Lens_Community/internal/repository/mysql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Mailer delivers one HTML mail. pkg.SMTPMailer is the production implementation.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// Notifier records an in-app notification without blocking the caller.
type Notifier interface {
	Notify(userID uint64, typ model.NotificationType, message string, relatedID *uint64, actionURL string)
}

// LogMailer is used when SMTP is disabled.
type LogMailer struct {
	Log *zap.Logger
}

func (m LogMailer) Send(to, subject, _ string) error {
	m.Log.Info("mail not sent, smtp disabled", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// Page is a 1-based page request.
type Page struct {
	Page     int
	PageSize int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

func (p Page) Offset() int {
	p = p.normalize()
	return (p.Page - 1) * p.PageSize
}

func (p Page) Limit() int {
	return p.normalize().PageSize
}

// notFoundOr maps a missing row to NotFound and wraps anything else.
func notFoundOr(err error, resource string) error {
	if mysql.IsNotFound(err) {
		return apierrors.NotFound(resource)
	}
	return fmt.Errorf("load %s: %w", resource, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ptr[T any](v T) *T {
	return &v
}

var (
	invitationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lens_collection_invitations_total",
		Help: "Collaboration invitations issued, including resends",
	})
	joinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lens_collection_join_attempts_total",
		Help: "Invitation acceptance attempts by outcome",
	}, []string{"outcome"})
	uploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lens_photo_uploads_total",
		Help: "Photos stored through the upload endpoint",
	})
)
