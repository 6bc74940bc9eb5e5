package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"Lens_Community/internal/config"
	"Lens_Community/internal/model"
	"Lens_Community/internal/pkg"
	"Lens_Community/internal/testutil"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type notification struct {
	UserID    uint64
	Type      model.NotificationType
	RelatedID *uint64
}

// recordingNotifier records synchronously so tests can assert right away.
type recordingNotifier struct {
	mu   sync.Mutex
	list []notification
}

func (n *recordingNotifier) Notify(userID uint64, typ model.NotificationType, _ string, relatedID *uint64, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, notification{UserID: userID, Type: typ, RelatedID: relatedID})
}

func (n *recordingNotifier) For(userID uint64) []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification
	for _, x := range n.list {
		if x.UserID == userID {
			out = append(out, x)
		}
	}
	return out
}

type sentMail struct {
	To, Subject, Body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return m.err
}

func (m *fakeMailer) To(email string) []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMail
	for _, s := range m.sent {
		if s.To == email {
			out = append(out, s)
		}
	}
	return out
}

var errSMTPDown = errors.New("smtp down")

type fixture struct {
	db          *gorm.DB
	collections *CollectionService
	users       *UserService
	mailer      *fakeMailer
	notifier    *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	mailer := &fakeMailer{}
	notifier := &recordingNotifier{}
	log := zap.NewNop()
	return &fixture{
		db:          db,
		collections: NewCollectionService(db, mailer, notifier, "http://lens.test/", log),
		users: NewUserService(db, pkg.NewTokenSigner("test-secret"), config.AuthConfig{
			SessionTTL:      time.Hour,
			SuperAdminEmail: "root@example.com",
		}, log),
		mailer:   mailer,
		notifier: notifier,
	}
}
