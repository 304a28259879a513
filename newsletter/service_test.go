package newsletter

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeMailer records sent confirmations and can be told to fail.
type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *fakeMailer) SendConfirmation(email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

func (m *fakeMailer) sentTo() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.sent))
	copy(out, m.sent)
	return out
}

func newTestService(mailer *fakeMailer) *Service {
	return NewService(NewMemoryStore(), mailer)
}

func TestSubscribe(t *testing.T) {
	mailer := &fakeMailer{}
	svc := newTestService(mailer)

	if err := svc.Subscribe("reader@example.com"); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	subscribed, err := svc.IsSubscribed("reader@example.com")
	if err != nil {
		t.Fatalf("IsSubscribed failed: %v", err)
	}
	if !subscribed {
		t.Error("expected email to be subscribed")
	}

	sent := mailer.sentTo()
	if len(sent) != 1 || sent[0] != "reader@example.com" {
		t.Errorf("expected one confirmation to reader@example.com, got %v", sent)
	}
}

func TestSubscribe_NormalizesEmail(t *testing.T) {
	svc := newTestService(&fakeMailer{})

	if err := svc.Subscribe("  Reader@Example.COM  "); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer svc.Close()

	subscribed, err := svc.IsSubscribed("reader@example.com")
	if err != nil {
		t.Fatalf("IsSubscribed failed: %v", err)
	}
	if !subscribed {
		t.Error("expected normalized email to be subscribed")
	}
}

func TestSubscribe_AlreadySubscribed(t *testing.T) {
	svc := newTestService(&fakeMailer{})
	defer svc.Close()

	if err := svc.Subscribe("reader@example.com"); err != nil {
		t.Fatalf("first Subscribe failed: %v", err)
	}

	err := svc.Subscribe("READER@example.com")
	if !errors.Is(err, ErrAlreadySubscribed) {
		t.Errorf("expected ErrAlreadySubscribed, got %v", err)
	}

	if got := svc.Stats().Count; got != 1 {
		t.Errorf("expected 1 subscriber after duplicate subscribe, got %d", got)
	}
}

func TestSubscribe_InvalidEmail(t *testing.T) {
	svc := newTestService(&fakeMailer{})
	defer svc.Close()

	for _, email := range []string{"", "not-an-email", "missing@tld", "two words@example.com", "@example.com"} {
		if err := svc.Subscribe(email); !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("Subscribe(%q): expected ErrInvalidEmail, got %v", email, err)
		}
	}

	if got := svc.Stats().Count; got != 0 {
		t.Errorf("expected no subscribers, got %d", got)
	}
}

func TestSubscribe_MailerFailureDoesNotFailSubscription(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp unreachable")}
	svc := newTestService(mailer)

	if err := svc.Subscribe("reader@example.com"); err != nil {
		t.Fatalf("Subscribe failed despite mailer error: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	subscribed, err := svc.IsSubscribed("reader@example.com")
	if err != nil {
		t.Fatalf("IsSubscribed failed: %v", err)
	}
	if !subscribed {
		t.Error("subscription should stand even when the confirmation send fails")
	}
}

func TestUnsubscribe(t *testing.T) {
	svc := newTestService(&fakeMailer{})
	defer svc.Close()

	if err := svc.Subscribe("reader@example.com"); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := svc.Unsubscribe("Reader@Example.com"); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}

	subscribed, err := svc.IsSubscribed("reader@example.com")
	if err != nil {
		t.Fatalf("IsSubscribed failed: %v", err)
	}
	if subscribed {
		t.Error("expected email to be unsubscribed")
	}
}

func TestUnsubscribe_NotSubscribed(t *testing.T) {
	svc := newTestService(&fakeMailer{})
	defer svc.Close()

	if err := svc.Unsubscribe("unknown@example.com"); !errors.Is(err, ErrNotSubscribed) {
		t.Errorf("expected ErrNotSubscribed, got %v", err)
	}
}

func TestUnsubscribe_InvalidEmail(t *testing.T) {
	svc := newTestService(&fakeMailer{})
	defer svc.Close()

	if err := svc.Unsubscribe("not-an-email"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestStats(t *testing.T) {
	svc := newTestService(&fakeMailer{})
	defer svc.Close()

	for _, email := range []string{"charlie@example.com", "alice@example.com", "bob@example.com"} {
		if err := svc.Subscribe(email); err != nil {
			t.Fatalf("Subscribe(%s) failed: %v", email, err)
		}
	}

	stats := svc.Stats()
	if stats.Count != 3 {
		t.Errorf("expected count 3, got %d", stats.Count)
	}

	want := []string{"alice@example.com", "bob@example.com", "charlie@example.com"}
	if len(stats.Subscribers) != len(want) {
		t.Fatalf("expected %d subscribers, got %d", len(want), len(stats.Subscribers))
	}
	for i, sub := range stats.Subscribers {
		if sub.Email != want[i] {
			t.Errorf("subscriber %d: expected %s, got %s", i, want[i], sub.Email)
		}
		if sub.SubscribedAt.IsZero() {
			t.Errorf("subscriber %s has zero SubscribedAt", sub.Email)
		}
	}
}

func TestMemoryStore_AddRemove(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now().UTC()

	if !store.Add("a@example.com", now) {
		t.Error("first Add should succeed")
	}
	if store.Add("a@example.com", now) {
		t.Error("duplicate Add should fail")
	}
	if store.Count() != 1 {
		t.Errorf("expected count 1, got %d", store.Count())
	}

	if !store.Remove("a@example.com") {
		t.Error("Remove of existing email should succeed")
	}
	if store.Remove("a@example.com") {
		t.Error("Remove of missing email should fail")
	}
	if store.Count() != 0 {
		t.Errorf("expected count 0, got %d", store.Count())
	}
}
