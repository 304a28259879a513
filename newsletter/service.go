package newsletter

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Deliberately permissive: an @ with a dot somewhere after it. Real
// validation happens when the confirmation email bounces.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var (
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrAlreadySubscribed = errors.New("email is already subscribed")
	ErrNotSubscribed     = errors.New("email is not subscribed")
)

// Service manages newsletter subscriptions. The store is injected so the
// handlers never touch shared state directly; confirmation emails are sent
// asynchronously and never affect the subscription outcome.
type Service struct {
	store  Store
	mailer Mailer
	wg     sync.WaitGroup
}

// NewService creates a newsletter service over the given store and mailer.
func NewService(store Store, mailer Mailer) *Service {
	return &Service{
		store:  store,
		mailer: mailer,
	}
}

// Close waits for in-flight confirmation sends to finish.
func (s *Service) Close() error {
	s.wg.Wait()
	return nil
}

// Subscribe adds email to the subscriber set and kicks off a best-effort
// confirmation send. A failed send is logged and swallowed; the
// subscription stands regardless.
func (s *Service) Subscribe(email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	if !s.store.Add(email, time.Now().UTC()) {
		return ErrAlreadySubscribed
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.mailer.SendConfirmation(email); err != nil {
			log.Error().Err(err).Str("email", email).Msg("Failed to send confirmation email")
		}
	}()

	return nil
}

// Unsubscribe removes email from the subscriber set.
func (s *Service) Unsubscribe(email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	if !s.store.Remove(email) {
		return ErrNotSubscribed
	}
	return nil
}

// IsSubscribed reports whether email is currently subscribed.
func (s *Service) IsSubscribed(email string) (bool, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return false, err
	}
	return s.store.Has(email), nil
}

// Stats summarizes the current subscriber set.
type Stats struct {
	Count       int          `json:"count"`
	Subscribers []Subscriber `json:"subscribers"`
}

// Stats returns the subscriber count and the full subscriber list.
func (s *Service) Stats() Stats {
	return Stats{
		Count:       s.store.Count(),
		Subscribers: s.store.All(),
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}
