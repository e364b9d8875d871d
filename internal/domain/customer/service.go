package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"profile-service/internal/event"
	"profile-service/internal/pkg/apperrors"
)

type CustomerService interface {
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	GetPreferences(ctx context.Context, id string) (*Preferences, error)
	CreateCustomer(ctx context.Context, email string, tier Tier, prefs Preferences) (*Customer, error)
	UpdatePreferences(ctx context.Context, id string, prefs Preferences) (*Customer, error)
	HandleSyncRequest(ctx context.Context, req event.CustomerPreferenceSyncRequestEvent)
}

// Notifier is the optional secondary notification channel. Implementations
// must never block the caller's outcome on delivery.
type Notifier interface {
	Notify(ev event.AnalyticsNotificationEvent)
}

var _ CustomerService = (*customerService)(nil)

type customerService struct {
	repo     Repository
	pub      event.Publisher
	notifier Notifier
	logger   *slog.Logger
}

// NewCustomerService wires the store and the outbound event channels.
// notifier may be nil when the secondary broker is disabled.
func NewCustomerService(repo Repository, pub event.Publisher, notifier Notifier, logger *slog.Logger) CustomerService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}
	if pub == nil {
		panic("event publisher cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &customerService{
		repo:     repo,
		pub:      pub,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "customerService")),
	}
}

// GetCustomer returns the stored record, or a synthesized default for any
// unknown id other than the reserved one. The reserved id is the only path
// that reports not-found, even when a record with that id exists.
func (s *customerService) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	if id == ReservedID {
		return nil, fmt.Errorf("%w: customer %s", ErrNotFound, id)
	}
	return s.lookup(ctx, id)
}

func (s *customerService) GetPreferences(ctx context.Context, id string) (*Preferences, error) {
	cust, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	prefs := cust.Preferences
	return &prefs, nil
}

func (s *customerService) CreateCustomer(ctx context.Context, email string, tier Tier, prefs Preferences) (*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to create new customer")

	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email must contain '@'", apperrors.ErrInvalidArgument)
	}
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: unknown tier '%s'", apperrors.ErrInvalidArgument, tier)
	}

	cust := &Customer{
		ID:          uuid.NewString(),
		Email:       email,
		Tier:        tier,
		Preferences: prefs,
	}
	if err := s.repo.Save(ctx, cust); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save new customer", slog.Any("error", err))
		return nil, err
	}

	s.publishAnalyticsNotification(ctx, cust.ID, "Customer created", fmt.Sprintf("Customer %s was created", cust.ID))

	s.logger.InfoContext(ctx, "Customer created", slog.String("customerID", cust.ID))
	return cust, nil
}

// UpdatePreferences replaces the customer's preferences wholesale and stores
// the full record, synthesizing a base record first for unknown ids.
//
// The read-update-publish sequence deliberately takes no per-customer lock:
// each store write is atomic, but two concurrent updates for the same id can
// publish events whose declared state differs from the final stored state.
func (s *customerService) UpdatePreferences(ctx context.Context, id string, prefs Preferences) (*Customer, error) {
	cust, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	cust.Preferences = prefs
	if err := s.repo.Save(ctx, cust); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save updated preferences", slog.Any("error", err))
		return nil, err
	}

	s.publishProfileUpdated(ctx, cust)
	s.publishAnalyticsNotification(ctx, cust.ID, "Preferences updated", fmt.Sprintf("Preferences for customer %s were updated", cust.ID))

	s.logger.InfoContext(ctx, "Customer preferences updated", slog.String("customerID", cust.ID))
	return cust, nil
}

// HandleSyncRequest serves one inbound preference sync request. The SUCCESS
// or NOT_FOUND status reflects store containment before synthesis; the
// profile-updated event is published for the possibly synthesized record
// either way. Publish failures are logged and the loop moves on.
func (s *customerService) HandleSyncRequest(ctx context.Context, req event.CustomerPreferenceSyncRequestEvent) {
	logCtx := s.logger.With(slog.String("requestId", req.RequestID), slog.String("customerID", req.CustomerID))
	logCtx.InfoContext(ctx, "Processing preference sync request")

	existed, err := s.repo.Exists(ctx, req.CustomerID)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to check store containment", slog.Any("error", err))
		return
	}

	cust, err := s.lookup(ctx, req.CustomerID)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to look up customer", slog.Any("error", err))
		return
	}

	s.publishProfileUpdated(ctx, cust)

	reply := event.CustomerPreferenceSyncReplyEvent{
		RequestID:         req.RequestID,
		CustomerID:        req.CustomerID,
		Status:            event.SyncStatusNotFound,
		SyncedAt:          time.Now().UTC(),
		PreferenceVersion: 1,
	}
	if existed {
		reply.Status = event.SyncStatusSuccess
		reply.Preferences = map[string]string{
			"newsletter": strconv.FormatBool(cust.Preferences.Newsletter),
			"language":   cust.Preferences.Language,
		}
	}

	if err := s.pub.PublishSyncReply(ctx, reply); err != nil {
		logCtx.ErrorContext(ctx, "Failed to publish sync reply", slog.Any("error", err))
		return
	}
	logCtx.InfoContext(ctx, "Sync reply published", slog.String("status", string(reply.Status)))
}

// lookup reads the stored record or synthesizes a default. It never applies
// the reserved-id check; that belongs to the HTTP read paths only.
func (s *customerService) lookup(ctx context.Context, id string) (*Customer, error) {
	cust, err := s.repo.FindByID(ctx, id)
	if err == nil {
		return cust, nil
	}
	if errors.Is(err, ErrNotFound) {
		return Synthesize(id), nil
	}
	return nil, err
}

func (s *customerService) publishProfileUpdated(ctx context.Context, cust *Customer) {
	ev := event.CustomerProfileUpdatedEvent{
		EventID:    uuid.NewString(),
		CustomerID: cust.ID,
		UpdatedAt:  time.Now().UTC(),
		Tier:       string(cust.Tier),
	}
	if err := s.pub.PublishProfileUpdated(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish profile updated event",
			slog.String("customerID", cust.ID), slog.Any("error", err))
	}
}

func (s *customerService) publishAnalyticsNotification(ctx context.Context, customerID, title, body string) {
	ev := event.AnalyticsNotificationEvent{
		NotificationID: uuid.NewString(),
		RequestID:      customerID,
		Title:          title,
		Body:           body,
		Priority:       event.PriorityNormal,
	}
	if err := s.pub.PublishAnalyticsNotification(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish analytics notification",
			slog.String("customerID", customerID), slog.Any("error", err))
	}
	if s.notifier != nil {
		go s.notifier.Notify(ev)
	}
}
