package customer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"profile-service/internal/domain/customer"
	"profile-service/internal/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockPublisher struct {
	mock.Mock
}

func (_m *MockPublisher) PublishProfileUpdated(ctx context.Context, ev event.CustomerProfileUpdatedEvent) error {
	ret := _m.Called(ctx, ev)
	return ret.Error(0)
}

func (_m *MockPublisher) PublishAnalyticsNotification(ctx context.Context, ev event.AnalyticsNotificationEvent) error {
	ret := _m.Called(ctx, ev)
	return ret.Error(0)
}

func (_m *MockPublisher) PublishSyncReply(ctx context.Context, ev event.CustomerPreferenceSyncReplyEvent) error {
	ret := _m.Called(ctx, ev)
	return ret.Error(0)
}

type chanNotifier struct {
	notified chan event.AnalyticsNotificationEvent
}

func (n *chanNotifier) Notify(ev event.AnalyticsNotificationEvent) {
	n.notified <- ev
}

func setupTest() (*customer.MockRepository, *MockPublisher, customer.CustomerService) {
	mockRepo := new(customer.MockRepository)
	mockPub := new(MockPublisher)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := customer.NewCustomerService(mockRepo, mockPub, nil, logger)
	return mockRepo, mockPub, service
}

func TestCustomerService_GetCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns stored record", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		stored := &customer.Customer{
			ID:          "c1",
			Email:       "a@b.com",
			Tier:        customer.TierGold,
			Preferences: customer.Preferences{Newsletter: false, Language: "fr-FR"},
		}
		mockRepo.On("FindByID", ctx, "c1").Return(stored, nil).Once()

		cust, err := service.GetCustomer(ctx, "c1")

		assert.NoError(t, err)
		assert.Equal(t, stored, cust)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Synthesizes default for unknown id", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		mockRepo.On("FindByID", ctx, "c2").Return(nil, customer.ErrNotFound).Once()

		cust, err := service.GetCustomer(ctx, "c2")

		assert.NoError(t, err)
		assert.Equal(t, "c2", cust.ID)
		assert.Equal(t, customer.TierStandard, cust.Tier)
		assert.True(t, cust.Preferences.Newsletter)
		assert.Equal(t, "en-US", cust.Preferences.Language)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Synthesized record is not persisted", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		mockRepo.On("FindByID", ctx, "c3").Return(nil, customer.ErrNotFound).Once()

		_, err := service.GetCustomer(ctx, "c3")

		assert.NoError(t, err)
		mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("Reserved id is not found even when stored", func(t *testing.T) {
		mockRepo, _, service := setupTest()

		_, err := service.GetCustomer(ctx, customer.ReservedID)

		assert.ErrorIs(t, err, customer.ErrNotFound)
		mockRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("Repository failure propagates", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		repoErr := errors.New("boom")
		mockRepo.On("FindByID", ctx, "c4").Return(nil, repoErr).Once()

		_, err := service.GetCustomer(ctx, "c4")

		assert.ErrorIs(t, err, repoErr)
	})
}

func TestCustomerService_GetPreferences(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns stored preferences", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		stored := &customer.Customer{
			ID:          "c1",
			Email:       "a@b.com",
			Tier:        customer.TierGold,
			Preferences: customer.Preferences{Newsletter: false, Language: "fr-FR"},
		}
		mockRepo.On("FindByID", ctx, "c1").Return(stored, nil).Once()

		prefs, err := service.GetPreferences(ctx, "c1")

		assert.NoError(t, err)
		assert.Equal(t, customer.Preferences{Newsletter: false, Language: "fr-FR"}, *prefs)
	})

	t.Run("Reserved id is not found", func(t *testing.T) {
		_, _, service := setupTest()

		_, err := service.GetPreferences(ctx, customer.ReservedID)

		assert.ErrorIs(t, err, customer.ErrNotFound)
	})
}

func TestCustomerService_CreateCustomer(t *testing.T) {
	ctx := context.Background()
	prefs := customer.Preferences{Newsletter: false, Language: "fr-FR"}

	t.Run("Success", func(t *testing.T) {
		mockRepo, mockPub, service := setupTest()
		mockRepo.On("Save", ctx, mock.MatchedBy(func(c *customer.Customer) bool {
			_, parseErr := uuid.Parse(c.ID)
			return parseErr == nil &&
				c.Email == "a@b.com" &&
				c.Tier == customer.TierGold &&
				c.Preferences == prefs
		})).Return(nil).Once()
		mockPub.On("PublishAnalyticsNotification", ctx, mock.MatchedBy(func(ev event.AnalyticsNotificationEvent) bool {
			return ev.Priority == event.PriorityNormal && ev.RequestID != "" && ev.NotificationID != ""
		})).Return(nil).Once()

		created, err := service.CreateCustomer(ctx, "a@b.com", customer.TierGold, prefs)

		assert.NoError(t, err)
		assert.NotNil(t, created)
		assert.NotEmpty(t, created.ID)
		mockRepo.AssertExpectations(t)
		mockPub.AssertExpectations(t)
	})

	t.Run("Error - email without at sign", func(t *testing.T) {
		mockRepo, _, service := setupTest()

		_, err := service.CreateCustomer(ctx, "not-an-email", customer.TierGold, prefs)

		assert.Error(t, err)
		mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("Error - unknown tier", func(t *testing.T) {
		mockRepo, _, service := setupTest()

		_, err := service.CreateCustomer(ctx, "a@b.com", customer.Tier("SILVER"), prefs)

		assert.Error(t, err)
		mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("Publish failure does not fail creation", func(t *testing.T) {
		mockRepo, mockPub, service := setupTest()
		mockRepo.On("Save", ctx, mock.Anything).Return(nil).Once()
		mockPub.On("PublishAnalyticsNotification", ctx, mock.Anything).Return(errors.New("broker down")).Once()

		created, err := service.CreateCustomer(ctx, "a@b.com", customer.TierStandard, prefs)

		assert.NoError(t, err)
		assert.NotNil(t, created)
	})

	t.Run("Secondary notifier is invoked when configured", func(t *testing.T) {
		mockRepo := new(customer.MockRepository)
		mockPub := new(MockPublisher)
		notifier := &chanNotifier{notified: make(chan event.AnalyticsNotificationEvent, 1)}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service := customer.NewCustomerService(mockRepo, mockPub, notifier, logger)

		mockRepo.On("Save", ctx, mock.Anything).Return(nil).Once()
		mockPub.On("PublishAnalyticsNotification", ctx, mock.Anything).Return(nil).Once()

		_, err := service.CreateCustomer(ctx, "a@b.com", customer.TierGold, prefs)
		assert.NoError(t, err)

		select {
		case ev := <-notifier.notified:
			assert.Equal(t, event.PriorityNormal, ev.Priority)
		case <-time.After(time.Second):
			t.Fatal("expected secondary notifier to be invoked")
		}
	})
}

func TestCustomerService_UpdatePreferences(t *testing.T) {
	ctx := context.Background()
	newPrefs := customer.Preferences{Newsletter: false, Language: "de-DE"}

	t.Run("Replaces preferences wholesale on stored record", func(t *testing.T) {
		mockRepo, mockPub, service := setupTest()
		stored := &customer.Customer{
			ID:          "c1",
			Email:       "a@b.com",
			Tier:        customer.TierPlatinum,
			Preferences: customer.Preferences{Newsletter: true, Language: "en-US"},
		}
		mockRepo.On("FindByID", ctx, "c1").Return(stored, nil).Once()
		mockRepo.On("Save", ctx, mock.MatchedBy(func(c *customer.Customer) bool {
			return c.ID == "c1" && c.Preferences == newPrefs
		})).Return(nil).Once()
		mockPub.On("PublishProfileUpdated", ctx, mock.MatchedBy(func(ev event.CustomerProfileUpdatedEvent) bool {
			return ev.CustomerID == "c1" && ev.Tier == "PLATINUM" && ev.EventID != ""
		})).Return(nil).Once()
		mockPub.On("PublishAnalyticsNotification", ctx, mock.Anything).Return(nil).Once()

		updated, err := service.UpdatePreferences(ctx, "c1", newPrefs)

		assert.NoError(t, err)
		assert.Equal(t, newPrefs, updated.Preferences)
		mockRepo.AssertExpectations(t)
		mockPub.AssertExpectations(t)
	})

	t.Run("Synthesizes base record for unknown id and stores it", func(t *testing.T) {
		mockRepo, mockPub, service := setupTest()
		mockRepo.On("FindByID", ctx, "c9").Return(nil, customer.ErrNotFound).Once()
		mockRepo.On("Save", ctx, mock.MatchedBy(func(c *customer.Customer) bool {
			return c.ID == "c9" && c.Tier == customer.TierStandard && c.Preferences == newPrefs
		})).Return(nil).Once()
		mockPub.On("PublishProfileUpdated", ctx, mock.Anything).Return(nil).Once()
		mockPub.On("PublishAnalyticsNotification", ctx, mock.Anything).Return(nil).Once()

		updated, err := service.UpdatePreferences(ctx, "c9", newPrefs)

		assert.NoError(t, err)
		assert.Equal(t, newPrefs, updated.Preferences)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Publish failures do not fail the update", func(t *testing.T) {
		mockRepo, mockPub, service := setupTest()
		mockRepo.On("FindByID", ctx, "c1").Return(nil, customer.ErrNotFound).Once()
		mockRepo.On("Save", ctx, mock.Anything).Return(nil).Once()
		mockPub.On("PublishProfileUpdated", ctx, mock.Anything).Return(errors.New("broker down")).Once()
		mockPub.On("PublishAnalyticsNotification", ctx, mock.Anything).Return(errors.New("broker down")).Once()

		updated, err := service.UpdatePreferences(ctx, "c1", newPrefs)

		assert.NoError(t, err)
		assert.NotNil(t, updated)
	})

	t.Run("Save failure propagates", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		saveErr := errors.New("store broken")
		mockRepo.On("FindByID", ctx, "c1").Return(nil, customer.ErrNotFound).Once()
		mockRepo.On("Save", ctx, mock.Anything).Return(saveErr).Once()

		_, err := service.UpdatePreferences(ctx, "c1", newPrefs)

		assert.ErrorIs(t, err, saveErr)
	})
}

func TestCustomerService_HandleSyncRequest(t *testing.T) {
	ctx := context.Background()
	req := event.CustomerPreferenceSyncRequestEvent{
		RequestID:   "r1",
		CustomerID:  "c1",
		RequestedAt: "2024-01-01T00:00:00Z",
	}

	t.Run("Unknown customer replies NOT_FOUND without preferences", func(t *testing.T) {
		mockRepo, mockPub, service := setupTest()
		mockRepo.On("Exists", ctx, "c1").Return(false, nil).Once()
		mockRepo.On("FindByID", ctx, "c1").Return(nil, customer.ErrNotFound).Once()
		mockPub.On("PublishProfileUpdated", ctx, mock.MatchedBy(func(ev event.CustomerProfileUpdatedEvent) bool {
			return ev.CustomerID == "c1" && ev.Tier == "STANDARD"
		})).Return(nil).Once()
		mockPub.On("PublishSyncReply", ctx, mock.MatchedBy(func(ev event.CustomerPreferenceSyncReplyEvent) bool {
			return ev.RequestID == "r1" &&
				ev.CustomerID == "c1" &&
				ev.Status == event.SyncStatusNotFound &&
				ev.PreferenceVersion == 1 &&
				ev.Preferences == nil
		})).Return(nil).Once()

		service.HandleSyncRequest(ctx, req)

		mockRepo.AssertExpectations(t)
		mockPub.AssertExpectations(t)
	})

	t.Run("Known customer replies SUCCESS with stringified preferences", func(t *testing.T) {
		mockRepo, mockPub, service := setupTest()
		stored := &customer.Customer{
			ID:          "c1",
			Email:       "a@b.com",
			Tier:        customer.TierGold,
			Preferences: customer.Preferences{Newsletter: false, Language: "fr-FR"},
		}
		mockRepo.On("Exists", ctx, "c1").Return(true, nil).Once()
		mockRepo.On("FindByID", ctx, "c1").Return(stored, nil).Once()
		mockPub.On("PublishProfileUpdated", ctx, mock.Anything).Return(nil).Once()
		mockPub.On("PublishSyncReply", ctx, mock.MatchedBy(func(ev event.CustomerPreferenceSyncReplyEvent) bool {
			return ev.Status == event.SyncStatusSuccess &&
				ev.Preferences["newsletter"] == "false" &&
				ev.Preferences["language"] == "fr-FR"
		})).Return(nil).Once()

		service.HandleSyncRequest(ctx, req)

		mockPub.AssertExpectations(t)
	})

	t.Run("Reserved id is synthesized rather than rejected", func(t *testing.T) {
		mockRepo, mockPub, service := setupTest()
		reservedReq := event.CustomerPreferenceSyncRequestEvent{
			RequestID:   "r2",
			CustomerID:  customer.ReservedID,
			RequestedAt: "2024-01-01T00:00:00Z",
		}
		mockRepo.On("Exists", ctx, customer.ReservedID).Return(false, nil).Once()
		mockRepo.On("FindByID", ctx, customer.ReservedID).Return(nil, customer.ErrNotFound).Once()
		mockPub.On("PublishProfileUpdated", ctx, mock.Anything).Return(nil).Once()
		mockPub.On("PublishSyncReply", ctx, mock.Anything).Return(nil).Once()

		service.HandleSyncRequest(ctx, reservedReq)

		mockPub.AssertExpectations(t)
	})

	t.Run("Profile update publish failure still sends reply", func(t *testing.T) {
		mockRepo, mockPub, service := setupTest()
		mockRepo.On("Exists", ctx, "c1").Return(false, nil).Once()
		mockRepo.On("FindByID", ctx, "c1").Return(nil, customer.ErrNotFound).Once()
		mockPub.On("PublishProfileUpdated", ctx, mock.Anything).Return(errors.New("broker down")).Once()
		mockPub.On("PublishSyncReply", ctx, mock.Anything).Return(nil).Once()

		service.HandleSyncRequest(ctx, req)

		mockPub.AssertExpectations(t)
	})
}
