package event

import "time"

type NotificationPriority string

const (
	PriorityNormal NotificationPriority = "NORMAL"
)

type SyncStatus string

const (
	SyncStatusSuccess  SyncStatus = "SUCCESS"
	SyncStatusNotFound SyncStatus = "NOT_FOUND"
)

// CustomerProfileUpdatedEvent is emitted once per successful preference
// update and once per processed sync request.
type CustomerProfileUpdatedEvent struct {
	EventID    string    `json:"eventId"`
	CustomerID string    `json:"customerId"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Tier       string    `json:"tier"`
}

// AnalyticsNotificationEvent is emitted on customer creation and preference
// update. RequestID correlates to the triggering customer id.
type AnalyticsNotificationEvent struct {
	NotificationID string               `json:"notificationId"`
	RequestID      string               `json:"requestId"`
	Title          string               `json:"title"`
	Body           string               `json:"body"`
	Priority       NotificationPriority `json:"priority"`
}

// CustomerPreferenceSyncRequestEvent is the inbound request shape. All three
// fields are required strings; anything else is dropped by the consumer.
type CustomerPreferenceSyncRequestEvent struct {
	RequestID   string `json:"requestId"`
	CustomerID  string `json:"customerId"`
	RequestedAt string `json:"requestedAt"`
}

func (e CustomerPreferenceSyncRequestEvent) Complete() bool {
	return e.RequestID != "" && e.CustomerID != "" && e.RequestedAt != ""
}

// CustomerPreferenceSyncReplyEvent answers a sync request on the reply topic,
// correlated by RequestID. Preferences is present only on SUCCESS, with all
// values stringified.
type CustomerPreferenceSyncReplyEvent struct {
	RequestID         string            `json:"requestId"`
	CustomerID        string            `json:"customerId"`
	Status            SyncStatus        `json:"status"`
	SyncedAt          time.Time         `json:"syncedAt"`
	PreferenceVersion int               `json:"preferenceVersion"`
	Preferences       map[string]string `json:"preferences,omitempty"`
}
