package event

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"profile-service/internal/infrastructure/monitoring"
)

// MQTTNotifier delivers analytics notifications over a low-QoS MQTT broker.
// Each call opens a fresh connection, publishes one message at QoS 1 and
// tears the connection down. Failures are logged and counted, never returned:
// the triggering operation has already succeeded by the time this runs.
type MQTTNotifier struct {
	brokerURL       string
	topic           string
	connectTimeout  time.Duration
	completeTimeout time.Duration
	logger          *slog.Logger

	// newClient is swappable for tests.
	newClient func(*mqtt.ClientOptions) mqtt.Client
}

func NewMQTTNotifier(brokerURL, topic string, connectTimeout, completeTimeout time.Duration, logger *slog.Logger) *MQTTNotifier {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &MQTTNotifier{
		brokerURL:       brokerURL,
		topic:           topic,
		connectTimeout:  connectTimeout,
		completeTimeout: completeTimeout,
		logger:          logger.With("component", "MQTTNotifier", "broker", brokerURL),
		newClient:       mqtt.NewClient,
	}
}

// Notify publishes one notification and blocks until it completes or the
// completion deadline forces teardown. Exactly one completion path fires: the
// done flag guards against the deadline timer racing the publish callback.
func (n *MQTTNotifier) Notify(ev AnalyticsNotificationEvent) {
	logCtx := n.logger.With(slog.String("notificationId", ev.NotificationID))

	body, err := json.Marshal(ev)
	if err != nil {
		logCtx.Error("Failed to marshal notification payload", slog.Any("error", err))
		monitoring.RecordNotifierOutcome("marshal_error")
		return
	}

	opts := mqtt.NewClientOptions().
		AddBroker(n.brokerURL).
		SetClientID("profile-service-" + uuid.NewString()[:8]).
		SetConnectTimeout(n.connectTimeout).
		SetAutoReconnect(false)

	client := n.newClient(opts)

	var done atomic.Bool
	finished := make(chan struct{})
	finish := func(outcome string, cause error) {
		if !done.CompareAndSwap(false, true) {
			return
		}
		if cause != nil {
			logCtx.Warn("Notification delivery failed", "outcome", outcome, slog.Any("error", cause))
		} else {
			logCtx.Debug("Notification delivered", "outcome", outcome)
		}
		monitoring.RecordNotifierOutcome(outcome)
		client.Disconnect(0)
		close(finished)
	}

	deadline := time.AfterFunc(n.completeTimeout, func() {
		finish("timeout", errNotifyDeadline)
	})
	defer deadline.Stop()

	ct := client.Connect()
	if !ct.WaitTimeout(n.connectTimeout) {
		finish("connect_timeout", errNotifyDeadline)
		<-finished
		return
	}
	if err := ct.Error(); err != nil {
		finish("connect_error", err)
		<-finished
		return
	}

	pt := client.Publish(n.topic, 1, false, body)
	if !pt.WaitTimeout(n.completeTimeout) {
		finish("timeout", errNotifyDeadline)
		<-finished
		return
	}
	if err := pt.Error(); err != nil {
		finish("publish_error", err)
		<-finished
		return
	}

	finish("published", nil)
	<-finished
}

var errNotifyDeadline = errors.New("notification delivery deadline exceeded")
