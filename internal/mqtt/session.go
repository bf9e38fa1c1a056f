package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	perrors "pico-monitor/internal/errors"
	"pico-monitor/internal/logger"
	"pico-monitor/internal/metrics"
)

// ErrNotConnected is returned by Publish and Subscribe without a live session
var ErrNotConnected = errors.New("not connected to broker")

// Handler processes one inbound message on the loop goroutine
type Handler func(topic string, payload []byte)

// SessionConfig contains broker session settings
type SessionConfig struct {
	BrokerURL         string
	Username          string
	Password          string
	ClientID          string
	KeepAlive         time.Duration
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	QueueSize         int
	AvailabilityTopic string // empty disables birth and last will
}

type inboundMessage struct {
	topic   string
	payload []byte
}

// Session is a connected broker session. Inbound messages are buffered by
// the client goroutine and dispatched by PollIncoming on the caller's
// goroutine.
type Session struct {
	client  paho.Client
	cfg     SessionConfig
	metrics metrics.MetricsCollector

	inbound chan inboundMessage
	dropped atomic.Uint64

	mu            sync.RWMutex
	handlers      map[string]Handler
	subscriptions []string
	connected     bool
}

// ClientID returns id, or a random pico-monitor-<suffix> id when id is empty
func ClientID(id string) string {
	if id != "" {
		return id
	}
	return "pico-monitor-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// ConnectBroker opens a session with a single connection attempt bounded by
// cfg.ConnectTimeout and ctx. Failures are *errors.BrokerError.
func ConnectBroker(ctx context.Context, cfg SessionConfig, mc metrics.MetricsCollector) (*Session, error) {
	s := newSession(cfg, mc)
	opts, err := s.clientOptions()
	if err != nil {
		return nil, perrors.NewBrokerError("configure", err, cfg.BrokerURL)
	}
	s.client = paho.NewClient(opts)
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func newSession(cfg SessionConfig, mc metrics.MetricsCollector) *Session {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 8
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 500 * time.Millisecond
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 60 * time.Second
	}
	if mc == nil {
		mc = metrics.NewNullMetrics()
	}
	cfg.ClientID = ClientID(cfg.ClientID)
	return &Session{
		cfg:      cfg,
		metrics:  mc,
		inbound:  make(chan inboundMessage, cfg.QueueSize),
		handlers: make(map[string]Handler),
	}
}

func (s *Session) clientOptions() (*paho.ClientOptions, error) {
	u, err := url.Parse(s.cfg.BrokerURL)
	if err != nil {
		return nil, fmt.Errorf("parse broker url: %w", err)
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(s.cfg.BrokerURL)
	opts.SetClientID(s.cfg.ClientID)
	opts.SetUsername(s.cfg.Username)
	opts.SetPassword(s.cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetKeepAlive(s.cfg.KeepAlive)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(s.cfg.ConnectTimeout)
	// onMessage only enqueues, so in-order delivery cannot block the client
	opts.SetOrderMatters(true)

	if usesTLS(u) {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: u.Hostname(),
		})
	}
	if s.cfg.AvailabilityTopic != "" {
		opts.SetWill(s.cfg.AvailabilityTopic, "offline", 1, true)
	}

	opts.SetOnConnectHandler(s.onConnect)
	opts.SetConnectionLostHandler(s.onConnectionLost)
	opts.SetReconnectingHandler(func(_ paho.Client, _ *paho.ClientOptions) {
		logger.LogInfo("🔄 Reconnecting to MQTT broker...")
	})
	return opts, nil
}

func usesTLS(u *url.URL) bool {
	switch strings.ToLower(u.Scheme) {
	case "ssl", "tls", "mqtts", "tcps":
		return true
	}
	return u.Port() == "8883"
}

func (s *Session) connect(ctx context.Context) error {
	logger.LogDebug("🔄 Connecting to MQTT broker %s as %s", s.cfg.BrokerURL, s.cfg.ClientID)

	token := s.client.Connect()
	timer := time.NewTimer(s.cfg.ConnectTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		s.client.Disconnect(0)
		return perrors.NewBrokerError("connect", ctx.Err(), s.cfg.BrokerURL)
	case <-timer.C:
		s.client.Disconnect(0)
		return perrors.NewBrokerError("connect", fmt.Errorf("no CONNACK within %v", s.cfg.ConnectTimeout), s.cfg.BrokerURL)
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return perrors.NewBrokerError("connect", err, s.cfg.BrokerURL)
	}

	// OnConnect runs asynchronously; the session is usable once CONNACK arrives
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	s.metrics.SetLinkStatus(true)

	logger.LogInfo("✅ Connected to MQTT broker %s", s.cfg.BrokerURL)
	return nil
}

// onConnect runs on every (re)connect and restores subscriptions
func (s *Session) onConnect(client paho.Client) {
	s.mu.Lock()
	s.connected = true
	topics := append([]string(nil), s.subscriptions...)
	s.mu.Unlock()
	s.metrics.SetLinkStatus(true)

	if s.cfg.AvailabilityTopic != "" {
		if token := client.Publish(s.cfg.AvailabilityTopic, 1, true, "online"); token.WaitTimeout(s.cfg.PublishTimeout) && token.Error() != nil {
			logger.LogWarn("⚠️ Error publishing online status: %v", token.Error())
		}
	}

	for _, topic := range topics {
		if token := client.Subscribe(topic, 0, s.onMessage); token.WaitTimeout(s.cfg.ConnectTimeout) && token.Error() != nil {
			logger.LogError("❌ Error resubscribing to %s: %v", topic, token.Error())
		} else {
			logger.LogDebug("📡 Resubscribed to: %s", topic)
		}
	}
}

func (s *Session) onConnectionLost(_ paho.Client, err error) {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	s.metrics.SetLinkStatus(false)
	logger.LogError("❌ MQTT connection lost: %v", err)
}

// onMessage runs on the client goroutine; it only enqueues
func (s *Session) onMessage(_ paho.Client, msg paho.Message) {
	m := inboundMessage{topic: msg.Topic(), payload: append([]byte(nil), msg.Payload()...)}
	select {
	case s.inbound <- m:
		s.metrics.IncrementInboundMessages()
	default:
		n := s.dropped.Add(1)
		s.metrics.IncrementDroppedMessages()
		logger.LogWarn("⚠️ Inbound queue full, message on %s dropped (%d total)", m.topic, n)
	}
}

// Subscribe subscribes to topic at QoS 0. The subscription is restored on
// reconnect. Failures are *errors.BrokerError.
func (s *Session) Subscribe(topic string) error {
	if !s.IsConnected() {
		return perrors.NewBrokerError("subscribe", ErrNotConnected, s.cfg.BrokerURL).WithTopic(topic)
	}

	token := s.client.Subscribe(topic, 0, s.onMessage)
	if !token.WaitTimeout(s.cfg.ConnectTimeout) {
		return perrors.NewBrokerError("subscribe", fmt.Errorf("no SUBACK within %v", s.cfg.ConnectTimeout), s.cfg.BrokerURL).WithTopic(topic)
	}
	if err := token.Error(); err != nil {
		return perrors.NewBrokerError("subscribe", err, s.cfg.BrokerURL).WithTopic(topic)
	}

	s.mu.Lock()
	if !contains(s.subscriptions, topic) {
		s.subscriptions = append(s.subscriptions, topic)
	}
	s.mu.Unlock()
	logger.LogInfo("📡 Subscribed to: %s", topic)
	return nil
}

// RegisterHandler routes messages whose topic matches filter to h.
// Registering the same filter again replaces the handler.
func (s *Session) RegisterHandler(filter string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[filter] = h
}

// Publish sends value to topic at QoS 0, not retained. It waits at most
// PublishTimeout for the client to accept the packet and never retries.
func (s *Session) Publish(topic, value string) error {
	if !s.IsConnected() {
		return perrors.NewPublishError(ErrNotConnected, topic)
	}
	token := s.client.Publish(topic, 0, false, value)
	if !token.WaitTimeout(s.cfg.PublishTimeout) {
		return perrors.NewPublishError(fmt.Errorf("not sent within %v", s.cfg.PublishTimeout), topic)
	}
	if err := token.Error(); err != nil {
		return perrors.NewPublishError(err, topic)
	}
	return nil
}

// PollIncoming dispatches the messages buffered on entry without waiting
// and returns how many were delivered to a handler. Messages arriving
// during the drain wait for the next poll.
func (s *Session) PollIncoming() int {
	delivered := 0
	for pending := len(s.inbound); pending > 0; pending-- {
		select {
		case m := <-s.inbound:
			if h := s.handlerFor(m.topic); h != nil {
				h(m.topic, m.payload)
				delivered++
			} else {
				logger.LogDebug("📥 No handler for %s, message ignored", m.topic)
			}
		default:
			return delivered
		}
	}
	return delivered
}

func (s *Session) handlerFor(topic string) Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if h, ok := s.handlers[topic]; ok {
		return h
	}
	for filter, h := range s.handlers {
		if Matches(filter, topic) {
			return h
		}
	}
	return nil
}

// Dropped returns how many inbound messages were discarded on a full queue
func (s *Session) Dropped() uint64 {
	return s.dropped.Load()
}

// IsConnected checks if the session is connected
func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected && s.client.IsConnected()
}

// Disconnect publishes the offline status when enabled and closes the session
func (s *Session) Disconnect() {
	if s.IsConnected() && s.cfg.AvailabilityTopic != "" {
		token := s.client.Publish(s.cfg.AvailabilityTopic, 1, true, "offline")
		token.WaitTimeout(s.cfg.PublishTimeout)
	}

	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	s.metrics.SetLinkStatus(false)

	if s.client.IsConnected() {
		s.client.Disconnect(250)
	}
	logger.LogInfo("🔌 Disconnected from MQTT broker")
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
