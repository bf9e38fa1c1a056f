package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "pico-monitor/internal/errors"
	"pico-monitor/internal/metrics"
)

// mockMessage implements paho.Message for tests
type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 0 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return 1 }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}

// fakeToken completes immediately unless pending is set
type fakeToken struct {
	err     error
	pending bool
	done    chan struct{}
}

func newToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func stalledToken() *fakeToken {
	return &fakeToken{pending: true, done: make(chan struct{})}
}

func (t *fakeToken) Wait() bool                     { return !t.pending }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.pending }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

// fakeClient records client calls
type fakeClient struct {
	mu           sync.Mutex
	connected    bool
	connectToken *fakeToken
	publishToken *fakeToken
	subErr       error
	published    []published
	subscribed   []string
	callback     paho.MessageHandler
	disconnects  int
}

func (c *fakeClient) IsConnected() bool      { c.mu.Lock(); defer c.mu.Unlock(); return c.connected }
func (c *fakeClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *fakeClient) Connect() paho.Token {
	if c.connectToken != nil {
		return c.connectToken
	}
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return newToken(nil)
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnects++
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{topic, qos, retained, payload.(string)})
	if c.publishToken != nil {
		return c.publishToken
	}
	return newToken(nil)
}

func (c *fakeClient) Subscribe(topic string, qos byte, cb paho.MessageHandler) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subErr != nil {
		return newToken(c.subErr)
	}
	c.subscribed = append(c.subscribed, topic)
	c.callback = cb
	return newToken(nil)
}

func (c *fakeClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return newToken(nil)
}
func (c *fakeClient) Unsubscribe(...string) paho.Token            { return newToken(nil) }
func (c *fakeClient) AddRoute(string, paho.MessageHandler)        {}
func (c *fakeClient) OptionsReader() paho.ClientOptionsReader     { return paho.ClientOptionsReader{} }

func connectedSession(t *testing.T, cfg SessionConfig) (*Session, *fakeClient, *metrics.PrometheusMetrics) {
	t.Helper()
	pm := metrics.NewPrometheusMetrics()
	s := newSession(cfg, pm)
	client := &fakeClient{}
	s.client = client
	require.NoError(t, s.connect(context.Background()))
	return s, client, pm
}

func TestPublishFireAndForget(t *testing.T) {
	s, client, _ := connectedSession(t, SessionConfig{BrokerURL: "tcp://broker:1883"})

	require.NoError(t, s.Publish("pico/temperature", "23.0"))
	require.NoError(t, s.Publish("pico/distance", "None"))

	require.Len(t, client.published, 2)
	assert.Equal(t, published{"pico/temperature", 0, false, "23.0"}, client.published[0])
	assert.Equal(t, "None", client.published[1].payload)
	t.Log("✅ Telemetry published at QoS 0, not retained")
}

func TestPublishErrors(t *testing.T) {
	s, client, _ := connectedSession(t, SessionConfig{BrokerURL: "tcp://broker:1883"})

	client.publishToken = newToken(errors.New("write: broken pipe"))
	err := s.Publish("pico/humidity", "45.0")
	var pubErr *perrors.PublishError
	require.True(t, errors.As(err, &pubErr))
	assert.Equal(t, "pico/humidity", pubErr.Topic)

	client.publishToken = stalledToken()
	assert.Error(t, s.Publish("pico/humidity", "45.0"))

	client.publishToken = nil
	s.Disconnect()
	err = s.Publish("pico/humidity", "45.0")
	assert.True(t, errors.Is(err, ErrNotConnected))
}

func TestConnectFailures(t *testing.T) {
	t.Run("refused", func(t *testing.T) {
		s := newSession(SessionConfig{BrokerURL: "tcp://broker:1883"}, nil)
		s.client = &fakeClient{connectToken: newToken(errors.New("not authorized"))}

		var brokerErr *perrors.BrokerError
		require.True(t, errors.As(s.connect(context.Background()), &brokerErr))
		assert.Equal(t, "connect", brokerErr.Op)
	})

	t.Run("no connack", func(t *testing.T) {
		s := newSession(SessionConfig{BrokerURL: "tcp://broker:1883", ConnectTimeout: 20 * time.Millisecond}, nil)
		client := &fakeClient{connectToken: stalledToken()}
		s.client = client

		assert.Error(t, s.connect(context.Background()))
		assert.Equal(t, 1, client.disconnects)
	})

	t.Run("cancelled", func(t *testing.T) {
		s := newSession(SessionConfig{BrokerURL: "tcp://broker:1883"}, nil)
		s.client = &fakeClient{connectToken: stalledToken()}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := s.connect(ctx)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestSubscribeAndPollIncoming(t *testing.T) {
	s, client, pm := connectedSession(t, SessionConfig{BrokerURL: "tcp://broker:1883"})

	var got []string
	s.RegisterHandler("pico/oled", func(topic string, payload []byte) {
		got = append(got, string(payload))
	})
	require.NoError(t, s.Subscribe("pico/oled"))
	assert.Equal(t, []string{"pico/oled"}, client.subscribed)

	assert.Equal(t, 0, s.PollIncoming(), "empty queue returns immediately")

	client.callback(client, &mockMessage{topic: "pico/oled", payload: []byte("first")})
	client.callback(client, &mockMessage{topic: "pico/oled", payload: []byte("second")})
	client.callback(client, &mockMessage{topic: "pico/other", payload: []byte("ignored")})

	assert.Equal(t, 2, s.PollIncoming())
	assert.Equal(t, []string{"first", "second"}, got)
	assert.Equal(t, int64(3), pm.GetStats().InboundTotal)
	t.Log("✅ Inbound messages are dispatched on the polling goroutine")
}

func TestInboundQueueDropsWhenFull(t *testing.T) {
	s, client, pm := connectedSession(t, SessionConfig{BrokerURL: "tcp://broker:1883", QueueSize: 2})

	var got []string
	s.RegisterHandler("pico/oled", func(_ string, payload []byte) { got = append(got, string(payload)) })
	require.NoError(t, s.Subscribe("pico/oled"))

	for _, p := range []string{"a", "b", "c", "d"} {
		client.callback(client, &mockMessage{topic: "pico/oled", payload: []byte(p)})
	}

	assert.Equal(t, 2, s.PollIncoming())
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, uint64(2), s.Dropped())
	assert.Equal(t, int64(2), pm.GetStats().DroppedTotal)
}

func TestPollIncomingDeliversOnlyBufferedMessages(t *testing.T) {
	s, client, _ := connectedSession(t, SessionConfig{BrokerURL: "tcp://broker:1883"})

	var got []string
	s.RegisterHandler("pico/oled", func(_ string, payload []byte) {
		got = append(got, string(payload))
		client.callback(client, &mockMessage{topic: "pico/oled", payload: []byte("late")})
	})
	require.NoError(t, s.Subscribe("pico/oled"))

	client.callback(client, &mockMessage{topic: "pico/oled", payload: []byte("early")})

	assert.Equal(t, 1, s.PollIncoming())
	assert.Equal(t, []string{"early"}, got)
	assert.Equal(t, 1, s.PollIncoming(), "message queued during the drain waits for the next poll")
	assert.Equal(t, []string{"early", "late"}, got)
}

func TestSubscribeErrors(t *testing.T) {
	s, client, _ := connectedSession(t, SessionConfig{BrokerURL: "tcp://broker:1883"})
	client.subErr = errors.New("not authorised")

	err := s.Subscribe("pico/oled")
	var brokerErr *perrors.BrokerError
	require.True(t, errors.As(err, &brokerErr))
	assert.Equal(t, "pico/oled", brokerErr.Topic)
}

func TestReconnectRestoresSubscriptions(t *testing.T) {
	s, client, pm := connectedSession(t, SessionConfig{BrokerURL: "tcp://broker:1883", AvailabilityTopic: "pico/status"})
	require.NoError(t, s.Subscribe("pico/oled"))

	s.onConnectionLost(client, errors.New("EOF"))
	assert.False(t, s.IsConnected())
	assert.False(t, pm.GetStats().LinkOnline)

	s.onConnect(client)
	assert.True(t, s.IsConnected())
	assert.Equal(t, []string{"pico/oled", "pico/oled"}, client.subscribed)
	assert.Equal(t, published{"pico/status", 1, true, "online"}, client.published[len(client.published)-1])

	s.Disconnect()
	assert.Equal(t, published{"pico/status", 1, true, "offline"}, client.published[len(client.published)-1])
}

func TestClientOptions(t *testing.T) {
	s := newSession(SessionConfig{BrokerURL: "ssl://cluster.hivemq.cloud:8883", Username: "node", AvailabilityTopic: "pico/status"}, nil)
	opts, err := s.clientOptions()
	require.NoError(t, err)

	r := paho.NewClient(opts).OptionsReader()
	require.NotNil(t, r.TLSConfig())
	assert.Equal(t, "cluster.hivemq.cloud", r.TLSConfig().ServerName)
	assert.True(t, r.WillEnabled())
	assert.Equal(t, "pico/status", r.WillTopic())
	assert.Equal(t, "node", r.Username())
	assert.Contains(t, r.ClientID(), "pico-monitor-")
	assert.True(t, r.Order(), "inbound messages must be enqueued in arrival order")

	plain := newSession(SessionConfig{BrokerURL: "tcp://localhost:1883", ClientID: "fixed"}, nil)
	opts, err = plain.clientOptions()
	require.NoError(t, err)
	r = paho.NewClient(opts).OptionsReader()
	assert.False(t, r.WillEnabled())
	assert.Equal(t, "fixed", r.ClientID())
}

func TestClientIDIsUnique(t *testing.T) {
	assert.NotEqual(t, ClientID(""), ClientID(""))
	assert.Equal(t, "node-1", ClientID("node-1"))
}

func TestTopics(t *testing.T) {
	topics := NewTopics("")
	assert.Equal(t, "pico/temperature", topics.Temperature)
	assert.Equal(t, "pico/humidity", topics.Humidity)
	assert.Equal(t, "pico/distance", topics.Distance)
	assert.Equal(t, "pico/lightlevel", topics.LightLevel)
	assert.Equal(t, "pico/oled", topics.Command)

	assert.Equal(t, "tank/oled", NewTopics("tank").Command)
}

func TestMatches(t *testing.T) {
	cases := []struct {
		filter, topic string
		want          bool
	}{
		{"pico/oled", "pico/oled", true},
		{"pico/+", "pico/oled", true},
		{"pico/#", "pico/oled/extra", true},
		{"pico/#", "pico", true},
		{"pico/+", "pico/oled/extra", false},
		{"pico/oled", "pico/other", false},
		{"pico/oled/x", "pico/oled", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Matches(tc.filter, tc.topic), "%s vs %s", tc.filter, tc.topic)
	}
}
