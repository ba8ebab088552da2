package sink

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/dhcptap/internal/observability"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTTConfig configures the MQTT publisher.
type MQTTConfig struct {
	Brokers        []string // tcp://host:port URLs
	Topic          string
	ClientID       string
	QoS            byte
	SourceAddress  string
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
	Reconnect      BackoffConfig
}

func DefaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		QoS:            1,
		ConnectTimeout: 5 * time.Second,
		PublishTimeout: 5 * time.Second,
		Reconnect:      DefaultBackoff(),
	}
}

func (c MQTTConfig) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("%w: no brokers", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Topic) == "" {
		return fmt.Errorf("%w: missing topic", ErrInvalidConfig)
	}
	if c.QoS > 2 {
		return fmt.Errorf("%w: qos %d", ErrInvalidConfig, c.QoS)
	}
	if c.Reconnect.MaxDelay > 0 && c.Reconnect.MaxDelay < c.Reconnect.InitialDelay {
		return fmt.Errorf("%w: max reconnect delay %s below initial %s", ErrInvalidConfig, c.Reconnect.MaxDelay, c.Reconnect.InitialDelay)
	}
	if c.SourceAddress != "" && net.ParseIP(c.SourceAddress) == nil {
		return fmt.Errorf("%w: source address %q is not an IP", ErrInvalidConfig, c.SourceAddress)
	}
	return nil
}

// MQTT publishes envelopes to one topic. It connects lazily and never lets
// connect attempts come closer together than the reconnect backoff allows,
// so a dead broker costs one dial per gap instead of one per transaction.
type MQTT struct {
	cfg       MQTTConfig
	log       zerolog.Logger
	now       func() time.Time
	newClient func(*paho.ClientOptions) paho.Client

	mu          sync.Mutex
	client      paho.Client
	lastAttempt time.Time
	failures    int
	closed      bool
}

func NewMQTT(cfg MQTTConfig, logger zerolog.Logger) (*MQTT, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &MQTT{
		cfg:       cfg,
		log:       logger,
		now:       time.Now,
		newClient: paho.NewClient,
	}, nil
}

// Connect dials the brokers unless a connection is already up. It returns
// ErrReconnectThrottled when the previous attempt is too recent.
func (m *MQTT) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.connectLocked(ctx)
	return err
}

func (m *MQTT) connectLocked(ctx context.Context) (paho.Client, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if m.client != nil {
		if m.client.IsConnected() {
			return m.client, nil
		}
		m.client = nil
	}

	now := m.now()
	gap := NextBackoffDelay(m.cfg.Reconnect, m.failures+1)
	if !m.lastAttempt.IsZero() && now.Sub(m.lastAttempt) < gap {
		return nil, fmt.Errorf("%w: last attempt %s ago, gap %s",
			ErrReconnectThrottled, now.Sub(m.lastAttempt).Round(time.Millisecond), gap)
	}
	m.lastAttempt = now

	client := m.newClient(m.clientOptions())
	err := waitToken(ctx, client.Connect(), m.cfg.ConnectTimeout)
	observability.RecordConnect("mqtt", err)
	if err != nil {
		// The connect may still complete after ctx or the timeout gave up on it.
		client.Disconnect(0)
		m.failures++
		m.log.Error().Err(err).Strs("brokers", m.cfg.Brokers).Int("failures", m.failures).Msg("mqtt connect failed")
		return nil, fmt.Errorf("sink: connect: %w", err)
	}
	if m.failures > 0 {
		m.log.Info().Int("failures", m.failures).Msg("mqtt reconnected")
	}
	m.failures = 0
	m.client = client
	m.log.Debug().Strs("brokers", m.cfg.Brokers).Str("client_id", m.cfg.ClientID).Msg("mqtt connected")
	return client, nil
}

func (m *MQTT) clientOptions() *paho.ClientOptions {
	opts := paho.NewClientOptions()
	for _, broker := range m.cfg.Brokers {
		opts.AddBroker(broker)
	}
	opts.SetClientID(m.cfg.ClientID)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(m.cfg.ConnectTimeout)
	if m.cfg.SourceAddress != "" {
		opts.SetDialer(&net.Dialer{
			Timeout:   m.cfg.ConnectTimeout,
			LocalAddr: &net.TCPAddr{IP: net.ParseIP(m.cfg.SourceAddress)},
		})
	}
	return opts
}

func (m *MQTT) Publish(ctx context.Context, payload []byte) error {
	m.mu.Lock()
	client, err := m.connectLocked(ctx)
	m.mu.Unlock()
	if err != nil {
		observability.RecordPublish("mqtt", err)
		return err
	}

	err = waitToken(ctx, client.Publish(m.cfg.Topic, m.cfg.QoS, false, payload), m.cfg.PublishTimeout)
	observability.RecordPublish("mqtt", err)
	if err != nil {
		return fmt.Errorf("sink: publish %s: %w", m.cfg.Topic, err)
	}
	return nil
}

// Subscribe delivers every payload on the configured topic to handler until
// Close. Handlers run on the client's delivery goroutine.
func (m *MQTT) Subscribe(ctx context.Context, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	client, err := m.connectLocked(ctx)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	token := client.Subscribe(m.cfg.Topic, m.cfg.QoS, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if err := waitToken(ctx, token, m.cfg.ConnectTimeout); err != nil {
		return fmt.Errorf("sink: subscribe %s: %w", m.cfg.Topic, err)
	}
	return nil
}

func (m *MQTT) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.client != nil {
		m.client.Disconnect(250)
		m.client = nil
	}
	return nil
}

func waitToken(ctx context.Context, token paho.Token, timeout time.Duration) error {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		return ErrTimeout
	}
}
