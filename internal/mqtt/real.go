package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/inconshreveable/log15"

	"github.com/sweeney/button-sensor/internal/logic"
)

// DefaultBufferSize is how many messages are kept while the broker is unreachable.
const DefaultBufferSize = 256

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Options configures a RealPublisher.
type Options struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	BufferSize  int
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client  paho.Client
	prefix  string
	timeout time.Duration
	log     log.Logger

	mu        sync.Mutex
	buf       *ringBuffer
	connected int // number of successful connections so far
}

// NewRealPublisher creates a publisher for the given broker. If the broker is
// not reachable within the connect timeout the publisher is still returned;
// paho keeps retrying in the background and messages are buffered meanwhile.
func NewRealPublisher(o Options, logger log.Logger) (*RealPublisher, error) {
	if o.TopicPrefix == "" {
		o.TopicPrefix = DefaultTopicPrefix
	}
	if o.BufferSize == 0 {
		o.BufferSize = DefaultBufferSize
	}

	will, err := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "LWT"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	p := newPublisher(nil, o, logger)
	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(SystemTopic(o.TopicPrefix), will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("mqtt connection lost", "err", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		logger.Warn("mqtt broker not reachable yet, buffering", "broker", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func newPublisher(client paho.Client, o Options, logger log.Logger) *RealPublisher {
	return &RealPublisher{
		client:  client,
		prefix:  o.TopicPrefix,
		timeout: publishTimeout,
		log:     logger,
		buf:     newRingBuffer(o.BufferSize, logger),
	}
}

// Publish sends an edge event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{
		topic:   EventTopic(p.prefix, event.Input),
		payload: payload,
	})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.publish(bufferedMsg{
		topic:    SystemTopic(p.prefix),
		payload:  payload,
		qos:      1,
		retained: event.Retained,
	})
}

// publish sends msg, or buffers it while offline. The connection check and
// the push happen under mu so onConnect cannot drain in between.
func (p *RealPublisher) publish(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.buf.push(msg)
		p.mu.Unlock()
		p.log.Debug("mqtt offline, buffered", "topic", msg.topic)
		return nil
	}
	p.mu.Unlock()
	return p.send(msg)
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// onConnect replays buffered messages and announces reconnections.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	p.connected++
	reconnect := p.connected > 1
	dropped := p.buf.dropped
	p.buf.dropped = 0
	pending := p.buf.drainAll()
	p.mu.Unlock()

	p.log.Info("mqtt connected", "replay", len(pending), "dropped", dropped)
	for _, msg := range pending {
		if err := p.send(msg); err != nil {
			p.log.Warn("mqtt replay failed", "topic", msg.topic, "err", err)
		}
	}

	if !reconnect {
		return
	}
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
	if err != nil {
		p.log.Error("format reconnect payload", "err", err)
		return
	}
	if err := p.send(bufferedMsg{topic: SystemTopic(p.prefix), payload: payload, qos: 1}); err != nil {
		p.log.Warn("mqtt reconnect announce failed", "err", err)
	}
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}
