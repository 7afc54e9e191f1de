package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	jsoniter "github.com/json-iterator/go"

	"github.com/bft-labs/carconsole/pkg/log"
	"github.com/bft-labs/carconsole/pkg/telemetry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MQTTConfig configures the MQTT telemetry source.
type MQTTConfig struct {
	// Broker is the broker URL.
	// Default: "tcp://localhost:1883"
	Broker string

	// Topic is the prefix under which every channel is published as
	// <Topic>/<channel>.
	// Default: "vehicle"
	Topic string

	// ClientID identifies this console to the broker.
	// Default: "carconsole-<unix time>"
	ClientID string

	// QoS for the subscription.
	// Default: 0
	QoS byte

	// ConnectTimeout bounds the initial connect.
	// Default: 10s
	ConnectTimeout time.Duration

	// KeepAlive is the MQTT keep-alive period.
	// Default: 60s
	KeepAlive time.Duration
}

// DefaultMQTTConfig returns an MQTTConfig with sensible defaults.
func DefaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Broker:         "tcp://localhost:1883",
		Topic:          "vehicle",
		ConnectTimeout: 10 * time.Second,
		KeepAlive:      60 * time.Second,
	}
}

// MQTT subscribes to <Topic>/# and turns every message into a sample for
// the channel named by the rest of the topic.
type MQTT struct {
	cfg    MQTTConfig
	logger log.Logger

	newClient func(*mqtt.ClientOptions) mqtt.Client
}

// NewMQTT creates the source. Zero fields of cfg take their defaults.
func NewMQTT(cfg MQTTConfig, logger log.Logger) *MQTT {
	def := DefaultMQTTConfig()
	if cfg.Broker == "" {
		cfg.Broker = def.Broker
	}
	cfg.Topic = strings.TrimSuffix(cfg.Topic, "/")
	if cfg.Topic == "" {
		cfg.Topic = def.Topic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("carconsole-%d", time.Now().Unix())
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = def.KeepAlive
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &MQTT{
		cfg:       cfg,
		logger:    log.With(logger, log.String("source", "mqtt")),
		newClient: mqtt.NewClient,
	}
}

// Name implements telemetry.Source.
func (m *MQTT) Name() string { return "mqtt" }

// Run connects, subscribes and feeds sink until ctx is done. A failed
// initial connect is returned so the caller can retry with backoff; later
// connection losses are handled by the client's auto-reconnect.
func (m *MQTT) Run(ctx context.Context, sink telemetry.Sink) error {
	filter := m.cfg.Topic + "/#"

	opts := mqtt.NewClientOptions()
	opts.AddBroker(m.cfg.Broker)
	opts.SetClientID(m.cfg.ClientID)
	opts.SetKeepAlive(m.cfg.KeepAlive)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(m.cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		token := c.Subscribe(filter, m.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
			m.handle(sink, msg)
		})
		if token.Wait() && token.Error() != nil {
			m.logger.Error("subscribe failed", log.String("topic", filter), log.Err(token.Error()))
			return
		}
		m.logger.Info("subscribed", log.String("topic", filter))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.logger.Warn("connection lost, reconnecting", log.Err(err))
	})

	client := m.newClient(opts)
	m.logger.Info("connecting", log.String("broker", m.cfg.Broker))
	token := client.Connect()
	if !token.WaitTimeout(m.cfg.ConnectTimeout) {
		// Stop the client's own connect attempt before the caller retries.
		client.Disconnect(0)
		return fmt.Errorf("connect %s: timed out after %s", m.cfg.Broker, m.cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return fmt.Errorf("connect %s: %w", m.cfg.Broker, err)
	}

	<-ctx.Done()
	client.Disconnect(250)
	return ctx.Err()
}

func (m *MQTT) handle(sink telemetry.Sink, msg mqtt.Message) {
	channel, ok := strings.CutPrefix(msg.Topic(), m.cfg.Topic+"/")
	if !ok || channel == "" {
		return
	}
	v, ts, err := DecodePayload(msg.Payload())
	if err != nil {
		m.logger.Debug("dropping message", log.String("topic", msg.Topic()), log.Err(err))
		return
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	if err := sink.Ingest(telemetry.Sample{Channel: channel, Value: v, Timestamp: ts}); err != nil {
		m.logger.Debug("sample rejected", log.String("channel", channel), log.Err(err))
	}
}

var errEmptyPayload = errors.New("empty payload")

// DecodePayload accepts a bare number, a JSON string, a JSON object
// {"value": <number|string>, "ts": <unix millis>} or plain text.
func DecodePayload(payload []byte) (telemetry.Value, time.Time, error) {
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return telemetry.Value{}, time.Time{}, errEmptyPayload
	}

	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return telemetry.Text(text), time.Time{}, nil
	}

	switch v := raw.(type) {
	case map[string]any:
		val, ok := v["value"]
		if !ok {
			return telemetry.Value{}, time.Time{}, errors.New(`object payload without "value"`)
		}
		out, err := scalar(val)
		if err != nil {
			return telemetry.Value{}, time.Time{}, err
		}
		var ts time.Time
		if ms, ok := v["ts"].(float64); ok && ms > 0 {
			ts = time.UnixMilli(int64(ms))
		}
		return out, ts, nil
	default:
		out, err := scalar(v)
		return out, time.Time{}, err
	}
}

func scalar(v any) (telemetry.Value, error) {
	switch x := v.(type) {
	case float64:
		return telemetry.Number(x), nil
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return telemetry.Number(f), nil
		}
		return telemetry.Text(x), nil
	case bool:
		if x {
			return telemetry.Number(1), nil
		}
		return telemetry.Number(0), nil
	default:
		return telemetry.Value{}, fmt.Errorf("unsupported value type %T", v)
	}
}
