//go:build !no_mqtt

package mqtt

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"xbee-go-home/internal/stack"
	"xbee-go-home/internal/store"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
	ClientID    string
}

// Backend is the part of the stack the bridge uses.
type Backend interface {
	Events() *stack.EventBus
	Store() store.Store
	Send(ctx context.Context, r stack.SendRequest) error
}

// Bridge publishes stack events to MQTT and forwards send requests from it.
type Bridge struct {
	client  pahomqtt.Client
	backend Backend
	prefix  string
	logger  *slog.Logger
	unsub   func()
	ctx     context.Context
	cancel  context.CancelFunc
	now     func() time.Time
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(backend Backend, cfg Config, logger *slog.Logger) (*Bridge, error) {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		backend: backend,
		prefix:  cfg.TopicPrefix,
		logger:  logger.With("component", "mqtt"),
		ctx:     ctx,
		cancel:  cancel,
		now:     time.Now,
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "xbee-go-home"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(b.bridgeTopic("state"), "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			b.logger.Info("MQTT connected")
			b.publishBridgeState("online")
			b.publishAllNodes()
			b.subscribeSend()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			b.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		cancel()
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		cancel()
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	b.client = client
	return b, nil
}

// Start subscribes to stack events and begins MQTT publishing.
func (b *Bridge) Start() {
	b.unsub = b.backend.Events().OnAll(b.handleEvent)
	b.logger.Info("MQTT bridge started", "prefix", b.prefix)
}

// Stop publishes offline state, unsubscribes, and disconnects.
func (b *Bridge) Stop() {
	b.cancel()
	if b.unsub != nil {
		b.unsub()
	}
	b.publishBridgeState("offline")
	b.client.Disconnect(1000)
	b.logger.Info("MQTT bridge stopped")
}

// handleEvent runs on the stack loop and must not block.
func (b *Bridge) handleEvent(event stack.Event) {
	switch data := event.Data.(type) {
	case stack.EnvelopeData:
		b.publish(envelopeTopic(b.prefix, data), buildEnvelopeMessage(data, b.now()), false)
	case stack.ModemStatusData:
		b.publish(b.bridgeTopic("modem"), mustJSON(data), true)
	case stack.SerialData:
		raw, err := hex.DecodeString(data.Data)
		if err != nil {
			return
		}
		b.publish(serialTopic(b.prefix, data.IEEE), raw, false)
	case stack.AnnounceData:
		b.publishNode(data.IEEE)
	case stack.ActiveEndpointsData:
		b.publishNode(data.IEEE)
	case stack.SimpleDescriptorData:
		b.publishNode(data.IEEE)
	default:
		if event.Type == stack.EventTransmitStatus {
			b.publish(b.bridgeTopic("tx_status"), mustJSON(event.Data), false)
		}
	}
}

func (b *Bridge) bridgeTopic(name string) string {
	return b.prefix + "/bridge/" + name
}

func (b *Bridge) publishBridgeState(state string) {
	b.publish(b.bridgeTopic("state"), []byte(state), true)
}

func (b *Bridge) publishNode(ieee string) {
	node, err := b.backend.Store().GetNode(ieee)
	if err != nil {
		b.logger.Debug("node for info topic", "ieee", ieee, "err", err)
		return
	}
	b.publish(nodeTopic(b.prefix, ieee), mustJSON(node), true)
}

func (b *Bridge) publishAllNodes() {
	nodes, err := b.backend.Store().ListNodes()
	if err != nil {
		b.logger.Error("list nodes", "err", err)
		return
	}
	for _, n := range nodes {
		b.publish(nodeTopic(b.prefix, n.IEEEAddress), mustJSON(n), true)
	}
}

func (b *Bridge) subscribeSend() {
	b.client.Subscribe(b.prefix+"/send", 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		b.handleSend(msg.Payload())
	})
}

func (b *Bridge) handleSend(payload []byte) {
	req, err := parseSendCommand(payload)
	if err != nil {
		b.logger.Warn("invalid send command", "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(b.ctx, 10*time.Second)
	defer cancel()
	if err := b.backend.Send(ctx, req); err != nil {
		b.logger.Warn("send failed", "ieee", req.IEEE, "cluster", fmt.Sprintf("0x%04X", req.Cluster), "err", err)
	}
}

func (b *Bridge) publish(topic string, payload []byte, retained bool) {
	token := b.client.Publish(topic, 1, retained, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			b.logger.Warn("MQTT publish timeout", "topic", topic)
		} else if err := token.Error(); err != nil {
			b.logger.Warn("MQTT publish error", "topic", topic, "err", err)
		}
	}()
}

// envelopeTopic is <prefix>/<ieee>/<source endpoint>/<cluster>.
func envelopeTopic(prefix string, d stack.EnvelopeData) string {
	return fmt.Sprintf("%s/%s/%02X/%04X", prefix, d.IEEE, d.SourceEndpoint, d.Cluster)
}

func serialTopic(prefix, ieee string) string {
	return prefix + "/" + ieee + "/serial"
}

func nodeTopic(prefix, ieee string) string {
	return prefix + "/" + ieee + "/info"
}

type envelopeMessage struct {
	stack.EnvelopeData
	Time string `json:"time"`
}

func buildEnvelopeMessage(d stack.EnvelopeData, now time.Time) []byte {
	return mustJSON(envelopeMessage{EnvelopeData: d, Time: now.UTC().Format(time.RFC3339Nano)})
}

// parseSendCommand decodes a send request published to <prefix>/send.
func parseSendCommand(payload []byte) (stack.SendRequest, error) {
	var req stack.SendRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, fmt.Errorf("decode send command: %w", err)
	}
	if req.IEEE == "" {
		return req, fmt.Errorf("send command: ieee is required")
	}
	if _, err := hex.DecodeString(req.Payload); err != nil {
		return req, fmt.Errorf("send command: payload is not hex: %w", err)
	}
	return req, nil
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
