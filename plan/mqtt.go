package plan

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// CommandHandler receives commands arriving on the command topic
type CommandHandler func(cmd Command)

// MQTTClient manages the broker connection and the command subscription
type MQTTClient struct {
	client      mqtt.Client
	config      MQTTConfig
	handler     CommandHandler
	isConnected bool
	stop        chan struct{}
	stopOnce    sync.Once
	mu          sync.RWMutex
}

// ConnectMQTT builds a client for cfg and connects in the background with
// retry. An empty broker disables MQTT and returns nil, nil.
func ConnectMQTT(cfg MQTTConfig, handler CommandHandler) (*MQTTClient, error) {
	if cfg.Broker == "" {
		logger().Infow("MQTT disabled: no broker configured")
		return nil, nil
	}

	client := &MQTTClient{
		config:  cfg,
		handler: handler,
		stop:    make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "roomplan"
	}
	opts.SetClientID(clientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false)
	opts.SetOrderMatters(true) // commands must apply in arrival order

	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)
	opts.SetReconnectingHandler(client.onReconnecting)

	client.client = mqtt.NewClient(opts)
	go client.connectWithRetry()

	return client, nil
}

// newMQTTClientWithMock wraps a provided mqtt.Client (for tests)
func newMQTTClientWithMock(client mqtt.Client, cfg MQTTConfig, handler CommandHandler) *MQTTClient {
	return &MQTTClient{
		client:  client,
		config:  cfg,
		handler: handler,
		stop:    make(chan struct{}),
	}
}

// CommandTopic is where remote commands are received
func (c *MQTTClient) CommandTopic() string {
	prefix := c.config.PublishPrefix
	if prefix == "" {
		prefix = "roomplan"
	}
	return prefix + "/command"
}

// connectWithRetry connects with exponential backoff until it succeeds or
// the client is disconnected
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		logger().Infow("connecting to MQTT broker", "broker", c.config.Broker)

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				logger().Infow("connected to MQTT broker", "broker", c.config.Broker)
				c.setConnected(true)
				return
			}
			logger().Warnw("MQTT connection failed", "err", token.Error())
		} else {
			logger().Warnw("MQTT connection timeout")
		}

		logger().Infow("retrying MQTT connection", "delay", retryDelay)
		select {
		case <-c.stop:
			return
		case <-time.After(retryDelay):
		}
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

func (c *MQTTClient) onConnect(client mqtt.Client) {
	c.setConnected(true)

	topic := c.CommandTopic()
	token := client.Subscribe(topic, 1, c.handleCommand)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		logger().Errorw("subscribing to command topic", "topic", topic, "err", token.Error())
		return
	}
	logger().Infow("subscribed to command topic", "topic", topic)
}

func (c *MQTTClient) onConnectionLost(_ mqtt.Client, err error) {
	logger().Warnw("MQTT connection interrupted, auto-reconnect will retry", "err", err)
	c.setConnected(false)
}

func (c *MQTTClient) onReconnecting(_ mqtt.Client, _ *mqtt.ClientOptions) {
	logger().Infow("MQTT reconnecting")
}

func (c *MQTTClient) handleCommand(_ mqtt.Client, msg mqtt.Message) {
	cmd, err := ParseCommand(msg.Payload())
	if err != nil {
		logger().Warnw("ignoring command", "topic", msg.Topic(), "err", err)
		return
	}
	logger().Debugw("received command", "action", cmd.Action)
	if c.handler != nil {
		c.handler(cmd)
	}
}

// IsConnected returns true if the MQTT client is connected
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect stops any pending retry and closes the connection
func (c *MQTTClient) Disconnect() {
	c.stopOnce.Do(func() { close(c.stop) })
	if c.client != nil && c.client.IsConnected() {
		logger().Infow("disconnecting from MQTT broker")
		c.client.Disconnect(250)
	}
	c.setConnected(false)
}

// Client returns the underlying MQTT client for publishing
func (c *MQTTClient) Client() mqtt.Client {
	return c.client
}
