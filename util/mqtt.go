package util

import (
	"errors"
	"fmt"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

// ErrPublishUnavailable is reported when the broker connection is down or
// the publish is not acknowledged in time. State mutations are never
// rolled back because of it; the payload simply did not go out.
var ErrPublishUnavailable = errors.New("publish sink unavailable")

// PublishAckTimeout bounds every wait on the broker. The interpreter and
// projector must never block behind a slow connection.
const PublishAckTimeout = 2 * time.Second

var Client MQTT.Client

var subscriptions map[string]MQTT.MessageHandler

var connectHandlers map[string]func(MQTT.Client)

var connectHandler MQTT.OnConnectHandler = func(client MQTT.Client) {
	Logger.Info().Msg("Connected")
	subscribe()
	client.Publish(Config.GetString("online_topic"), 0, false, "online").WaitTimeout(PublishAckTimeout)
	for _, handler := range connectHandlers {
		handler(client)
	}
}

func RegisterMQTTConnectHook(name string, handler func(MQTT.Client)) {
	if connectHandlers == nil {
		connectHandlers = make(map[string]func(client MQTT.Client))
	}
	if handler == nil {
		delete(connectHandlers, name)
	} else {
		connectHandlers[name] = handler
	}
}

func subscribe() {
	for topic, handler := range subscriptions {
		if token := Client.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
			Logger.Error().Msgf("Error Subscribing: %v", fmt.Errorf("%v", token.Error()))
		}
	}
}

func RegisterMQTTSubscription(topic string, handler MQTT.MessageHandler) {
	if subscriptions == nil {
		subscriptions = make(map[string]MQTT.MessageHandler)
	}
	if handler == nil {
		delete(subscriptions, topic)
	} else {
		subscriptions[topic] = handler
	}
}

func receiver(client MQTT.Client, message MQTT.Message) {
	Logger.Warn().Msgf("Received message on %v but no handler", message.Topic())
}

var connectLostHandler MQTT.ConnectionLostHandler = func(client MQTT.Client, err error) {
	Logger.Info().Msgf("Connect lost: %v", err)
}

// MqttInit builds the client and attempts the initial connection. An
// unreachable broker is not fatal: paho keeps retrying in the background
// and publishes report unavailable until it succeeds.
func MqttInit() {
	opts := MQTT.NewClientOptions()
	opts.AddBroker(BrokerURI())
	opts.SetClientID(Config.GetString("id_base") + "_" + GetRandString(6))
	opts.SetUsername(Config.GetString("username"))
	opts.SetPassword(Config.GetString("password"))
	opts.SetCleanSession(Config.GetBool("cleansess"))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetWill(Config.GetString("online_topic"), "offline", 0, false)
	opts.OnConnectionLost = connectLostHandler
	opts.OnConnect = connectHandler
	opts.SetDefaultPublishHandler(receiver)

	if Client != nil {
		Logger.Debug().Msg("Client exists - destroying")
		if Client.IsConnected() {
			Client.Disconnect(1000)
		}
		Client = nil
	}

	Client = MQTT.NewClient(opts)

	token := Client.Connect()
	if !token.WaitTimeout(PublishAckTimeout) {
		Logger.Warn().Msg("broker connection not acknowledged yet, continuing without it")
	} else if token.Error() != nil {
		Logger.Warn().Msgf("broker connection failed: %v", token.Error())
	}
}

// Reconnect tears the client down and dials again. Exposed to the user as
// a manual action; there is no automatic retry policy beyond paho's own.
func Reconnect() {
	Logger.Info().Msg("manual broker reconnect requested")
	MqttInit()
}

func IsConnected() bool {
	return Client != nil && Client.IsConnected()
}

// Publish delivers one payload to the broker, fire and forget. Every
// failure is non-fatal: it is logged and reported as false so callers can
// surface "unavailable" while keeping their state mutation.
func Publish(topic string, payload []byte) bool {
	if !IsConnected() {
		Logger.Warn().Msgf("publish to %s skipped: %v", topic, ErrPublishUnavailable)
		return false
	}
	token := Client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(PublishAckTimeout) {
		Logger.Warn().Msgf("publish to %s timed out: %v", topic, ErrPublishUnavailable)
		return false
	}
	if token.Error() != nil {
		Logger.Warn().Msgf("publish to %s failed: %v", topic, token.Error())
		return false
	}
	return true
}

// Close disconnects the client. Scoped to process shutdown; the
// connection is otherwise reused for the whole session lifetime.
func Close() {
	if Client != nil && Client.IsConnected() {
		Client.Disconnect(1000)
	}
	Client = nil
}
