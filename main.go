package main

import (
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"

	"github.com/tomasclt/casa-inteligente-multimodal/state"
	. "github.com/tomasclt/casa-inteligente-multimodal/util"
)

var sessions *SessionManager

// commandReceiver interprets free-text commands arriving over MQTT
// against the kiosk session.
func commandReceiver(client MQTT.Client, message MQTT.Message) {
	text := string(message.Payload())
	Logger.Info().Msgf("command received on %s: %s", message.Topic(), text)
	sessions.Mutate(KioskSession, func(house *state.House) {
		_, mutated, err := state.Interpret(text, house)
		if err != nil {
			Logger.Info().Msgf("command ignored: %v", err)
			return
		}
		if !mutated {
			Logger.Info().Msg("no recognized command")
			return
		}
		PublishHouseState(KioskSession, house)
	})
}

func main() {
	LogInit("info")
	SetupConfig()
	RegisterNewConfigListener(func() { LogInit(Config.GetString("log_level")) })
	RegisterMQTTConnectHook("haadvertise", func(client MQTT.Client) {
		AdvertiseCasa(client)
	})
	RegisterMQTTSubscription(Config.GetString("command_topic"), commandReceiver)
	RegisterNewConfigListener(MqttInit)

	sessions = NewSessionManager()
	classifier = NewGestureClassifier()

	OnNewConfig()

	monitor := NewMonitorServer()
	monitor.AddHandler("/", HomeHandler)
	monitor.AddHandler("/ws", ServeWebSocket)
	monitor.AddHandler("/api/status", APIStatus)
	monitor.AddHandler("/api/device", APIDevice)
	monitor.AddHandler("/api/command", APICommand)
	monitor.AddHandler("/api/gesture", APIGesture)
	monitor.AddHandler("/api/gesture/image", APIGestureImage)
	monitor.AddHandler("/api/publish", APIPublish)
	monitor.AddHandler("/api/reconnect", APIReconnect)
	monitor.AddHandler("/gesture_image", HttpGestureImage)
	if err := monitor.Start(); err != nil {
		Logger.Error().Msgf("Error starting web server: %v", err)
	}
	RegisterNewConfigListener(func() { monitor.Restart() })

	cam_forwarder.MakeCamForwarder()
	cam_forwarder.Start()

	Logger.Info().Msg("ready")
	go OnlinePinger()
	select {} // block forever
}

// OnlinePinger keeps the liveness topic fresh so Home Assistant marks
// the entities available.
func OnlinePinger() {
	for {
		if IsConnected() {
			if token := Client.Publish(Config.GetString("online_topic"), 0, false, "online"); token.WaitTimeout(PublishAckTimeout) && token.Error() != nil {
				Logger.Error().Msgf("Error publishing online message: %v", token.Error())
			}
		}
		time.Sleep(10 * time.Second)
	}
}
