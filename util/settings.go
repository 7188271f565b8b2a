package util

import (
	"crypto/rand"
	"fmt"
	"reflect"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "CASA"

var Config = viper.New()

var config_listeners []func()

func RegisterNewConfigListener(new_listener func()) {
	for _, listener := range config_listeners {
		if reflect.ValueOf(new_listener).Pointer() == reflect.ValueOf(listener).Pointer() {
			Logger.Warn().Msg("config listener already registered")
			return
		}
	}
	config_listeners = append(config_listeners, new_listener)
}

func OnNewConfig() {
	for _, listener := range config_listeners {
		listener()
	}
}

func GetRandString(n int) string {
	const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, n)
	for i := range b {
		randBytes := make([]byte, 1)
		if _, err := rand.Read(randBytes); err != nil {
			b[i] = letterBytes[i%len(letterBytes)]
		} else {
			b[i] = letterBytes[int(randBytes[0])%len(letterBytes)]
		}
	}
	return string(b)
}

func SetupConfig() {
	Config.SetEnvPrefix(ENV_PREFIX)
	// set defaults
	Config.SetDefault("Broker_host", "broker.hivemq.com")
	Config.SetDefault("Broker_port", 1883)
	Config.SetDefault("Topic", "cmqtt_a")
	Config.SetDefault("Command_topic", "cmqtt_a/cmd")
	Config.SetDefault("Online_topic", "casa/online")
	Config.SetDefault("Payload_shape", "full")
	Config.SetDefault("Cleansess", false)
	Config.SetDefault("Id_base", "casa_inteligente")
	Config.SetDefault("Username", "")
	Config.SetDefault("Password", "")
	Config.SetDefault("Log_level", "info")
	Config.SetDefault("Details_port", 8407)
	Config.SetDefault("Classifier_url", "")
	Config.SetDefault("Gesture_min_confidence", 0.5)

	// config file
	Config.SetConfigName("casa_inteligente")
	Config.AddConfigPath("./")
	Config.AddConfigPath("./config")
	Config.AddConfigPath("/etc")
	Config.AddConfigPath("/casa_inteligente")
	Config.AddConfigPath("/casa_inteligente/config")

	err := Config.ReadInConfig()
	if err != nil {
		Logger.Warn().Msgf("unable to read config file: %v", fmt.Errorf("%v", err))
	}

	// environment variables
	Config.AutomaticEnv()

	// watch for changes
	Config.WatchConfig()
	Config.OnConfigChange(func(e fsnotify.Event) {
		Logger.Info().Msgf("Config file changed: %v", e.Name)
		Logger.Debug().Msgf("Config Additional Info: %v", e.String())
		OnNewConfig()
	})
}

// BrokerURI assembles the paho broker address from broker_host and
// broker_port. An explicit broker_uri wins when set.
func BrokerURI() string {
	if uri := Config.GetString("broker_uri"); uri != "" {
		return uri
	}
	return fmt.Sprintf("tcp://%s:%d", Config.GetString("broker_host"), Config.GetInt("broker_port"))
}
