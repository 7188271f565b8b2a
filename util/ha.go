package util

import (
	"encoding/json"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

type HAAdvertisementAvailability struct {
	Topic               string `json:"topic"`
	PayloadAvailable    string `json:"payload_available"`
	PayloadNotAvailable string `json:"payload_not_available"`
}

type HADeviceSpec struct {
	Name        string   `json:"name"`
	Identifiers []string `json:"ids"`
}

// HAAdvertisement is a Home Assistant MQTT discovery record. All casa
// entities share the single status topic and select their field with a
// value template.
type HAAdvertisement struct { //nolint:govet // struct layout follows JSON field order
	Availability  []HAAdvertisementAvailability `json:"availability"`
	Device        HADeviceSpec                  `json:"device"`
	UniqueID      string                        `json:"uniq_id"`
	Name          string                        `json:"name"`
	StateTopic    string                        `json:"state_topic"`
	ValueTemplate string                        `json:"value_template,omitempty"`
	PayloadOn     string                        `json:"payload_on,omitempty"`
	PayloadOff    string                        `json:"payload_off,omitempty"`
	DeviceClass   string                        `json:"device_class,omitempty"`
	Platform      string                        `json:"platform"`
	Qos           int                           `json:"qos"`
}

func (ha HAAdvertisement) ToJson() string {
	data, err := json.Marshal(ha)
	if err != nil {
		Logger.Error().Msgf("Error marshalling HAAdvertisement: %v", err)
		return ""
	}
	return string(data)
}

func constructAdvertisement(name, uniqueID, valueTemplate, deviceClass, platform string) HAAdvertisement {
	return HAAdvertisement{
		Name:          name,
		StateTopic:    Config.GetString("topic"),
		ValueTemplate: valueTemplate,
		Availability: []HAAdvertisementAvailability{
			{
				Topic:               Config.GetString("online_topic"),
				PayloadAvailable:    "online",
				PayloadNotAvailable: "offline",
			},
		},
		Qos:         0,
		UniqueID:    uniqueID,
		DeviceClass: deviceClass,
		Platform:    platform,
		Device: HADeviceSpec{
			Name:        "casa_inteligente",
			Identifiers: []string{"casa_inteligente"},
		},
	}
}

// CasaAdvertisements describes the four controller entities: the two
// room lights, the sala fan speed and the sala door.
func CasaAdvertisements() map[string]HAAdvertisement {
	luzSala := constructAdvertisement("Luz Sala", "casa_luz_sala",
		"{{ value_json.Act1 }}", "light", "binary_sensor")
	luzSala.PayloadOn = "ON"
	luzSala.PayloadOff = "OFF"

	luzHab := constructAdvertisement("Luz Habitacion", "casa_luz_habitacion",
		"{{ value_json.Act2 }}", "light", "binary_sensor")
	luzHab.PayloadOn = "ON"
	luzHab.PayloadOff = "OFF"

	puerta := constructAdvertisement("Puerta Sala", "casa_puerta_sala",
		"{{ 'ON' if value_json.Analog > 0 else 'OFF' }}", "door", "binary_sensor")
	puerta.PayloadOn = "ON"
	puerta.PayloadOff = "OFF"

	vent := constructAdvertisement("Ventilador Sala", "casa_ventilador_sala",
		"{{ value_json.Vent }}", "", "sensor")

	return map[string]HAAdvertisement{
		"homeassistant/binary_sensor/casa/luz_sala/config":       luzSala,
		"homeassistant/binary_sensor/casa/luz_habitacion/config": luzHab,
		"homeassistant/binary_sensor/casa/puerta_sala/config":    puerta,
		"homeassistant/sensor/casa/ventilador_sala/config":       vent,
	}
}

// AdvertiseCasa publishes the discovery records. Called on every broker
// connect so Home Assistant repopulates after a restart.
func AdvertiseCasa(client MQTT.Client) {
	for topic, ha := range CasaAdvertisements() {
		if token := client.Publish(topic, 0, false, ha.ToJson()); token.WaitTimeout(PublishAckTimeout) && token.Error() != nil {
			Logger.Warn().Msgf("Error publishing discovery record: %v", token.Error())
		}
	}
}
