package util

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCasaAdvertisements(t *testing.T) {
	LogInit("warn")
	SetupConfig()

	ads := CasaAdvertisements()
	if len(ads) != 4 {
		t.Fatalf("expected 4 discovery records, got %d", len(ads))
	}

	for topic, ad := range ads {
		if !strings.HasPrefix(topic, "homeassistant/") {
			t.Errorf("discovery topic %q not under homeassistant/", topic)
		}
		if ad.StateTopic != Config.GetString("topic") {
			t.Errorf("%s: state topic = %q, expected %q", topic, ad.StateTopic, Config.GetString("topic"))
		}
		if ad.UniqueID == "" {
			t.Errorf("%s: empty unique id", topic)
		}
		if len(ad.Availability) != 1 || ad.Availability[0].Topic != Config.GetString("online_topic") {
			t.Errorf("%s: availability should point at the online topic", topic)
		}
	}

	light, ok := ads["homeassistant/binary_sensor/casa/luz_sala/config"]
	if !ok {
		t.Fatal("missing sala light discovery record")
	}
	if light.ValueTemplate != "{{ value_json.Act1 }}" {
		t.Errorf("sala light template = %q", light.ValueTemplate)
	}
	if light.PayloadOn != "ON" || light.PayloadOff != "OFF" {
		t.Errorf("sala light payloads = %q/%q, expected ON/OFF", light.PayloadOn, light.PayloadOff)
	}

	vent, ok := ads["homeassistant/sensor/casa/ventilador_sala/config"]
	if !ok {
		t.Fatal("missing fan discovery record")
	}
	if vent.Platform != "sensor" {
		t.Errorf("fan platform = %q, expected sensor", vent.Platform)
	}
}

func TestHAAdvertisementToJson(t *testing.T) {
	LogInit("warn")
	SetupConfig()

	ad := constructAdvertisement("Luz Sala", "casa_luz_sala", "{{ value_json.Act1 }}", "light", "binary_sensor")
	raw := ad.ToJson()
	if raw == "" {
		t.Fatal("ToJson returned empty string")
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("ToJson produced invalid JSON: %v", err)
	}
	if decoded["uniq_id"] != "casa_luz_sala" {
		t.Errorf("uniq_id = %v", decoded["uniq_id"])
	}
	if decoded["state_topic"] != Config.GetString("topic") {
		t.Errorf("state_topic = %v", decoded["state_topic"])
	}
}

func TestAdvertiseCasaPublishes(t *testing.T) {
	LogInit("warn")
	SetupConfig()

	mock := &MockMQTTClient{connected: true}
	AdvertiseCasa(mock)

	calls := mock.PublishCalls()
	if len(calls) != 4 {
		t.Fatalf("expected 4 discovery publishes, got %d", len(calls))
	}
	for _, call := range calls {
		if !strings.HasSuffix(call.Topic, "/config") {
			t.Errorf("discovery publish topic %q should end in /config", call.Topic)
		}
	}
}
