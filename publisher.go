package main

import (
	"encoding/json"

	"github.com/tomasclt/casa-inteligente-multimodal/state"
	. "github.com/tomasclt/casa-inteligente-multimodal/util"
)

// ProjectPayload picks the configured wire shape. The four-field payload
// is canonical; payload_shape "door_light" selects the legacy two-field
// shape for old controller sketches.
func ProjectPayload(h *state.House) interface{} {
	if Config.GetString("payload_shape") == "door_light" {
		return state.ProjectDoorAndLightOnly(h)
	}
	return state.ProjectFullHouse(h)
}

// PublishHouseState projects the house and fires the result at the
// status topic. The returned payload always reflects the house; delivered
// reports whether the broker took it. A failed publish never undoes a
// mutation.
func PublishHouseState(sessionID string, h *state.House) (interface{}, bool) {
	payload := ProjectPayload(h)
	data, err := json.Marshal(payload)
	if err != nil {
		Logger.Error().Msgf("Error marshaling status payload: %v", err)
		return payload, false
	}
	delivered := Publish(Config.GetString("topic"), data)
	if wsHub != nil {
		wsHub.BroadcastUpdate("estado", EstadoUpdate{
			Session:   sessionID,
			Payload:   payload,
			Delivered: delivered,
			Rooms:     roomStates(h),
		})
	}
	return payload, delivered
}

// EstadoUpdate is pushed to websocket clients after every mutation.
type EstadoUpdate struct {
	Session   string                  `json:"session"`
	Payload   interface{}             `json:"payload"`
	Delivered bool                    `json:"delivered"`
	Rooms     map[string]WebRoomState `json:"rooms"`
}

// WebRoomState mirrors one room's DeviceState for the web interface.
type WebRoomState struct {
	LightOn    bool `json:"light_on"`
	Brightness int  `json:"brightness"`
	FanSpeed   int  `json:"fan_speed"`
	DoorClosed bool `json:"door_closed"`
	Presence   bool `json:"presence"`
}

func roomStates(h *state.House) map[string]WebRoomState {
	out := make(map[string]WebRoomState, 2)
	for _, room := range state.Rooms() {
		d := h.Get(room)
		out[room.String()] = WebRoomState{
			LightOn:    d.LightOn,
			Brightness: d.Brightness,
			FanSpeed:   d.FanSpeed,
			DoorClosed: d.DoorClosed,
			Presence:   d.Presence,
		}
	}
	return out
}
