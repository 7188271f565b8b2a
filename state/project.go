package state

// StatusPayload is the canonical four-field status message for the
// simulated controller. Act1/Act2 are the literal strings "ON"/"OFF";
// Vent and Analog are JSON numbers.
type StatusPayload struct {
	Act1   string `json:"Act1"`
	Act2   string `json:"Act2"`
	Vent   int    `json:"Vent"`
	Analog int    `json:"Analog"`
}

// DoorLightPayload is the legacy two-field shape published by older
// controller sketches that only wire the sala light and door.
type DoorLightPayload struct {
	Act1   string `json:"Act1"`
	Analog int    `json:"Analog"`
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func doorAnalog(closed bool) int {
	if closed {
		return 0
	}
	return 100
}

// ProjectFullHouse maps the house onto the four-field payload. Only the
// sala door and fan have physical effect; the habitacion contributes its
// light alone.
func ProjectFullHouse(h *House) StatusPayload {
	sala := h.Get(Sala)
	hab := h.Get(Habitacion)
	return StatusPayload{
		Act1:   onOff(sala.LightOn),
		Act2:   onOff(hab.LightOn),
		Vent:   sala.FanSpeed,
		Analog: doorAnalog(sala.DoorClosed),
	}
}

// ProjectDoorAndLightOnly maps the house onto the legacy two-field payload.
func ProjectDoorAndLightOnly(h *House) DoorLightPayload {
	sala := h.Get(Sala)
	return DoorLightPayload{
		Act1:   onOff(sala.LightOn),
		Analog: doorAnalog(sala.DoorClosed),
	}
}
