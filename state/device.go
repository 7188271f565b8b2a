package state

// DeviceState holds the toggles of a single room. Brightness and Presence
// are cosmetic only and never reach the wire payload.
type DeviceState struct {
	LightOn    bool
	Brightness int
	FanSpeed   int
	DoorClosed bool
	Presence   bool
}

// House is the per-session state of both rooms. Both rooms always exist,
// so lookups never fail. A House has a single logical owner (the session
// that created it) so no locking happens here.
type House struct {
	rooms [2]DeviceState
}

// NewHouse builds a house with session-start defaults: lights off,
// brightness 50, fans stopped, doors closed, nobody present.
func NewHouse() *House {
	h := &House{}
	for i := range h.rooms {
		h.rooms[i] = DeviceState{
			LightOn:    false,
			Brightness: 50,
			FanSpeed:   0,
			DoorClosed: true,
			Presence:   false,
		}
	}
	return h
}

func (h *House) Get(room Room) DeviceState {
	return h.rooms[room]
}

func (h *House) SetLight(room Room, on bool) {
	h.rooms[room].LightOn = on
}

// SetBrightness clamps to [0,100].
func (h *House) SetBrightness(room Room, value int) {
	if value < 0 {
		value = 0
	} else if value > 100 {
		value = 100
	}
	h.rooms[room].Brightness = value
}

// SetFanSpeed clamps to [0,3]. The clamp happens here, at mutation time,
// so projection never has to.
func (h *House) SetFanSpeed(room Room, speed int) {
	if speed < 0 {
		speed = 0
	} else if speed > 3 {
		speed = 3
	}
	h.rooms[room].FanSpeed = speed
}

func (h *House) SetDoorClosed(room Room, closed bool) {
	h.rooms[room].DoorClosed = closed
}

func (h *House) SetPresence(room Room, present bool) {
	h.rooms[room].Presence = present
}
