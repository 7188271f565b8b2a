package state

// Gesture labels produced by the classifier. The set is closed; two
// deployments exist, one with door gestures and one with fan gestures,
// so the union is accepted here.
const (
	GestureLuzOn         = "luz_on"
	GestureLuzOff        = "luz_off"
	GesturePuertaAbierta = "puerta_abierta"
	GesturePuertaCerrada = "puerta_cerrada"
	GestureVentiladorOn  = "ventilador_on"
	GestureVentiladorOff = "ventilador_off"
)

// ApplyGesture maps a classifier label onto the sala, unconditionally.
// Confidence gating, if any, is the caller's business. Unknown labels are
// a no-op and report false.
func ApplyGesture(label string, h *House) bool {
	switch label {
	case GestureLuzOn:
		h.SetLight(Sala, true)
	case GestureLuzOff:
		h.SetLight(Sala, false)
	case GesturePuertaAbierta:
		h.SetDoorClosed(Sala, false)
	case GesturePuertaCerrada:
		h.SetDoorClosed(Sala, true)
	case GestureVentiladorOn:
		if h.Get(Sala).FanSpeed == 0 {
			h.SetFanSpeed(Sala, 1)
		}
	case GestureVentiladorOff:
		h.SetFanSpeed(Sala, 0)
	default:
		return false
	}
	return true
}
