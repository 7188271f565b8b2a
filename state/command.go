package state

import (
	"errors"
	"strings"
)

// ErrAmbiguousRoom is returned when a command names no known room token.
// Nothing is mutated in that case.
var ErrAmbiguousRoom = errors.New("no room recognized in command")

var habitacionTokens = []string{"habitacion", "habitación", "cuarto", "dormitorio"}

// commandTable pairs a phrase set with the mutation it triggers. Entries
// are evaluated independently and in order; a command matching both an
// "on" and an "off" phrase applies both, so the later entry wins.
var commandTable = []struct {
	phrases []string
	apply   func(h *House, room Room)
}{
	{
		phrases: []string{"encender luz", "encender la luz", "enciende la luz", "prender luz", "luz on"},
		apply:   func(h *House, room Room) { h.SetLight(room, true) },
	},
	{
		phrases: []string{"apagar luz", "apagar la luz", "apaga la luz", "luz off"},
		apply:   func(h *House, room Room) { h.SetLight(room, false) },
	},
	{
		phrases: []string{"subir ventilador", "sube el ventilador", "aumentar ventilador", "ventilador mas"},
		apply:   func(h *House, room Room) { h.SetFanSpeed(room, h.Get(room).FanSpeed+1) },
	},
	{
		phrases: []string{"bajar ventilador", "baja el ventilador", "reducir ventilador", "ventilador menos"},
		apply:   func(h *House, room Room) { h.SetFanSpeed(room, h.Get(room).FanSpeed-1) },
	},
	{
		phrases: []string{"apagar ventilador", "apaga el ventilador", "ventilador off"},
		apply:   func(h *House, room Room) { h.SetFanSpeed(room, 0) },
	},
	{
		// only kicks the fan when it is stopped
		phrases: []string{"encender ventilador", "prender ventilador", "ventilador on"},
		apply: func(h *House, room Room) {
			if h.Get(room).FanSpeed == 0 {
				h.SetFanSpeed(room, 1)
			}
		},
	},
	{
		// doors are hard-wired to the sala; only its door is actuated
		phrases: []string{"abrir puerta", "abre la puerta", "puerta abierta"},
		apply:   func(h *House, room Room) { h.SetDoorClosed(Sala, false) },
	},
	{
		phrases: []string{"cerrar puerta", "cierra la puerta", "puerta cerrada"},
		apply:   func(h *House, room Room) { h.SetDoorClosed(Sala, true) },
	},
}

// Interpret applies a free-text Spanish command to the house. It reports
// which room the command named and whether any field changed. An
// unrecognized phrase with a recognized room is not an error: the caller
// just reports "no recognized command".
func Interpret(text string, h *House) (Room, bool, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))

	var room Room
	switch {
	case strings.Contains(normalized, "sala"):
		room = Sala
	case containsAny(normalized, habitacionTokens):
		room = Habitacion
	default:
		return 0, false, ErrAmbiguousRoom
	}

	applied := false
	for _, entry := range commandTable {
		if containsAny(normalized, entry.phrases) {
			entry.apply(h, room)
			applied = true
		}
	}
	return room, applied, nil
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
