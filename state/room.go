package state

// Room identifies one of the two rooms in the house. The set is fixed:
// only Sala is wired to the simulated door and fan actuators.
type Room int

const (
	Sala Room = iota
	Habitacion
)

func (r Room) String() string {
	switch r {
	case Sala:
		return "sala"
	case Habitacion:
		return "habitacion"
	default:
		return "unknown"
	}
}

// Rooms lists every room in fixed order.
func Rooms() []Room {
	return []Room{Sala, Habitacion}
}
