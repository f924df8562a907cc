package device

// Direction is a hat switch position.
type Direction uint8

const (
	DirectionNone Direction = iota
	DirectionNorth
	DirectionNorthEast
	DirectionEast
	DirectionSouthEast
	DirectionSouth
	DirectionSouthWest
	DirectionWest
	DirectionNorthWest
)

var directionNames = [...]string{
	DirectionNone:      "none",
	DirectionNorth:     "north",
	DirectionNorthEast: "northeast",
	DirectionEast:      "east",
	DirectionSouthEast: "southeast",
	DirectionSouth:     "south",
	DirectionSouthWest: "southwest",
	DirectionWest:      "west",
	DirectionNorthWest: "northwest",
}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return "invalid"
}

// DirectionOf collapses four direction flags into a hat position.
// Diagonals are checked before single directions.
func DirectionOf(up, down, left, right bool) Direction {
	switch {
	case up && right:
		return DirectionNorthEast
	case up && left:
		return DirectionNorthWest
	case down && right:
		return DirectionSouthEast
	case down && left:
		return DirectionSouthWest
	case up:
		return DirectionNorth
	case down:
		return DirectionSouth
	case left:
		return DirectionWest
	case right:
		return DirectionEast
	default:
		return DirectionNone
	}
}

// Up, Down, Left and Right report which cardinal components d contains.
func (d Direction) Up() bool {
	return d == DirectionNorth || d == DirectionNorthEast || d == DirectionNorthWest
}

func (d Direction) Down() bool {
	return d == DirectionSouth || d == DirectionSouthEast || d == DirectionSouthWest
}

func (d Direction) Left() bool {
	return d == DirectionWest || d == DirectionNorthWest || d == DirectionSouthWest
}

func (d Direction) Right() bool {
	return d == DirectionEast || d == DirectionNorthEast || d == DirectionSouthEast
}
