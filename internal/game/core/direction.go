package core

import "fmt"

// Direction is one of the four discrete facings. Values match the wire format.
type Direction int

const (
	Up Direction = iota
	Right
	Down
	Left
)

// directionDeltas is indexed by Direction
var directionDeltas = [4]Position{
	Up:    {Row: -1, Col: 0},
	Right: {Row: 0, Col: 1},
	Down:  {Row: 1, Col: 0},
	Left:  {Row: 0, Col: -1},
}

// AllDirections lists the facings in wire order
var AllDirections = [4]Direction{Up, Right, Down, Left}

// IsValid reports whether d is one of the four facings
func (d Direction) IsValid() bool {
	return d >= Up && d <= Left
}

// Delta returns the unit step for the direction
func (d Direction) Delta() Position {
	if !d.IsValid() {
		return Position{}
	}
	return directionDeltas[d]
}

// Opposite returns the reverse facing
func (d Direction) Opposite() Direction {
	return (d + 2) % 4
}

// Rotate returns the facing after a single 90 degree turn
func (d Direction) Rotate(r RotationDirection) Direction {
	if r == RotateRight {
		return (d + 1) % 4
	}
	return (d + 3) % 4
}

// Orientation returns the axis the direction lies on
func (d Direction) Orientation() Orientation {
	if d == Up || d == Down {
		return Vertical
	}
	return Horizontal
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// DirectionFromDelta maps a unit step back to its direction
func DirectionFromDelta(delta Position) (Direction, bool) {
	for _, d := range AllDirections {
		if directionDeltas[d] == delta {
			return d, true
		}
	}
	return Up, false
}

// Orientation is the axis of a laser beam
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

// IsValid reports whether o is a known orientation
func (o Orientation) IsValid() bool {
	return o == Horizontal || o == Vertical
}

// Directions returns the two directions spanning the axis
func (o Orientation) Directions() [2]Direction {
	if o == Vertical {
		return [2]Direction{Up, Down}
	}
	return [2]Direction{Left, Right}
}

func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return fmt.Sprintf("Orientation(%d)", int(o))
	}
}

// RotationDirection is a single 90 degree turn
type RotationDirection int

const (
	// RotateLeft turns counter-clockwise
	RotateLeft RotationDirection = iota
	// RotateRight turns clockwise
	RotateRight
)

// IsValid reports whether r is a known rotation
func (r RotationDirection) IsValid() bool {
	return r == RotateLeft || r == RotateRight
}

func (r RotationDirection) String() string {
	switch r {
	case RotateLeft:
		return "left"
	case RotateRight:
		return "right"
	default:
		return fmt.Sprintf("RotationDirection(%d)", int(r))
	}
}

// Ptr returns a pointer to a copy of r, for optional rotation fields
func (r RotationDirection) Ptr() *RotationDirection {
	return &r
}
