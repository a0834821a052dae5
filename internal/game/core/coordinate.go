package core

import (
	"fmt"
	"math"
)

// Position is a cell address on the grid. Row grows downwards, Col grows to
// the right, origin is the top-left cell.
type Position struct {
	Row, Col int
}

// NewPosition creates a new position with the given row and column
func NewPosition(row, col int) Position {
	return Position{Row: row, Col: col}
}

// FromIndex creates a position from a grid array index using row-major ordering
func FromIndex(idx, width int) Position {
	return Position{
		Row: idx / width,
		Col: idx % width,
	}
}

// IsValid checks if the position is within the given bounds
func (p Position) IsValid(width, height int) bool {
	return p.Row >= 0 && p.Row < height && p.Col >= 0 && p.Col < width
}

// ToIndex converts the position to a grid array index using row-major ordering
func (p Position) ToIndex(width int) int {
	return p.Row*width + p.Col
}

// DistanceTo calculates the Manhattan distance to another position
func (p Position) DistanceTo(other Position) int {
	dr := p.Row - other.Row
	dc := p.Col - other.Col
	if dr < 0 {
		dr = -dr
	}
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

// EuclideanTo calculates the straight-line distance to another position
func (p Position) EuclideanTo(other Position) float64 {
	dr := float64(p.Row - other.Row)
	dc := float64(p.Col - other.Col)
	return math.Sqrt(dr*dr + dc*dc)
}

// IsAdjacentTo checks if this position is orthogonally adjacent to another
func (p Position) IsAdjacentTo(other Position) bool {
	dr := p.Row - other.Row
	dc := p.Col - other.Col

	return (dr == 0 && (dc == 1 || dc == -1)) || (dc == 0 && (dr == 1 || dr == -1))
}

// IsAlignedWith reports whether both positions share a row or a column
func (p Position) IsAlignedWith(other Position) bool {
	return p.Row == other.Row || p.Col == other.Col
}

// Neighbors returns the four orthogonal neighbors in Up, Right, Down, Left order
func (p Position) Neighbors() [4]Position {
	return [4]Position{
		p.Move(Up),
		p.Move(Right),
		p.Move(Down),
		p.Move(Left),
	}
}

// Add returns the component-wise sum of two positions
func (p Position) Add(other Position) Position {
	return Position{Row: p.Row + other.Row, Col: p.Col + other.Col}
}

// Sub returns the component-wise difference between two positions
func (p Position) Sub(other Position) Position {
	return Position{Row: p.Row - other.Row, Col: p.Col - other.Col}
}

// Move returns a new position moved one step in the given direction
func (p Position) Move(d Direction) Position {
	return p.Add(d.Delta())
}

// DirectionTo returns the direction from this position to an adjacent one.
// ok is false if the positions are not adjacent.
func (p Position) DirectionTo(other Position) (Direction, bool) {
	if !p.IsAdjacentTo(other) {
		return Up, false
	}
	return DirectionFromDelta(other.Sub(p))
}

// String returns a string representation of the position
func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}
