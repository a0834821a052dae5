package core

import "fmt"

// Cell is a single grid square.
// Zone: index of the zone covering the cell, nil outside zones.
type Cell struct {
	Occupant Occupant
	Zone     *int
	Visible  bool
}

func (c *Cell) IsWall() bool  { return c.Occupant.IsWall() }
func (c *Cell) IsEmpty() bool { return c.Occupant.IsEmpty() }

// Grid is a fixed size board
type Grid struct {
	W, H  int
	Cells []Cell // length = W*H (row-major)
}

// NewGrid allocates an empty grid. Dimensions must be positive.
func NewGrid(w, h int) (*Grid, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%dx%d: %w", w, h, ErrBadDimensions)
	}
	return &Grid{W: w, H: h, Cells: make([]Cell, w*h)}, nil
}

func (g *Grid) Idx(p Position) int       { return p.Row*g.W + p.Col }
func (g *Grid) Pos(idx int) Position     { return FromIndex(idx, g.W) }
func (g *Grid) InBounds(p Position) bool { return p.IsValid(g.W, g.H) }

// At returns the cell at p, nil when out of bounds
func (g *Grid) At(p Position) *Cell {
	if !g.InBounds(p) {
		return nil
	}
	return &g.Cells[g.Idx(p)]
}

// IsWall reports whether p is a wall. Out of bounds counts as a wall.
func (g *Grid) IsWall(p Position) bool {
	c := g.At(p)
	return c == nil || c.IsWall()
}

// OnBorder reports whether p touches the outer edge of the grid
func (g *Grid) OnBorder(p Position) bool {
	return p.Row == 0 || p.Col == 0 || p.Row == g.H-1 || p.Col == g.W-1
}
