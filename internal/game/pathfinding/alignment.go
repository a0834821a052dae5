package pathfinding

import (
	"github.com/mitchelldurbincs/TankBattleAgent/internal/common"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/threat"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/world"
)

// DefaultAlignmentDepth bounds the alignment search in ticks
const DefaultAlignmentDepth = 12

// ClearLine reports whether from and to share a row or column with no wall
// strictly between them
func ClearLine(m *world.Model, from, to core.Position) bool {
	if from == to {
		return true
	}
	if !from.IsAlignedWith(to) {
		return false
	}
	d, _ := core.DirectionFromDelta(core.NewPosition(common.Sign(to.Row-from.Row), common.Sign(to.Col-from.Col)))
	for p := from.Move(d); p != to; p = p.Move(d) {
		if m.IsWall(p) {
			return false
		}
	}
	return true
}

type alignState struct {
	pos    core.Position
	facing core.Direction
}

// AlignmentQuery describes a search for a cell to shoot from
type AlignmentQuery struct {
	Start    core.Position
	Facing   core.Direction
	IsTarget func(core.Position) bool
	// MaxDepth bounds the search in ticks; DefaultAlignmentDepth when <= 0
	MaxDepth int
	// Threshold is the danger a cell entered on the way may carry
	Threshold float64
}

// FindAlignment searches, breadth first over (cell, hull facing) states, for
// the cell satisfying IsTarget that the tank can reach in the fewest ticks.
// A tick is one forward move or one 90 degree hull turn. The search never
// expands past MaxDepth ticks, so it always terminates. The returned path
// lists the cells entered, excluding the start.
func FindAlignment(m *world.Model, f threat.Field, q AlignmentQuery) (Path, error) {
	if !m.InBounds(q.Start) {
		return nil, core.ErrInvalidPosition
	}
	if q.IsTarget(q.Start) {
		return Path{}, nil
	}
	maxDepth := q.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultAlignmentDepth
	}

	grid := m.Grid()
	stateIdx := func(s alignState) int { return grid.Idx(s.pos)*4 + int(s.facing) }

	parent := make([]int, grid.W*grid.H*4)
	for i := range parent {
		parent[i] = -2
	}
	root := alignState{pos: q.Start, facing: q.Facing}
	parent[stateIdx(root)] = -1

	frontier := []alignState{root}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []alignState
		for _, s := range frontier {
			for _, succ := range successors(s) {
				moved := succ.pos != s.pos
				if moved && !Walkable(m, f, succ.pos, q.Threshold) {
					continue
				}
				si := stateIdx(succ)
				if parent[si] != -2 {
					continue
				}
				parent[si] = stateIdx(s)
				if moved && q.IsTarget(succ.pos) {
					return alignmentPath(grid, parent, si, q.Start), nil
				}
				next = append(next, succ)
			}
		}
		frontier = next
	}

	return nil, ErrNoPath
}

func successors(s alignState) [3]alignState {
	return [3]alignState{
		{pos: s.pos.Move(s.facing), facing: s.facing},
		{pos: s.pos, facing: s.facing.Rotate(core.RotateLeft)},
		{pos: s.pos, facing: s.facing.Rotate(core.RotateRight)},
	}
}

func alignmentPath(grid *core.Grid, parent []int, last int, start core.Position) Path {
	var rev []core.Position
	prev := start
	for si := last; parent[si] != -1; si = parent[si] {
		p := grid.Pos(si / 4)
		if p != prev && p != start {
			rev = append(rev, p)
			prev = p
		}
	}
	path := make(Path, len(rev))
	for i, p := range rev {
		path[len(rev)-1-i] = p
	}
	return path
}

// WalkableNear returns every walkable cell other than center within the
// square of the given radius, in row-major order
func WalkableNear(m *world.Model, f threat.Field, center core.Position, radius int, threshold float64) []core.Position {
	var cells []core.Position
	lastRow, lastCol := m.Height()-1, m.Width()-1
	top, bottom := common.ClampInt(center.Row-radius, 0, lastRow), common.ClampInt(center.Row+radius, 0, lastRow)
	left, right := common.ClampInt(center.Col-radius, 0, lastCol), common.ClampInt(center.Col+radius, 0, lastCol)
	for r := top; r <= bottom; r++ {
		for c := left; c <= right; c++ {
			p := core.NewPosition(r, c)
			if p == center || !Walkable(m, f, p, threshold) {
				continue
			}
			cells = append(cells, p)
		}
	}
	return cells
}
