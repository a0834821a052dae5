package pathfinding

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/core"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/threat"
	"github.com/mitchelldurbincs/TankBattleAgent/internal/game/world"
)

// DefaultThreshold is the danger a cell may carry and still be walkable
const DefaultThreshold = 0.2

// ErrNoPath is returned when the goal cannot be reached. It is an expected
// outcome, not a failure of the planner.
var ErrNoPath = errors.New("no path")

// Path is the ordered list of cells to enter, excluding the start cell and
// including the goal
type Path []core.Position

// Goal returns the last cell of the path
func (p Path) Goal() (core.Position, bool) {
	if len(p) == 0 {
		return core.Position{}, false
	}
	return p[len(p)-1], true
}

// Walkable reports whether p can be entered under the given danger threshold
func Walkable(m *world.Model, f threat.Field, p core.Position, threshold float64) bool {
	return m.InBounds(p) && !m.IsWall(p) && f.At(p) <= threshold
}

type node struct {
	idx   int
	g, h  float64
	seq   int
	index int
}

func (n *node) f() float64 { return n.g + n.h }

// openSet orders nodes by f, then h, then insertion sequence
type openSet []*node

func (o openSet) Len() int { return len(o) }

func (o openSet) Less(i, j int) bool {
	fi, fj := o[i].f(), o[j].f()
	if fi != fj {
		return fi < fj
	}
	if o[i].h != o[j].h {
		return o[i].h < o[j].h
	}
	return o[i].seq < o[j].seq
}

func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}

func (o *openSet) Push(x any) {
	n := x.(*node)
	n.index = len(*o)
	*o = append(*o, n)
}

func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*o = old[:len(old)-1]
	n.index = -1
	return n
}

// FindPath runs A* from start to goal over 4-connected unit-cost moves. The
// start cell is never tested for walkability.
func FindPath(m *world.Model, f threat.Field, start, goal core.Position, threshold float64) (Path, error) {
	if !m.InBounds(start) {
		return nil, fmt.Errorf("start %s: %w", start, core.ErrInvalidPosition)
	}
	if start == goal {
		return Path{}, nil
	}
	if !Walkable(m, f, goal, threshold) {
		return nil, fmt.Errorf("goal %s not walkable: %w", goal, ErrNoPath)
	}

	grid := m.Grid()
	n := grid.W * grid.H
	gScore := make([]float64, n)
	cameFrom := make([]int, n)
	closed := make([]bool, n)
	for i := range gScore {
		gScore[i] = math.Inf(1)
		cameFrom[i] = -1
	}

	startIdx := grid.Idx(start)
	goalIdx := grid.Idx(goal)
	gScore[startIdx] = 0

	seq := 0
	open := &openSet{}
	heap.Push(open, &node{idx: startIdx, g: 0, h: start.EuclideanTo(goal), seq: seq})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)
		if closed[cur.idx] {
			continue
		}
		if cur.idx == goalIdx {
			return reconstruct(grid, cameFrom, startIdx, goalIdx), nil
		}
		closed[cur.idx] = true

		pos := grid.Pos(cur.idx)
		for _, next := range pos.Neighbors() {
			if !Walkable(m, f, next, threshold) {
				continue
			}
			ni := grid.Idx(next)
			if closed[ni] {
				continue
			}
			g := cur.g + 1
			if g >= gScore[ni] {
				continue
			}
			gScore[ni] = g
			cameFrom[ni] = cur.idx
			seq++
			heap.Push(open, &node{idx: ni, g: g, h: next.EuclideanTo(goal), seq: seq})
		}
	}

	return nil, ErrNoPath
}

func reconstruct(grid *core.Grid, cameFrom []int, startIdx, goalIdx int) Path {
	var rev []core.Position
	for cur := goalIdx; cur != startIdx; cur = cameFrom[cur] {
		rev = append(rev, grid.Pos(cur))
	}
	path := make(Path, len(rev))
	for i, p := range rev {
		path[len(rev)-1-i] = p
	}
	return path
}
