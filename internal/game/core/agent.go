package core

// Player is the server's record for one participant
type Player struct {
	ID           string
	Nickname     string
	Color        uint32
	Score        int
	Kills        int
	Ping         int
	TicksToRegen *int
	IsUsingRadar bool
}

// IsDead reports whether the player is waiting to respawn
func (p *Player) IsDead() bool { return p.TicksToRegen != nil }

// Agent is the state of our own tank for the current tick
type Agent struct {
	ID              string
	Position        Position
	Direction       Direction
	TurretDirection Direction
	Health          *int
	SecondaryItem   *ItemKind
	BulletCount     int
	TicksToReload   *int
	Player          Player
}

// IsDead reports whether the agent cannot act this tick
func (a *Agent) IsDead() bool {
	return a == nil || a.Health == nil || *a.Health <= 0 || a.Player.IsDead()
}

// HasItem reports whether the agent carries the given secondary item
func (a *Agent) HasItem(kind ItemKind) bool {
	return a.SecondaryItem != nil && *a.SecondaryItem == kind
}

// Pose is the position and hull facing used for movement compilation
type Pose struct {
	Position  Position
	Direction Direction
}

func (a *Agent) Pose() Pose {
	return Pose{Position: a.Position, Direction: a.Direction}
}
