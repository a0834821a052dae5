package core

import "fmt"

// OccupantKind discriminates the primary occupant of a cell
type OccupantKind int

const (
	OccupantEmpty OccupantKind = iota
	OccupantWall
	OccupantBullet
	OccupantDoubleBullet
	OccupantLaser
	OccupantMine
	OccupantItem
	OccupantEnemyTank
	OccupantSelfTank
)

func (k OccupantKind) String() string {
	switch k {
	case OccupantEmpty:
		return "empty"
	case OccupantWall:
		return "wall"
	case OccupantBullet:
		return "bullet"
	case OccupantDoubleBullet:
		return "double_bullet"
	case OccupantLaser:
		return "laser"
	case OccupantMine:
		return "mine"
	case OccupantItem:
		return "item"
	case OccupantEnemyTank:
		return "enemy_tank"
	case OccupantSelfTank:
		return "self_tank"
	default:
		return fmt.Sprintf("OccupantKind(%d)", int(k))
	}
}

// IsTransient reports whether the occupant only exists while observed.
// Projectiles and our own old position are cleared from cells that drop out
// of sight.
func (k OccupantKind) IsTransient() bool {
	switch k {
	case OccupantBullet, OccupantDoubleBullet, OccupantLaser, OccupantSelfTank:
		return true
	default:
		return false
	}
}

// ItemKind is a collectible secondary item. Values match the wire format.
type ItemKind int

const (
	ItemLaser ItemKind = iota + 1
	ItemDoubleBullet
	ItemRadar
	ItemMine
)

func (i ItemKind) IsValid() bool {
	return i >= ItemLaser && i <= ItemMine
}

func (i ItemKind) String() string {
	switch i {
	case ItemLaser:
		return "laser"
	case ItemDoubleBullet:
		return "double_bullet"
	case ItemRadar:
		return "radar"
	case ItemMine:
		return "mine"
	default:
		return fmt.Sprintf("ItemKind(%d)", int(i))
	}
}

type BulletInfo struct {
	ID        int
	Direction Direction
	Speed     float64
}

type LaserInfo struct {
	ID          int
	Orientation Orientation
}

type MineInfo struct {
	ID int
	// ExplosionRemainingTicks is set only while the mine is detonating
	ExplosionRemainingTicks *int
}

type ItemInfo struct {
	Kind ItemKind
}

type TankInfo struct {
	OwnerID         string
	Direction       Direction
	TurretDirection Direction
	Health          *int
	SecondaryItem   *ItemKind
	BulletCount     *int
	TicksToReload   *int
}

// Occupant is the primary content of a cell. Exactly one payload pointer is
// set, and only for kinds that carry one.
type Occupant struct {
	Kind   OccupantKind
	Bullet *BulletInfo
	Laser  *LaserInfo
	Mine   *MineInfo
	Item   *ItemInfo
	Tank   *TankInfo
}

func EmptyOccupant() Occupant { return Occupant{Kind: OccupantEmpty} }
func WallOccupant() Occupant  { return Occupant{Kind: OccupantWall} }

func NewBullet(id int, dir Direction, speed float64, double bool) Occupant {
	kind := OccupantBullet
	if double {
		kind = OccupantDoubleBullet
	}
	return Occupant{Kind: kind, Bullet: &BulletInfo{ID: id, Direction: dir, Speed: speed}}
}

func NewLaser(id int, o Orientation) Occupant {
	return Occupant{Kind: OccupantLaser, Laser: &LaserInfo{ID: id, Orientation: o}}
}

func NewMine(id int, explosionRemaining *int) Occupant {
	return Occupant{Kind: OccupantMine, Mine: &MineInfo{ID: id, ExplosionRemainingTicks: explosionRemaining}}
}

func NewItem(kind ItemKind) Occupant {
	return Occupant{Kind: OccupantItem, Item: &ItemInfo{Kind: kind}}
}

// NewTank builds a tank occupant; self decides between the agent's own tank
// and an enemy.
func NewTank(info TankInfo, self bool) Occupant {
	kind := OccupantEnemyTank
	if self {
		kind = OccupantSelfTank
	}
	return Occupant{Kind: kind, Tank: &info}
}

// IsEmpty reports whether the cell has no occupant
func (o Occupant) IsEmpty() bool { return o.Kind == OccupantEmpty }

// IsWall reports whether the occupant blocks movement and line of sight
func (o Occupant) IsWall() bool { return o.Kind == OccupantWall }

// Validate checks that the payload matches the kind
func (o Occupant) Validate() error {
	switch o.Kind {
	case OccupantEmpty, OccupantWall:
		return nil
	case OccupantBullet, OccupantDoubleBullet:
		if o.Bullet == nil || !o.Bullet.Direction.IsValid() {
			return fmt.Errorf("%s without valid payload: %w", o.Kind, ErrUnknownOccupant)
		}
	case OccupantLaser:
		if o.Laser == nil || !o.Laser.Orientation.IsValid() {
			return fmt.Errorf("laser without valid payload: %w", ErrUnknownOccupant)
		}
	case OccupantMine:
		if o.Mine == nil {
			return fmt.Errorf("mine without payload: %w", ErrUnknownOccupant)
		}
	case OccupantItem:
		if o.Item == nil || !o.Item.Kind.IsValid() {
			return fmt.Errorf("item without valid kind: %w", ErrUnknownOccupant)
		}
	case OccupantEnemyTank, OccupantSelfTank:
		if o.Tank == nil || !o.Tank.Direction.IsValid() || !o.Tank.TurretDirection.IsValid() {
			return fmt.Errorf("%s without valid payload: %w", o.Kind, ErrUnknownOccupant)
		}
	default:
		return fmt.Errorf("kind %d: %w", int(o.Kind), ErrUnknownOccupant)
	}
	return nil
}
