package component

import "github.com/l1jgo/simcore/internal/spatial"

// Transform is a body's position in scene space.
// Pure data, zero methods; all mutations happen in systems.
type Transform struct {
	Position spatial.Vec3
}

// Velocity is a body's linear velocity in units per second.
type Velocity struct {
	Linear spatial.Vec3
}

// Shape is a body's half extent around its position.
type Shape struct {
	Half spatial.Vec3
}

// Lifetime counts the ticks a body has left. Group is the spawn group that
// created it, so an expired body can be replaced from the same group.
type Lifetime struct {
	Ticks int32
	Group uint16
}
