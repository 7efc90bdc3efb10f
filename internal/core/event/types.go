package event

import "github.com/l1jgo/simcore/internal/core/ecs"

// ContactStarted is emitted when two bodies begin to overlap.
type ContactStarted struct {
	A, B ecs.EntityID
}

// ContactEnded is emitted when two bodies stop overlapping. The bodies are
// given by entity index since either may be gone already.
type ContactEnded struct {
	A, B uint32
}

// BodyExpired is emitted when a body runs out of lifetime.
type BodyExpired struct {
	Entity ecs.EntityID
	Group  int
}

// BodyDestroyed is emitted when a script asks for a body to be destroyed.
type BodyDestroyed struct {
	Entity ecs.EntityID
}
