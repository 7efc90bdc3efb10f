package event

import (
	"testing"

	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/stretchr/testify/assert"
)

func TestBusDeliversNextTick(t *testing.T) {
	b := NewBus()
	var got []ecs.EntityID
	Subscribe(b, func(ev BodyDestroyed) { got = append(got, ev.Entity) })

	Emit(b, BodyDestroyed{Entity: 1})
	Emit(b, BodyDestroyed{Entity: 2})
	b.DispatchAll()
	assert.Empty(t, got)
	assert.Equal(t, 2, Pending[BodyDestroyed](b))

	b.SwapBuffers()
	assert.Zero(t, Pending[BodyDestroyed](b))
	b.DispatchAll()
	assert.Equal(t, []ecs.EntityID{1, 2}, got)

	// Delivered once only.
	b.SwapBuffers()
	b.DispatchAll()
	assert.Len(t, got, 2)
}

func TestBusOrder(t *testing.T) {
	b := NewBus()
	var log []string
	Subscribe(b, func(ContactEnded) { log = append(log, "ended") })
	Subscribe(b, func(ContactStarted) { log = append(log, "started-1") })
	Subscribe(b, func(ContactStarted) { log = append(log, "started-2") })

	Emit(b, ContactStarted{})
	Emit(b, ContactEnded{})
	Emit(b, BodyExpired{}) // no handler
	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, []string{"ended", "started-1", "started-2"}, log)
}
