package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe(TableCheckins, func(c Change) {
		got = append(got, c.Table)
		assert.False(t, c.At.IsZero())
	})
	bus.Subscribe(TableCheckins, func(c Change) {
		got = append(got, "second")
	})

	bus.Publish(Change{Table: TableCheckins})
	bus.Publish(Change{Table: TableTrucks}) // no subscriber, must not panic

	assert.Equal(t, []string{TableCheckins, "second"}, got)
}
