package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qwesade/internal/models"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	calls := 0
	bus.Subscribe(EventBookingCreated, func(event *Event) error {
		received = event
		calls++
		return nil
	})

	payload := BookingEventPayload{
		Booking:   models.Booking{RequestID: "RQ-1", Service: "Walk", Status: models.StatusNew},
		ChangedBy: "user",
	}
	require.NoError(t, bus.PublishJSON(EventBookingCreated, payload))

	require.Equal(t, 1, calls)
	assert.Equal(t, EventBookingCreated, received.Type)
	assert.False(t, received.CreatedAt.IsZero())

	decoded, err := received.BookingPayload()
	require.NoError(t, err)
	assert.Equal(t, "RQ-1", decoded.Booking.RequestID)
	assert.Equal(t, "user", decoded.ChangedBy)

	require.NoError(t, bus.PublishJSON(EventBookingDeclined, payload))
	assert.Equal(t, 1, calls, "other event types are not delivered")
}

func TestEventBus_HandlerErrors(t *testing.T) {
	bus := NewEventBus()
	boom := errors.New("boom")

	second := false
	bus.Subscribe("e", func(*Event) error { return boom })
	bus.Subscribe("e", func(*Event) error {
		second = true
		return nil
	})

	err := bus.PublishJSON("e", struct{}{})
	assert.ErrorIs(t, err, boom)
	assert.True(t, second)
}

func TestEventBus_Nil(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON("e", nil))
}

func TestPublishJSON_MarshalError(t *testing.T) {
	bus := NewEventBus()
	assert.Error(t, bus.PublishJSON("e", make(chan int)))
}
