package container

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type updateRequest struct{ TypeName string }
type updateResponse struct{ Count int }

func TestEventBusDispatchesByType(t *testing.T) {
	bus := NewEventBus()
	var gotRequest updateRequest
	var gotResponse updateResponse

	Subscribe(bus, func(e updateRequest) { gotRequest = e })
	Subscribe(bus, func(e updateResponse) { gotResponse = e })

	Publish(bus, updateRequest{TypeName: "kan_transform_t"})
	require.Equal(t, "kan_transform_t", gotRequest.TypeName)
	require.Zero(t, gotResponse.Count, "publishing one type must not invoke the other type's handlers")

	Publish(bus, updateResponse{Count: 3})
	require.Equal(t, 3, gotResponse.Count)
}

func TestEventBusMultipleHandlersInOrder(t *testing.T) {
	bus := NewEventBus()
	var order []int
	Subscribe(bus, func(e updateRequest) { order = append(order, 1) })
	Subscribe(bus, func(e updateRequest) { order = append(order, 2) })

	Publish(bus, updateRequest{})
	require.Equal(t, []int{1, 2}, order)
}

func TestEventBusPublishWithNoSubscribersIsNoop(t *testing.T) {
	bus := NewEventBus()
	require.NotPanics(t, func() {
		Publish(bus, updateResponse{Count: 1})
	})
}
