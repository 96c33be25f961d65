package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusProcessing, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusPending, StatusCancelled, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusShipped, StatusCancelled, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusDelivered, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusProcessing, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestSetStatus(t *testing.T) {
	o := &Order{Status: StatusPending}
	require.NoError(t, o.SetStatus(StatusProcessing))
	assert.Equal(t, StatusProcessing, o.Status)

	// same status is a no-op
	require.NoError(t, o.SetStatus(StatusProcessing))

	require.NoError(t, o.SetStatus(StatusDelivered))

	err := o.SetStatus(StatusCancelled)
	var bad *InvalidTransitionError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, StatusDelivered, bad.From)
	assert.Equal(t, StatusCancelled, bad.To)
	assert.Equal(t, StatusDelivered, o.Status, "rejected transition must not change state")
}

func TestCancel(t *testing.T) {
	for _, from := range []Status{StatusPending, StatusProcessing, StatusShipped} {
		o := &Order{Status: from}
		require.NoError(t, o.Cancel())
		assert.Equal(t, StatusCancelled, o.Status)
	}

	for _, from := range []Status{StatusDelivered, StatusCancelled} {
		o := &Order{Status: from}
		var bad *InvalidTransitionError
		require.ErrorAs(t, o.Cancel(), &bad)
		assert.Equal(t, from, o.Status)
	}
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("SHIPPED")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, st)

	_, err = ParseStatus("shipped")
	assert.Error(t, err)
	_, err = ParseStatus("UNKNOWN")
	assert.Error(t, err)
}
