package orders

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var numberPattern = regexp.MustCompile(`^ORD-\d{13}-[A-Z0-9]{6}$`)

func TestNewOrderNumberFormat(t *testing.T) {
	n := NewOrderNumber()
	require.Regexp(t, numberPattern, n)

	millis, err := strconv.ParseInt(strings.Split(n, "-")[1], 10, 64)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().UnixMilli(), millis, 5000)
}

func TestNewOrderNumberUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		n := NewOrderNumber()
		require.False(t, seen[n], "duplicate order number %s", n)
		seen[n] = true
	}
}
