package partition

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildKey_UTC(t *testing.T) {
	instant := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	clock := NewClockFunc(time.UTC, func() time.Time { return instant })

	key := BuildKey("mercadolibre/webhook_orders_raw", clock.Now(), "order_x.json")

	assert.Equal(t, "mercadolibre/webhook_orders_raw/year=2024/month=03/day=05/hour=14/order_x.json", key)
}

func TestBuildKey_ReferenceTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	// 01:30 UTC on March 1st is still February 29th, 22:30 in Sao Paulo (UTC-3).
	instant := time.Date(2024, 3, 1, 1, 30, 0, 0, time.UTC)
	clock := NewClockFunc(loc, func() time.Time { return instant })

	key := BuildKey("raw/", clock.Now(), "order_x.json")

	assert.Equal(t, "raw/year=2024/month=02/day=29/hour=22/order_x.json", key)
}

func TestNewClock_NilLocationIsUTC(t *testing.T) {
	c := NewClock(nil)
	assert.Equal(t, time.UTC, c.Location())
	assert.Equal(t, time.UTC, c.Now().Location())
}

func TestNewObjectName_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		name := NewObjectName()
		_, dup := seen[name]
		require.False(t, dup, "duplicate object name %s", name)
		seen[name] = struct{}{}
	}
}

func TestParseObjectID(t *testing.T) {
	name := NewObjectName()
	key := BuildKey("p", time.Now(), name)

	id, ok := ParseObjectID(key)
	require.True(t, ok)
	assert.Equal(t, "order_"+id+".json", name)

	_, ok = ParseObjectID("p/year=2024/month=01/day=01/hour=00/order_not-a-uuid.json")
	assert.False(t, ok)

	_, ok = ParseObjectID("p/year=2024/month=01/day=01/hour=00/event.json")
	assert.False(t, ok)
}
