// internal/partition/key.go
package partition

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// key.go
// ------------------------------------------------------------
// Object key layout for stored orders:
//
//	<prefix>/year=YYYY/month=MM/day=DD/hour=HH/order_<uuid>.json
//
// e.g.
//
//	mercadolibre/webhook_orders_raw/year=2024/month=03/day=05/hour=14/order_6f1c...e2.json
//
// Hive-style key=value directories let the downstream batch job prune
// by time range. The random v4 UUID keeps two deliveries in the same hour
// (including redeliveries of the same message) from overwriting each
// other.

// NewObjectName returns "order_<uuid>.json" with a fresh random UUID.
func NewObjectName() string {
	return "order_" + uuid.NewString() + ".json"
}

// BuildKey joins prefix, the hour partition of t and name.
// t is used as given; callers pass a time already in the reference zone.
func BuildKey(prefix string, t time.Time, name string) string {
	return fmt.Sprintf("%s/year=%04d/month=%02d/day=%02d/hour=%02d/%s",
		strings.Trim(prefix, "/"), t.Year(), int(t.Month()), t.Day(), t.Hour(), name)
}

// ParseObjectID extracts the uuid from a key built by BuildKey. The
// handler logs it as object_id so a stored object can be found from a
// log line by id alone. ok is false when the final segment is not
// order_<uuid>.json.
func ParseObjectID(key string) (id string, ok bool) {
	name := key
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		name = key[i+1:]
	}
	if !strings.HasPrefix(name, "order_") || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	id = strings.TrimSuffix(strings.TrimPrefix(name, "order_"), ".json")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}
