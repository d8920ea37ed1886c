package utils

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber returns a human-facing number such as ORD-20261018-4F9A1C.
// The suffix comes from a random UUID; the unique index on order_number
// catches the rare clash.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "ORD-" + now.Format("20060102") + "-" + suffix
}
