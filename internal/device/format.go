package device

import (
	"fmt"
	"time"
)

// FormatTimeLeft renders a remaining duration as HH:MM:SS. A nil duration renders as the
// idle display value. Sub-second remainders round up, so a freshly observed one-hour
// session displays as 01:00:00 rather than 00:59:59.
func FormatTimeLeft(remaining *time.Duration) string {
	if remaining == nil {
		return TimeLeftIdle
	}
	total := int((*remaining + time.Second - 1) / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
