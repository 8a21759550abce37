package device

import (
	"github.com/stretchr/testify/assert"
	"testing"
	"time"
)

func TestFormatTimeLeft(t *testing.T) {
	tests := []struct {
		name      string
		remaining *time.Duration
		want      string
	}{
		{name: "absent", remaining: nil, want: "-"},
		{name: "zero", remaining: ptr(0 * time.Second), want: "00:00:00"},
		{name: "seconds", remaining: ptr(59 * time.Second), want: "00:00:59"},
		{name: "minutes", remaining: ptr(5 * time.Minute), want: "00:05:00"},
		{name: "hours", remaining: ptr(3661 * time.Second), want: "01:01:01"},
		{name: "more than a day", remaining: ptr(25 * time.Hour), want: "25:00:00"},
		{name: "negative clamps to zero", remaining: ptr(-10 * time.Second), want: "00:00:00"},
		{name: "sub-second rounds up", remaining: ptr(1500 * time.Millisecond), want: "00:00:02"},
		{name: "just under an hour rounds up", remaining: ptr(time.Hour - 50*time.Millisecond), want: "01:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimeLeft(tt.remaining))
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}
