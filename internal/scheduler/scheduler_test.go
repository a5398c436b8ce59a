package scheduler

import (
	"testing"
	"time"
)

func TestNextTick(t *testing.T) {
	for _, tc := range []struct {
		now  string
		want string
	}{
		{"2025-07-01T10:30:00Z", "2025-07-01T11:00:00Z"},
		{"2025-07-01T10:00:00Z", "2025-07-01T11:00:00Z"},
		{"2025-07-01T23:59:59Z", "2025-07-02T00:00:00Z"},
		{"2025-07-01T10:00:00.5Z", "2025-07-01T11:00:00Z"},
	} {
		now, err := time.Parse(time.RFC3339, tc.now)
		if err != nil {
			t.Fatal(err)
		}
		want, err := time.Parse(time.RFC3339, tc.want)
		if err != nil {
			t.Fatal(err)
		}
		if got := NextTick(now); !got.Equal(want) {
			t.Errorf("NextTick(%s) = %s, want %s", tc.now, got, tc.want)
		}
	}
}
