package timeutil_test

import (
	"testing"
	"time"

	"el-estate-bot/internal/infra/timeutil"
)

func TestParseLocation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		in         string
		wantOffset int
		wantErr    bool
	}{
		{name: "utcWord", in: "UTC", wantOffset: 0},
		{name: "offsetWithColon", in: "+03:00", wantOffset: 3 * 3600},
		{name: "gmtNegative", in: "GMT-04:30", wantOffset: -(4*3600 + 30*60)},
		{name: "compactOffset", in: "-0700", wantOffset: -7 * 3600},
		{name: "empty", in: "  ", wantErr: true},
		{name: "garbage", in: "Mars/Olympus", wantErr: true},
		{name: "outOfRange", in: "+15:00", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			loc, err := timeutil.ParseLocation(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseLocation(%q) expected error, got %v", tc.in, loc)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLocation(%q) unexpected error: %v", tc.in, err)
			}
			_, offset := time.Date(2026, 1, 1, 0, 0, 0, 0, loc).Zone()
			if offset != tc.wantOffset {
				t.Fatalf("offset = %d, want %d", offset, tc.wantOffset)
			}
		})
	}
}

func TestCalendarKeys(t *testing.T) {
	t.Parallel()

	ts := time.Date(2027, 1, 1, 12, 0, 0, 0, time.UTC)
	if got := timeutil.DayKey(ts); got != "2027-01-01" {
		t.Fatalf("DayKey = %q", got)
	}
	if got := timeutil.WeekKey(ts); got != "2026-53" {
		t.Fatalf("WeekKey = %q, want ISO week of previous year", got)
	}
	if got := timeutil.WeekKey(time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)); got != "2026-02" {
		t.Fatalf("WeekKey = %q, want zero-padded week", got)
	}
}
