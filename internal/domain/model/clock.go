package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Period lengths in seconds.
const (
	QuarterSeconds  = 12 * 60
	OvertimeSeconds = 5 * 60
	RegulationCount = 4

	// MaxPeriod bounds the quarter an update may report: regulation plus
	// ten overtime periods.
	MaxPeriod = RegulationCount + 10
)

// ParseClock converts "MM:SS" (or "M:SS") remaining in a period into seconds.
func ParseClock(s string) (int, error) {
	mm, ss, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	sec, err := strconv.Atoi(ss)
	if err != nil || m < 0 || sec < 0 || sec >= 60 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return m*60 + sec, nil
}

// FormatClock renders seconds as "MM:SS".
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// PeriodLength returns the length of the given period in seconds.
func PeriodLength(quarter int) int {
	if quarter > RegulationCount {
		return OvertimeSeconds
	}
	return QuarterSeconds
}

// ElapsedSeconds returns game seconds elapsed at the start of quarter plus
// the time already run in it.
func ElapsedSeconds(quarter, remaining int) int {
	if quarter <= 0 {
		return 0
	}
	elapsed := min(quarter-1, RegulationCount)*QuarterSeconds +
		max(quarter-1-RegulationCount, 0)*OvertimeSeconds
	run := PeriodLength(quarter) - remaining
	if run < 0 {
		run = 0
	}
	return elapsed + run
}
