package limiters

import (
	"strconv"
	"time"
)

// Decision is the outcome of a single stage check. Allowed decisions may
// still carry Attempt (the progressive stage always reports the attempt
// number); RetryAfter is set only by the token bucket on denial.
type Decision struct {
	Allowed    bool
	Message    string
	Attempt    int
	RetryAfter time.Duration
}

// unixSeconds renders t as fractional seconds since the epoch. All limiter
// timestamps use this representation so scores, hash fields, and plain
// values stay comparable.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func parseSeconds(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
