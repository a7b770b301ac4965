package encoding

import (
	"regexp"
	"strconv"
)

var elapsedPattern = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// ParseElapsed extracts the encoder's elapsed media time in seconds from a
// status line such as "frame=120 ... time=00:00:04.80 bitrate=...".
func ParseElapsed(line string) (float64, bool) {
	match := elapsedPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	hours, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(match[2])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[3], 64)
	if err != nil {
		return 0, false
	}
	return float64(hours*3600+minutes*60) + seconds, true
}

// Percent converts elapsed seconds into a completion percentage capped at 100.
// It returns false when the total duration is unknown.
func Percent(elapsed, total float64) (float64, bool) {
	if total <= 0 {
		return 0, false
	}
	return min(elapsed/total*100, 100), true
}
