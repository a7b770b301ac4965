package logging

import "time"

const consoleTimeLayout = "2006-01-02 15:04:05"

func formatTimestamp(ts time.Time) string {
	return ts.Local().Format(consoleTimeLayout)
}
