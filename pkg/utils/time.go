package utils

import "time"

// NowRFC3339 returns the current UTC time formatted as RFC3339
func NowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// NowMillis returns the current time as epoch milliseconds
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// MillisToTime converts epoch milliseconds to a time.Time
func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// FormatMillis formats epoch milliseconds as RFC3339 in UTC
func FormatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
