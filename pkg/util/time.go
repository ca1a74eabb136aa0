package util

import (
	"math"
	"strconv"
	"strings"
)

// ParseFrameRate parses frame rate from ffprobe format (e.g., "30/1", "30000/1001")
func ParseFrameRate(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

// EstimateFrameCount derives a frame count from a duration in seconds and a
// frame rate, for containers that do not record one.
func EstimateFrameCount(durationSec, fps float64) int {
	if durationSec <= 0 || fps <= 0 {
		return 0
	}
	return int(math.Round(durationSec * fps))
}
