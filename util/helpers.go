package util

import (
	"math"
	"strconv"
)

var byteUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatBytes renders a byte count the way the editor reports file sizes,
// e.g. "0 Bytes", "512 Bytes", "1.5 KB", "2.25 MB". Negative values keep their sign.
func FormatBytes(n int64) string {
	if n == 0 {
		return "0 Bytes"
	}
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	const k = 1024.0
	i := int(math.Floor(math.Log(float64(n)) / math.Log(k)))
	if i >= len(byteUnits) {
		i = len(byteUnits) - 1
	}
	v := float64(n) / math.Pow(k, float64(i))
	// Two decimals at most, trailing zeros dropped.
	return sign + strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + " " + byteUnits[i]
}
