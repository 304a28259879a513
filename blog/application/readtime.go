package application

import (
	"fmt"
	"strings"
)

const wordsPerMinute = 200

// EstimateReadTime derives a "N min read" label from content length,
// rounding minutes up. Empty content still reads as one minute.
func EstimateReadTime(content string) string {
	words := len(strings.Fields(content))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}
