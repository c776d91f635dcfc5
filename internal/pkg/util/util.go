package util

import (
	"fmt"
	"time"
)

// GenerateTimestampWithPrefix builds a sortable identifier such as "AL-1700000000000001".
func GenerateTimestampWithPrefix(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano()/int64(time.Microsecond))
}
