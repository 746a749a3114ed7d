package naming

import (
	"strconv"
	"strings"
)

// WithSuffix inserts _n before the last dot of name, or appends it when
// there is no dot: "a.mkv" -> "a_2.mkv", "a" -> "a_2".
func WithSuffix(name string, n int) string {
	suffix := "_" + strconv.Itoa(n)
	dot := strings.LastIndex(name, ".")
	if dot < 0 {
		return name + suffix
	}
	return name[:dot] + suffix + name[dot:]
}
