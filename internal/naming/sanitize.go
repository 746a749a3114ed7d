package naming

import "strings"

// InvalidChars are the characters no filename may contain on common filesystems.
const InvalidChars = `<>:"/\|?*`

var invalidCharReplacer = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	`"`, "_",
	"/", "_",
	`\`, "_",
	"|", "_",
	"?", "_",
	"*", "_",
)

// Sanitize replaces every invalid character with an underscore and trims
// surrounding whitespace. Sanitizing twice gives the same result.
func Sanitize(name string) string {
	return strings.TrimSpace(invalidCharReplacer.Replace(name))
}
