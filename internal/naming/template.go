package naming

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Nomadcxx/jellyname/internal/detector"
)

// DefaultTemplate is used when a session has no template of its own.
const DefaultTemplate = "[S{Season} - E{Episode}] {ShowName} [{Quality}] [{Audio}] @{Channel}.{Extension}"

// Fallback values for fields the detector could not fill.
const (
	DefaultShowName  = "Unknown Show"
	DefaultToken     = "Unknown"
	DefaultExtension = ".mkv"
)

// Placeholders lists every key a template may reference.
var Placeholders = []string{"Season", "Episode", "ShowName", "Quality", "Audio", "Channel", "Extension"}

const extensionSuffix = ".{Extension}"

// placeholderRegex matches only the known keys, so a typo such as {Seaso}
// is left in the output untouched.
var placeholderRegex = regexp.MustCompile(`\{(Season|Episode|ShowName|Quality|Audio|Channel|Extension)\}`)

// Values builds the substitution table for info, applying every fallback
func Values(info detector.EpisodeInfo, channel string) map[string]string {
	return map[string]string{
		"Season":    pad(info.Season.Or(1)),
		"Episode":   pad(info.Episode.Or(1)),
		"ShowName":  orDefault(info.ShowName, DefaultShowName),
		"Quality":   orDefault(info.Quality, DefaultToken),
		"Audio":     orDefault(info.Audio, DefaultToken),
		"Channel":   orDefault(channel, DefaultToken),
		"Extension": orDefault(info.Extension, DefaultExtension),
	}
}

// GenerateFilename renders template for info. Placeholders are replaced in
// a single pass, so values that themselves contain {Key} text are never
// substituted again. The extension is always appended once, and the result
// is sanitized. It never fails and never returns an empty string.
func GenerateFilename(info detector.EpisodeInfo, template, channel string) string {
	values := Values(info, channel)

	template = strings.TrimSuffix(template, extensionSuffix)

	name := placeholderRegex.ReplaceAllStringFunc(template, func(token string) string {
		return values[token[1:len(token)-1]]
	})
	name += values["Extension"]

	name = Sanitize(name)
	if name == "" {
		name = Sanitize(DefaultShowName + DefaultExtension)
	}
	return name
}

func pad(n int) string {
	return fmt.Sprintf("%02d", n)
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
