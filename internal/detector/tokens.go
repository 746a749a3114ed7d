package detector

import (
	"regexp"
	"strings"
)

// ExtractQuality returns the first quality token in name, upper-cased.
// Without a token it falls back to bare resolution digits.
func (d *Detector) ExtractQuality(name string) string {
	if token, ok := firstToken(d.quality, name); ok {
		return token
	}

	switch {
	case strings.Contains(name, "720"):
		return "720p"
	case strings.Contains(name, "1080"):
		return "1080p"
	case strings.Contains(name, "2160"), strings.Contains(strings.ToLower(name), "4k"):
		return "4K"
	}
	return Unknown
}

// ExtractAudio returns the first audio token in name, upper-cased
func (d *Detector) ExtractAudio(name string) string {
	if token, ok := firstToken(d.audio, name); ok {
		return token
	}
	return Unknown
}

func firstToken(rules []*regexp.Regexp, name string) (string, bool) {
	for _, re := range rules {
		matches := re.FindStringSubmatch(name)
		if matches == nil {
			continue
		}
		token := matches[1]
		if token == "" {
			token = matches[0]
		}
		return strings.ToUpper(token), true
	}
	return "", false
}
