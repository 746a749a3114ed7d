package detector

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	separatorRegex  = regexp.MustCompile(`[._\-\[\]()]`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	codecTagRegex   = regexp.MustCompile(`(?i)\b(x264|x265|h264|h265|hevc|avc)\b`)
	releaseTagRegex = regexp.MustCompile(`(?i)\b(web-dl|webrip|bluray|brrip|dvdrip|hdtv|hdcam)\b`)
)

const minShowNameRunes = 2

// ExtractShowName strips every episode, quality and audio match from name,
// normalizes separators, drops release tags and title-cases what is left.
// When less than two characters survive, the whole name is used instead.
func (d *Detector) ExtractShowName(name string) string {
	show := name

	for _, rule := range d.episode {
		show = rule.Pattern.ReplaceAllString(show, "")
	}
	for _, re := range d.quality {
		show = re.ReplaceAllString(show, "")
	}
	for _, re := range d.audio {
		show = re.ReplaceAllString(show, "")
	}

	show = separatorRegex.ReplaceAllString(show, " ")
	show = collapseSpaces(show)

	show = codecTagRegex.ReplaceAllString(show, "")
	show = releaseTagRegex.ReplaceAllString(show, "")
	show = collapseSpaces(show)

	if utf8.RuneCountInString(show) < minShowNameRunes {
		show = name
	}

	return titleCase(show)
}

// titleCase upper-cases the first letter of every run of letters and
// lower-cases the rest, so a letter after a digit starts a new word:
// "S01E05" stays "S01E05" and "10bit" becomes "10Bit".
func titleCase(s string) string {
	// Casers carry state and must not be shared between goroutines
	caser := cases.Title(language.English)

	var sb strings.Builder
	sb.Grow(len(s))
	start := -1
	for i, r := range s {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			sb.WriteString(caser.String(s[start:i]))
			start = -1
		}
		sb.WriteRune(r)
	}
	if start >= 0 {
		sb.WriteString(caser.String(s[start:]))
	}
	return sb.String()
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}
