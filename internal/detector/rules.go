package detector

import (
	"fmt"
	"regexp"
	"strconv"
)

// Default rule tables. Order matters: the first pattern that matches wins.
var (
	DefaultEpisodePatterns = []string{
		`[Ss](\d+)[Ee](\d+)`,                     // S01E01
		`[Ss]eason\s*(\d+)\s*[Ee]pisode\s*(\d+)`, // Season 1 Episode 1
		`(\d+)x(\d+)`,                            // 1x01
		`[Ee](\d+)`,                              // E01
		`[Ee]pisode\s*(\d+)`,                     // Episode 1
		`- (\d+)`,                                // - 01
		`_(\d+)_`,                                // _01_
		`\.(\d+)\.`,                              // .01.
	}

	DefaultQualityPatterns = []string{
		`(720p|1080p|1440p|2160p|4K|8K)`,
		`(HD|FHD|UHD|SD)`,
		`(WEB-DL|BluRay|BRRip|DVDRip|HDTV|WEBRip)`,
	}

	DefaultAudioPatterns = []string{
		`(AAC|AC3|DTS|FLAC|MP3|OGG|PCM|TrueHD|Atmos)`,
		`(2\.0|5\.1|7\.1)`,
		`(Stereo|Mono)`,
	}
)

// Patterns holds the ordered pattern source lists a Detector is built from.
type Patterns struct {
	Episode []string `toml:"episode"`
	Quality []string `toml:"quality"`
	Audio   []string `toml:"audio"`
}

// DefaultPatterns returns a copy of the built-in rule tables
func DefaultPatterns() Patterns {
	return Patterns{
		Episode: append([]string(nil), DefaultEpisodePatterns...),
		Quality: append([]string(nil), DefaultQualityPatterns...),
		Audio:   append([]string(nil), DefaultAudioPatterns...),
	}
}

// EpisodeRule pairs a compiled pattern with the function that turns its
// submatches into a season/episode pair. Rules are evaluated in order by
// [Detector.DetectEpisodeSeason]; first match wins.
type EpisodeRule struct {
	Name    string
	Pattern *regexp.Regexp
	Extract func(matches []string) (season, episode Number, ok bool)
}

// compileEpisodeRule builds a rule from a pattern source. Two capture groups
// mean season and episode, one group means episode with season 1.
func compileEpisodeRule(src string) (EpisodeRule, error) {
	re, err := regexp.Compile(`(?i)` + src)
	if err != nil {
		return EpisodeRule{}, fmt.Errorf("episode pattern %q: %w", src, err)
	}

	rule := EpisodeRule{Name: src, Pattern: re}
	switch re.NumSubexp() {
	case 2:
		rule.Extract = extractSeasonEpisode
	case 1:
		rule.Extract = extractEpisodeOnly
	default:
		return EpisodeRule{}, fmt.Errorf("episode pattern %q: need 1 or 2 capture groups, got %d", src, re.NumSubexp())
	}
	return rule, nil
}

// compileTokenRule builds a quality or audio rule. Group 1 is the token.
func compileTokenRule(kind, src string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`(?i)` + src)
	if err != nil {
		return nil, fmt.Errorf("%s pattern %q: %w", kind, src, err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("%s pattern %q: need a capture group", kind, src)
	}
	return re, nil
}

func extractSeasonEpisode(matches []string) (Number, Number, bool) {
	season, err := strconv.Atoi(matches[1])
	if err != nil {
		return Number{}, Number{}, false
	}
	episode, err := strconv.Atoi(matches[2])
	if err != nil {
		return Number{}, Number{}, false
	}
	return Some(season), Some(episode), true
}

func extractEpisodeOnly(matches []string) (Number, Number, bool) {
	episode, err := strconv.Atoi(matches[1])
	if err != nil {
		return Number{}, Number{}, false
	}
	return Some(1), Some(episode), true
}
