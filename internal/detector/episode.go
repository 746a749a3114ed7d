package detector

import (
	"regexp"
	"strconv"
)

// Stage names the step of the fallback chain that produced a result.
type Stage int

const (
	StageUndetected Stage = iota
	StageRule
	StageDigits
)

func (s Stage) String() string {
	switch s {
	case StageRule:
		return "rule"
	case StageDigits:
		return "digits"
	default:
		return "undetected"
	}
}

// SeasonEpisode is the outcome of the season/episode chain.
type SeasonEpisode struct {
	Season  Number
	Episode Number
	Stage   Stage
	Rule    string // pattern source when Stage == StageRule
}

var digitRunRegex = regexp.MustCompile(`\d+`)

// DetectEpisodeSeason runs the chain: ordered rules, then the last digit
// run, then undetected. Input is a filename without its extension.
func (d *Detector) DetectEpisodeSeason(name string) SeasonEpisode {
	if se, ok := d.MatchRules(name); ok {
		return se
	}
	if se, ok := MatchLastDigits(name); ok {
		return se
	}
	return SeasonEpisode{Stage: StageUndetected}
}

// MatchRules returns the result of the first rule that matches and parses.
// A rule whose captures fail to parse counts as a miss.
func (d *Detector) MatchRules(name string) (SeasonEpisode, bool) {
	for _, rule := range d.episode {
		matches := rule.Pattern.FindStringSubmatch(name)
		if matches == nil {
			continue
		}
		season, episode, ok := rule.Extract(matches)
		if !ok {
			continue
		}
		return SeasonEpisode{
			Season:  season,
			Episode: episode,
			Stage:   StageRule,
			Rule:    rule.Name,
		}, true
	}
	return SeasonEpisode{}, false
}

// MatchLastDigits uses the last run of digits in name as the episode, with
// season 1. It misses when there are no digits or the run overflows int.
func MatchLastDigits(name string) (SeasonEpisode, bool) {
	runs := digitRunRegex.FindAllString(name, -1)
	if len(runs) == 0 {
		return SeasonEpisode{}, false
	}
	episode, err := strconv.Atoi(runs[len(runs)-1])
	if err != nil {
		return SeasonEpisode{}, false
	}
	return SeasonEpisode{
		Season:  Some(1),
		Episode: Some(episode),
		Stage:   StageDigits,
	}, true
}
