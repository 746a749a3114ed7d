package detector

import (
	"regexp"
	"strings"
)

// Unknown is reported for quality and audio when no token was found.
const Unknown = "Unknown"

// EpisodeInfo is the metadata inferred from a single filename.
type EpisodeInfo struct {
	Season           Number `json:"season"`
	Episode          Number `json:"episode"`
	ShowName         string `json:"show_name"`
	Quality          string `json:"quality"`
	Audio            string `json:"audio"`
	OriginalFilename string `json:"original_filename"`
	Extension        string `json:"extension"`
}

// Detected reports whether any episode number was found
func (i EpisodeInfo) Detected() bool {
	return i.Episode.Valid
}

// Detector runs the ordered rule tables against filenames. It holds only
// compiled patterns and is safe for concurrent use.
type Detector struct {
	episode []EpisodeRule
	quality []*regexp.Regexp
	audio   []*regexp.Regexp
}

var std *Detector

func init() {
	d, err := New(DefaultPatterns())
	if err != nil {
		panic(err)
	}
	std = d
}

// Default returns the detector built from the built-in rule tables
func Default() *Detector {
	return std
}

// Detect runs the default detector against filename
func Detect(filename string) EpisodeInfo {
	return std.Detect(filename)
}

// New compiles the given pattern lists, preserving their order
func New(p Patterns) (*Detector, error) {
	d := &Detector{
		episode: make([]EpisodeRule, 0, len(p.Episode)),
		quality: make([]*regexp.Regexp, 0, len(p.Quality)),
		audio:   make([]*regexp.Regexp, 0, len(p.Audio)),
	}

	for _, src := range p.Episode {
		rule, err := compileEpisodeRule(src)
		if err != nil {
			return nil, err
		}
		d.episode = append(d.episode, rule)
	}
	for _, src := range p.Quality {
		re, err := compileTokenRule("quality", src)
		if err != nil {
			return nil, err
		}
		d.quality = append(d.quality, re)
	}
	for _, src := range p.Audio {
		re, err := compileTokenRule("audio", src)
		if err != nil {
			return nil, err
		}
		d.audio = append(d.audio, re)
	}

	return d, nil
}

// Detect extracts episode information from a filename. Every extractor
// scans the same extension-stripped name independently. It never fails:
// missing data is reported as absent numbers or Unknown tokens.
func (d *Detector) Detect(filename string) EpisodeInfo {
	clean, ext := SplitExt(filename)
	se := d.DetectEpisodeSeason(clean)

	return EpisodeInfo{
		Season:           se.Season,
		Episode:          se.Episode,
		ShowName:         d.ExtractShowName(clean),
		Quality:          d.ExtractQuality(clean),
		Audio:            d.ExtractAudio(clean),
		OriginalFilename: filename,
		Extension:        strings.ToLower(ext),
	}
}

// SplitExt splits a name into stem and extension (with its leading dot).
// Leading dots of the final path element do not start an extension, so
// ".hidden" has no extension.
func SplitExt(name string) (stem, ext string) {
	sep := strings.LastIndex(name, "/")
	dot := strings.LastIndex(name, ".")
	if dot <= sep {
		return name, ""
	}
	for i := sep + 1; i < dot; i++ {
		if name[i] != '.' {
			return name[:dot], name[dot:]
		}
	}
	return name, ""
}
