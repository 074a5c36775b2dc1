package queue

import (
	"fmt"
	"regexp"
	"strings"

	"vidpipe/internal/services"
)

// Resolution names a compression target.
type Resolution string

const (
	Resolution1080p  Resolution = "1080p"
	Resolution720p   Resolution = "720p"
	Resolution480p   Resolution = "480p"
	ResolutionCustom Resolution = "custom"
)

const (
	DefaultPosterFormat = "png"
	DefaultPosterTime   = 1.0
)

var formatPattern = regexp.MustCompile(`^[a-z0-9]{2,8}$`)

// Options are the user-selected transformations of a job. They are fixed at
// creation time.
type Options struct {
	RemoveAudio bool `json:"removeAudio"`

	Compress   bool       `json:"compress"`
	Resolution Resolution `json:"resolution,omitempty"`
	Width      int        `json:"width,omitempty"`

	Convert bool     `json:"convert"`
	Formats []string `json:"formats,omitempty"`

	GeneratePoster bool    `json:"generatePoster"`
	PosterFormat   string  `json:"posterFormat,omitempty"`
	PosterTime     float64 `json:"posterTime,omitempty"`

	// VideoExtension is the staged input's extension, recorded by intake.
	VideoExtension string `json:"videoExtension,omitempty"`
}

// Normalize fills defaults and canonicalizes names. A poster time of zero
// means "not set" and becomes one second.
func (o Options) Normalize() Options {
	o.Resolution = Resolution(strings.ToLower(strings.TrimSpace(string(o.Resolution))))
	if len(o.Formats) > 0 {
		formats := make([]string, 0, len(o.Formats))
		seen := make(map[string]struct{}, len(o.Formats))
		for _, f := range o.Formats {
			f = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(f), "."))
			if f == "" {
				continue
			}
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			formats = append(formats, f)
		}
		o.Formats = formats
	}
	if o.GeneratePoster {
		o.PosterFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(o.PosterFormat), "."))
		if o.PosterFormat == "" {
			o.PosterFormat = DefaultPosterFormat
		}
		if o.PosterFormat == "jpeg" {
			o.PosterFormat = "jpg"
		}
		if o.PosterTime <= 0 {
			o.PosterTime = DefaultPosterTime
		}
	}
	o.VideoExtension = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(o.VideoExtension), "."))
	return o
}

// Validate rejects option sets the pipeline cannot run. Errors carry the
// services.ErrInput marker.
func (o Options) Validate() error {
	if !o.HasOperation() {
		return inputError("at least one operation must be enabled")
	}
	if o.Compress {
		switch o.Resolution {
		case Resolution1080p, Resolution720p, Resolution480p:
		case ResolutionCustom:
			if o.Width <= 0 {
				return inputError("custom resolution requires a positive width")
			}
		case "":
			return inputError("compression requires a resolution")
		default:
			return inputError(fmt.Sprintf("unsupported resolution %q", o.Resolution))
		}
	}
	if o.Convert {
		if len(o.Formats) == 0 {
			return inputError("conversion requires at least one format")
		}
		for _, f := range o.Formats {
			if !formatPattern.MatchString(f) {
				return inputError(fmt.Sprintf("unsupported format %q", f))
			}
		}
	}
	if o.GeneratePoster {
		if !formatPattern.MatchString(o.PosterFormat) {
			return inputError(fmt.Sprintf("unsupported poster format %q", o.PosterFormat))
		}
		if o.PosterTime < 0 {
			return inputError("poster time must not be negative")
		}
	}
	return nil
}

// HasOperation reports whether any step is enabled.
func (o Options) HasOperation() bool {
	return o.RemoveAudio || o.Compress || o.Convert || o.GeneratePoster
}

// EnabledSteps lists enabled step kinds in pipeline order.
func (o Options) EnabledSteps() []StepKind {
	steps := make([]StepKind, 0, 4)
	if o.RemoveAudio {
		steps = append(steps, KindAudioRemoved)
	}
	if o.Compress {
		steps = append(steps, KindCompressed)
	}
	if o.Convert {
		steps = append(steps, KindConverted)
	}
	if o.GeneratePoster {
		steps = append(steps, KindPoster)
	}
	return steps
}

func inputError(msg string) error {
	return services.Wrap(services.ErrInput, "", "options", msg, nil)
}
