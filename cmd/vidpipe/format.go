package main

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vidpipe/internal/queue"
)

var titleCaser = cases.Title(language.English)

// kindTitle renders a step label such as "converted<webm>" as "Converted (webm)".
func kindTitle(label string) string {
	kind, format, hasFormat := strings.Cut(label, "<")
	title := titleCaser.String(strings.ReplaceAll(kind, "-", " "))
	if hasFormat {
		title += " (" + strings.TrimSuffix(format, ">") + ")"
	}
	return title
}

func stepSummary(opts queue.Options) string {
	steps := opts.EnabledSteps()
	parts := make([]string, 0, len(steps))
	for _, step := range steps {
		switch step {
		case queue.KindCompressed:
			target := string(opts.Resolution)
			if opts.Resolution == queue.ResolutionCustom {
				target = "width " + strconv.Itoa(opts.Width)
			}
			parts = append(parts, "compress to "+target)
		case queue.KindConverted:
			parts = append(parts, "convert to "+strings.Join(opts.Formats, ", "))
		case queue.KindPoster:
			parts = append(parts, "poster ("+opts.PosterFormat+")")
		case queue.KindAudioRemoved:
			parts = append(parts, "remove audio")
		}
	}
	return strings.Join(parts, "; ")
}

func truncate(value string, limit int) string {
	if limit <= 1 || utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit-1]) + "…"
}
