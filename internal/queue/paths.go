package queue

import (
	"path/filepath"
	"strings"
)

// Filesystem layout shared by intake, the pipeline and the sweeper. Outputs
// live flat in the media root and are isolated by the job id prefix.

// ScratchDir is the job-scoped staging directory.
func ScratchDir(scratchRoot, jobID string) string {
	return filepath.Join(scratchRoot, jobID)
}

// StagedInputPath is where intake places the uploaded source.
func StagedInputPath(scratchRoot, jobID, ext string) string {
	return filepath.Join(ScratchDir(scratchRoot, jobID), jobID+dotExt(ext))
}

func CompressedName(jobID, ext string) string {
	return jobID + dotExt(ext)
}

func AudioRemovedName(jobID, ext string) string {
	return jobID + "-noaudio" + dotExt(ext)
}

func ConvertedName(jobID, disambiguator, format string) string {
	return jobID + "-" + disambiguator + dotExt(format)
}

func PosterName(jobID, format string) string {
	return jobID + "-poster" + dotExt(format)
}

// OwnedBy reports whether a media root file name belongs to jobID.
func OwnedBy(fileName, jobID string) bool {
	if jobID == "" || !strings.HasPrefix(fileName, jobID) {
		return false
	}
	rest := fileName[len(jobID):]
	return strings.HasPrefix(rest, ".") || strings.HasPrefix(rest, "-")
}

// OwnerCandidates lists the job ids that could own fileName, longest first.
// Job ids may contain dashes, so every prefix ending at a dash or dot counts.
func OwnerCandidates(fileName string) []string {
	var out []string
	for i := len(fileName) - 1; i > 0; i-- {
		if fileName[i] == '-' || fileName[i] == '.' {
			out = append(out, fileName[:i])
		}
	}
	return out
}

func dotExt(ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return ""
	}
	return "." + ext
}
