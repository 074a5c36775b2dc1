package intake

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// detectExtension identifies the container from the file content and returns
// the extension the staged copy takes. Non-video content and containers
// outside allowed are rejected.
func detectExtension(path string, allowed func(string) bool) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", inputError("source file is unreadable", err)
	}
	ext := strings.TrimPrefix(mtype.Extension(), ".")
	if !isVideo(mtype) || ext == "" {
		return "", inputError(fmt.Sprintf("unsupported file type: content is %s, not a video container", mtype.String()), nil)
	}
	if !allowed(ext) {
		return "", inputError(fmt.Sprintf("unsupported file type %q", ext), nil)
	}
	return ext, nil
}

func isVideo(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "video/") {
			return true
		}
	}
	return false
}
