package transcoder

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grafov/m3u8"
)

// PlaylistSegments lists the segment files referenced by a VOD media playlist
// on disk. Relative URIs resolve against the playlist's directory; remote or
// escaping URIs are ignored.
func PlaylistSegments(playlistPath string) ([]string, error) {
	segments, _, err := readPlaylist(playlistPath, false)
	return segments, err
}

func playlistSegments(playlistPath string) ([]string, int64, error) {
	return readPlaylist(playlistPath, true)
}

func readPlaylist(playlistPath string, requireSegments bool) ([]string, int64, error) {
	file, err := os.Open(playlistPath)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	playlist, listType, err := m3u8.DecodeFrom(bufio.NewReader(file), true)
	if err != nil {
		return nil, 0, fmt.Errorf("decode playlist: %w", err)
	}
	if listType != m3u8.MEDIA {
		return nil, 0, fmt.Errorf("expected media playlist in %s", filepath.Base(playlistPath))
	}
	media := playlist.(*m3u8.MediaPlaylist)

	dir := filepath.Dir(playlistPath)
	var (
		paths []string
		total int64
	)
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		uri := strings.TrimSpace(seg.URI)
		if uri == "" || strings.Contains(uri, "://") || filepath.IsAbs(uri) {
			continue
		}
		path := filepath.Join(dir, filepath.Clean(uri))
		if filepath.Dir(path) != dir {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			if requireSegments {
				return nil, 0, fmt.Errorf("segment %s: %w", uri, err)
			}
			paths = append(paths, path)
			continue
		}
		total += info.Size()
		paths = append(paths, path)
	}
	return paths, total, nil
}
