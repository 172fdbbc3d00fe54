package transcript

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	videoURLRe = regexp.MustCompile(`(?:youtube(?:-nocookie)?\.com/(?:watch\?(?:[^#]*&)?v=|embed/|v/|shorts/|live/)|youtu\.be/)([a-zA-Z0-9_-]{11})(?:[^a-zA-Z0-9_-]|$)`)
	bareIDRe   = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
)

// ExtractVideoID returns the 11-character video id from a watch URL, a
// youtu.be short URL, an embed/v/shorts/live URL, or a bare id.
// It performs no I/O.
func ExtractVideoID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if m := videoURLRe.FindStringSubmatch(s); len(m) >= 2 {
		return m[1], nil
	}
	if bareIDRe.MatchString(s) {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, raw)
}

// WatchURL returns the canonical watch page URL for id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// ThumbnailURL returns the max-resolution thumbnail URL for id.
func ThumbnailURL(id string) string {
	return "https://img.youtube.com/vi/" + id + "/maxresdefault.jpg"
}
