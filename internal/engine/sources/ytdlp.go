package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/anatolykoptev/go_carousel/internal/engine/transcript"
	"github.com/tcolgate/mp3"
)

// audioExtensions is the probe order used to find the downloaded artifact.
var audioExtensions = []string{"mp3", "webm", "m4a", "opus", "ogg"}

// DownloadInfo is the metadata yt-dlp prints alongside the download.
type DownloadInfo struct {
	Title           string  `json:"title"`
	DurationSeconds float64 `json:"duration"`
}

// Downloader fetches a video's audio track into outputTemplate, a path whose
// "%(ext)s" placeholder the tool replaces with the final extension.
type Downloader interface {
	Download(ctx context.Context, watchURL, outputTemplate string) (DownloadInfo, error)
}

// YtDlp runs the yt-dlp binary.
type YtDlp struct {
	Path string
}

// Available reports whether the binary can be found.
func (y YtDlp) Available() bool {
	_, err := exec.LookPath(y.binary())
	return err == nil
}

func (y YtDlp) binary() string {
	if y.Path == "" {
		return "yt-dlp"
	}
	return y.Path
}

// Download extracts mp3 audio at 192K. Failures carry the tool's raw output.
func (y YtDlp) Download(ctx context.Context, watchURL, outputTemplate string) (DownloadInfo, error) {
	args := []string{
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"--no-warnings",
		"--no-check-certificates",
		"--no-playlist",
		"--print-json",
		"-o", outputTemplate,
		watchURL,
	}
	cmd := exec.CommandContext(ctx, y.binary(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		out := strings.TrimSpace(stderr.String() + "\n" + stdout.String())
		return DownloadInfo{}, fmt.Errorf("%w: yt-dlp: %v – %s", transcript.ErrDownloadFailed, err, out)
	}
	return parseDownloadInfo(stdout.Bytes()), nil
}

// parseDownloadInfo reads the last JSON object line printed by --print-json.
// Missing or malformed output yields zero metadata.
func parseDownloadInfo(out []byte) DownloadInfo {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var info DownloadInfo
		if json.Unmarshal(line, &info) == nil {
			return info
		}
	}
	return DownloadInfo{}
}

// locateAudio finds the downloaded artifact for prefix in dir: first by the
// known extensions in priority order, then by any file sharing the prefix.
func locateAudio(dir, prefix string) (string, error) {
	for _, ext := range audioExtensions {
		p := filepath.Join(dir, prefix+"."+ext)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	matches, _ := filepath.Glob(filepath.Join(dir, prefix+".*"))
	for _, m := range matches {
		if st, err := os.Stat(m); err == nil && !st.IsDir() {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: no audio file produced for %s", transcript.ErrDownloadFailed, prefix)
}

// removeArtifacts deletes every file under dir that starts with prefix.
func removeArtifacts(dir, prefix string) {
	matches, _ := filepath.Glob(filepath.Join(dir, prefix+"*"))
	for _, m := range matches {
		_ = os.Remove(m)
	}
}

// mp3Duration sums MP3 frame durations.
func mp3Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d := mp3.NewDecoder(f)
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
	)
	for {
		if err := d.Decode(&frame, &skipped); err != nil {
			if err == io.EOF {
				break
			}
			return 0, err
		}
		total += frame.Duration()
	}
	return total, nil
}
