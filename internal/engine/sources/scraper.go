package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/anatolykoptev/go_carousel/internal/engine"
	"github.com/anatolykoptev/go_carousel/internal/engine/transcript"
	"github.com/shopspring/decimal"
)

// PageScraper is the scraper-library source: it scrapes the watch page's
// ytInitialPlayerResponse for caption tracks and downloads the timedtext XML.
// When the page lists no tracks it asks the ANDROID /player endpoint instead.
type PageScraper struct {
	BaseURL string
	Client  *http.Client
	Browser *engine.BrowserClient // nil = plain HTTP client
	Langs   []string
}

// NewPageScraper returns a watch-page scraper preferring langs, in order.
func NewPageScraper(client *http.Client, browser *engine.BrowserClient, langs []string) *PageScraper {
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	return &PageScraper{BaseURL: ytBaseURL, Client: client, Browser: browser, Langs: langs}
}

func (s *PageScraper) Name() string { return transcript.SourceScraper }

// --- Timedtext XML types ---

// ytTimedText covers both the legacy <transcript><text start dur> format and
// the srv3 <timedtext><body><p t d> format.
type ytTimedText struct {
	Lines []ytLine `xml:"text"`
	Body  *struct {
		Paras []ytPara `xml:"p"`
	} `xml:"body"`
}

type ytLine struct {
	Start string `xml:"start,attr"` // seconds
	Dur   string `xml:"dur,attr"`   // seconds
	Text  string `xml:",chardata"`
}

type ytPara struct {
	T    string `xml:"t,attr"` // milliseconds
	D    string `xml:"d,attr"` // milliseconds
	Text string `xml:",innerxml"`
}

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

var thousand = decimal.NewFromInt(1000)

// secondsToMillis converts a decimal seconds string ("12.345") to milliseconds.
// Malformed or empty input yields 0.
func secondsToMillis(s string) int64 {
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return d.Mul(thousand).IntPart()
}

// parseMillis parses an integer milliseconds attribute; malformed input yields 0.
func parseMillis(s string) int64 {
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return d.IntPart()
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack selects the best usable caption track for the given language preferences.
// Skips tracks that require PoToken; those only work in a browser.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	// 1. Manual track in preferred language
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	// 2. Auto-generated track in preferred language
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	// 3. Any English track
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

// parseTimedText converts timedtext XML into normalized segments.
func parseTimedText(body []byte) ([]transcript.Segment, error) {
	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	var segs []transcript.Segment
	for _, line := range tt.Lines {
		text := transcript.Normalize(engine.CleanHTML(line.Text))
		if text == "" {
			continue
		}
		segs = append(segs, transcript.Segment{
			Text:           text,
			OffsetMillis:   secondsToMillis(line.Start),
			DurationMillis: secondsToMillis(line.Dur),
		})
	}
	if tt.Body != nil {
		for _, p := range tt.Body.Paras {
			text := transcript.Normalize(engine.CleanHTML(p.Text))
			if text == "" {
				continue
			}
			segs = append(segs, transcript.Segment{
				Text:           text,
				OffsetMillis:   parseMillis(p.T),
				DurationMillis: parseMillis(p.D),
			})
		}
	}
	return segs, nil
}

// fetchTimedText fetches and parses a YouTube timedtext XML caption URL.
func fetchTimedText(ctx context.Context, client *http.Client, baseURL string) ([]transcript.Segment, error) {
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: fetch timedtext: %v", transcript.ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch timedtext: HTTP %d", transcript.ErrTransport, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("%w: read timedtext: %v", transcript.ErrTransport, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty timedtext body", transcript.ErrNoCaptions)
	}
	return parseTimedText(body)
}

// fetchWatchPage downloads the watch page HTML, through the TLS-fingerprinting
// browser client when one is configured.
func (s *PageScraper) fetchWatchPage(ctx context.Context, videoID string) ([]byte, error) {
	watchURL := s.BaseURL + "/watch?v=" + videoID

	if s.Browser != nil {
		headers := engine.ChromeHeaders()
		headers["accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
		headers["accept-language"] = "en-US,en;q=0.9"
		data, err := engine.RetryDo(ctx, engine.DefaultRetryConfig, func() ([]byte, error) {
			data, _, status, err := s.Browser.Do("GET", watchURL, headers, nil)
			if err != nil {
				return nil, err
			}
			if status != http.StatusOK {
				return nil, fmt.Errorf("watch page status %d", status)
			}
			return data, nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: watch page: %v", transcript.ErrTransport, err)
		}
		return data, nil
	}

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return s.Client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: watch page: %v", transcript.ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: watch page: HTTP %d", transcript.ErrTransport, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("%w: read watch page: %v", transcript.ErrTransport, err)
	}
	return body, nil
}

// parsePlayerResponse extracts ytInitialPlayerResponse from watch page HTML.
func parsePlayerResponse(page []byte) (*innertubePlayerResp, error) {
	idx := bytes.Index(page, []byte(ytInitialPlayerResponseMarker))
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(page[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}
	var player innertubePlayerResp
	if err := json.Unmarshal(jsonData, &player); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &player, nil
}

// pageTitle reads the video title from the watch page's meta tags.
func pageTitle(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}
	if t := strings.TrimSpace(doc.Find(`meta[name="title"]`).AttrOr("content", "")); t != "" {
		return t
	}
	if t := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", "")); t != "" {
		return t
	}
	t := strings.TrimSpace(doc.Find("title").First().Text())
	t = strings.TrimSpace(strings.TrimSuffix(t, "- YouTube"))
	if t == "YouTube" {
		return ""
	}
	return t
}

// extractJSON returns the first balanced {...} object at the start of b.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// Fetch scrapes the watch page for caption tracks, falling back to the
// ANDROID player for the track list, then downloads the best track.
func (s *PageScraper) Fetch(ctx context.Context, videoID string) (transcript.Transcript, error) {
	page, err := s.fetchWatchPage(ctx, videoID)
	if err != nil {
		return transcript.Transcript{}, err
	}

	var details *videoDetails
	var tracks []captionTrack
	player, err := parsePlayerResponse(page)
	if err == nil {
		details = player.VideoDetails
		tracks, err = player.captionTracks()
	}
	if len(tracks) == 0 {
		slog.Debug("scraper: no tracks in watch page, trying android player",
			slog.String("id", videoID), slog.Any("error", err))
		android, aerr := fetchAndroidPlayer(ctx, s.Client, s.BaseURL, videoID)
		if aerr != nil {
			return transcript.Transcript{}, fmt.Errorf("%w: watch page: %v; android player: %v", transcript.ErrNoCaptions, err, aerr)
		}
		if tracks, aerr = android.captionTracks(); aerr != nil {
			return transcript.Transcript{}, aerr
		}
		if details == nil {
			details = android.VideoDetails
		}
	}

	track, ok := pickBestTrack(tracks, s.Langs)
	if !ok {
		return transcript.Transcript{}, fmt.Errorf("%w: all caption tracks require PoToken", transcript.ErrNoCaptions)
	}
	segs, err := fetchTimedText(ctx, s.Client, track.BaseURL)
	if err != nil {
		return transcript.Transcript{}, err
	}
	text := transcript.JoinSegments(segs)
	if err := transcript.Accept(text); err != nil {
		return transcript.Transcript{}, err
	}

	title := details.title()
	if title == "" {
		title = pageTitle(page)
	}
	if title == "" {
		title = transcript.UnknownTitle
	}
	duration := details.durationMillis()
	if duration == 0 && len(segs) > 0 {
		last := segs[len(segs)-1]
		duration = last.OffsetMillis + last.DurationMillis
	}

	return transcript.Transcript{
		Text:           text,
		Segments:       segs,
		VideoTitle:     title,
		DurationMillis: duration,
		Source:         transcript.SourceScraper,
	}, nil
}
