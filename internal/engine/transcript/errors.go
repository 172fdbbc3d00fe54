package transcript

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidIdentifier   = errors.New("invalid youtube url or video id")
	ErrNotConfigured       = errors.New("source not configured")
	ErrNoCaptions          = errors.New("no captions available")
	ErrTooShort            = errors.New("transcript empty or too short")
	ErrEmptyResult         = errors.New("empty result")
	ErrTransport           = errors.New("transport error")
	ErrServiceStatus       = errors.New("unexpected service status")
	ErrTimeout             = errors.New("timed out waiting for remote job")
	ErrRemoteJobFailed     = errors.New("remote job failed")
	ErrDownloadFailed      = errors.New("audio download failed")
	ErrTranscriptionFailed = errors.New("speech-to-text failed")
	ErrAllSourcesExhausted = errors.New("all transcript sources exhausted")
)

// ExhaustedError is returned by the Resolver when no source produced a
// transcript. It carries every source's outcome in chain order.
type ExhaustedError struct {
	VideoID  string
	Outcomes []Outcome
}

func (e *ExhaustedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s for %s", ErrAllSourcesExhausted, e.VideoID)
	for i, o := range e.Outcomes {
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString("; ")
		}
		sb.WriteString(o.Label())
	}
	return sb.String()
}

// Is matches ErrAllSourcesExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllSourcesExhausted
}

// Unwrap exposes the individual source failures so errors.Is can match them.
func (e *ExhaustedError) Unwrap() []error {
	var errs []error
	for _, o := range e.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}
