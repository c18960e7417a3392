package submit

import (
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/rescale/appendix-client/internal/constants"
)

// FailureKind classifies why a submission failed. Every kind lands in the
// same Failed phase; the kind only shapes logging.
type FailureKind int

const (
	// TransportFailure - the request never produced a response, or the
	// response body could not be read
	TransportFailure FailureKind = iota
	// ServerFailure - the generator answered with a non-2xx status
	ServerFailure
	// DownloadFailure - the document arrived but could not be saved
	DownloadFailure
)

func (k FailureKind) String() string {
	switch k {
	case TransportFailure:
		return "transport"
	case ServerFailure:
		return "server"
	case DownloadFailure:
		return "download"
	default:
		return "unknown"
	}
}

// Outcome is the settled result of one submission: Success or Failure.
type Outcome interface {
	isOutcome()
}

// Success describes a saved document.
type Success struct {
	Filename string
	Location string
	Size     int64
}

// Failure carries the message shown for a failed submission.
type Failure struct {
	Kind    FailureKind
	Status  int // HTTP status for ServerFailure, 0 otherwise
	Message string
}

func (Success) isOutcome() {}
func (Failure) isOutcome() {}

// Error lets a Failure travel as an error value.
func (f Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s (status %d)", f.Message, f.Status)
	}
	return f.Message
}

var filenamePattern = regexp.MustCompile(`(?i)filename=(.+)`)

// ResolveFilename extracts the download name from a Content-Disposition
// value. Surrounding quotes are stripped and the result is reduced to a bare
// file name. A missing header or unmatched pattern yields the default name.
func ResolveFilename(contentDisposition string) string {
	m := filenamePattern.FindStringSubmatch(contentDisposition)
	if m == nil {
		return constants.DefaultDownloadFilename
	}

	value := strings.TrimSpace(m[1])
	if value != "" && (value[0] == '"' || value[0] == '\'') {
		quote := value[0]
		value = value[1:]
		if end := strings.IndexByte(value, quote); end >= 0 {
			value = value[:end]
		}
	} else if end := strings.IndexByte(value, ';'); end >= 0 {
		value = value[:end]
	}
	value = strings.Trim(strings.TrimSpace(value), `"'`)

	// Never let the server pick a directory
	value = path.Base(strings.ReplaceAll(value, `\`, "/"))
	switch value {
	case "", ".", "..", "/":
		return constants.DefaultDownloadFilename
	}
	return value
}

// FailureMessage extracts the human-readable "detail" field from a JSON
// error body, falling back to the generic message when the body is not JSON
// or detail is missing, empty or not a string.
func FailureMessage(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return constants.GenericUploadError
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err != nil || detail == "" {
		return constants.GenericUploadError
	}
	return detail
}
