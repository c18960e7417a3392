package constants

import (
	"time"
)

// Server endpoints
const (
	// UploadPath - fixed path of the appendix generation endpoint
	UploadPath = "/upload"

	// HealthPath - liveness probe exposed by the generator
	HealthPath = "/health"

	// DefaultServerURL - generator address used when nothing is configured
	DefaultServerURL = "http://localhost:8000"
)

// Submission lifecycle
const (
	// RevertDelay - how long the success/error status stays on the submit control
	// before it returns to its original label and is re-enabled (3 seconds)
	RevertDelay = 3000 * time.Millisecond

	// DefaultDownloadFilename - used when the response carries no usable
	// Content-Disposition filename
	DefaultDownloadFilename = "appendix.docx"

	// GenericUploadError - failure message when the server gives no detail
	GenericUploadError = "Upload failed"
)

// Submit control labels
const (
	SubmitLabel  = "Generate Appendix"
	BusyLabel    = "Generating..."
	SuccessLabel = "✓ Download Started!"
	ErrorLabel   = "✗ Error - Try Again"
)

// Form field names sent with every request
const (
	FieldFiles           = "files"
	FieldImageWidth      = "image_width"
	FieldPaperSize       = "paper_size"
	FieldOutputFormat    = "output_format"
	FieldCaptionPosition = "caption_position"
)

// Document defaults and bounds (centimeters)
const (
	DefaultImageWidth = 15.0
	MinImageWidth     = 8.0
	MaxImageWidth     = 20.0
	ImageWidthStep    = 0.5

	DefaultPaperSize       = "A4"
	DefaultOutputFormat    = "docx"
	DefaultCaptionPosition = "bottom"
)

// Theme values persisted in the preference store
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Event System
const (
	// EventBusDefaultBuffer - default buffer size for event channels
	EventBusDefaultBuffer = 256

	// EventBusMaxBuffer - maximum buffer size for a single subscriber
	EventBusMaxBuffer = 5000

	// UILoopQueueSize - pending tasks the UI loop accepts before Do blocks
	UILoopQueueSize = 64
)

// UI Updates
const (
	// ProgressUpdateInterval - minimum interval between progress bar redraws (100ms)
	ProgressUpdateInterval = 100 * time.Millisecond

	// ThumbnailSize - edge length of selection previews in the GUI (pixels)
	ThumbnailSize = 96
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// HealthCheckTimeout - overall timeout for the health probe (10 seconds).
	// The upload itself has no timeout.
	HealthCheckTimeout = 10 * time.Second
)
