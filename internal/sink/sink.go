// Package sink stores generated documents in the configured output
// destination: a local directory, an S3 prefix or an Azure blob container.
package sink

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	inthttp "github.com/rescale/appendix-client/internal/http"
)

// Sink saves a document and returns a human-readable location for it.
type Sink interface {
	Save(ctx context.Context, filename string, content []byte) (string, error)
}

// Destination schemes
const (
	SchemeS3    = "s3"
	SchemeAzure = "azblob"
	SchemeFile  = "file"
)

// Options carries what the remote sinks need beyond the destination string.
type Options struct {
	HTTPClient *http.Client
	S3         S3Options
	// AzureSAS is the shared access signature appended to the account URL.
	AzureSAS string
	// Retry applies to remote sinks; zero value means inthttp.DefaultConfig.
	Retry inthttp.Config
}

func (o Options) retryConfig() inthttp.Config {
	if o.Retry.MaxRetries == 0 {
		return inthttp.DefaultConfig()
	}
	return o.Retry
}

// Open returns the sink for dest. An empty destination means the user's
// download directory.
//
//	""                                    ~/Downloads, or the working directory
//	/some/dir, file:///some/dir           local directory
//	s3://bucket/prefix                    S3 objects under prefix
//	azblob://account/container/prefix     Azure blobs under prefix
func Open(ctx context.Context, dest string, opts Options) (Sink, error) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return NewLocalSink(DefaultDownloadDir())
	}

	scheme, rest, ok := strings.Cut(dest, "://")
	if !ok {
		return NewLocalSink(dest)
	}

	switch strings.ToLower(scheme) {
	case SchemeFile:
		u, err := url.Parse(dest)
		if err != nil {
			return nil, fmt.Errorf("invalid file destination %q: %w", dest, err)
		}
		return NewLocalSink(filepath.FromSlash(u.Path))
	case SchemeS3:
		bucket, prefix := splitFirst(rest)
		if bucket == "" {
			return nil, fmt.Errorf("s3 destination %q is missing a bucket", dest)
		}
		return NewS3Sink(ctx, bucket, prefix, opts)
	case SchemeAzure:
		account, remainder := splitFirst(rest)
		container, prefix := splitFirst(remainder)
		if account == "" || container == "" {
			return nil, fmt.Errorf("azblob destination %q must be azblob://account/container[/prefix]", dest)
		}
		return NewAzureSink(account, container, prefix, opts)
	default:
		return nil, fmt.Errorf("unsupported output destination scheme %q", scheme)
	}
}

// DefaultDownloadDir is ~/Downloads when it exists, else the working directory.
func DefaultDownloadDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, "Downloads")
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func splitFirst(s string) (string, string) {
	s = strings.Trim(s, "/")
	head, tail, _ := strings.Cut(s, "/")
	return head, strings.Trim(tail, "/")
}

// objectKey joins prefix and filename with a single slash.
func objectKey(prefix, filename string) string {
	if prefix == "" {
		return filename
	}
	return prefix + "/" + filename
}
