package sink

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	inthttp "github.com/rescale/appendix-client/internal/http"
)

type bufferUploader interface {
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

// AzureSink uploads documents as block blobs under container/prefix.
type AzureSink struct {
	client     bufferUploader
	serviceURL string
	container  string
	prefix     string
	retry      inthttp.Config
}

// NewAzureSink authenticates with a SAS token; there is no key-based path.
func NewAzureSink(account, container, prefix string, opts Options) (*AzureSink, error) {
	sas := strings.TrimPrefix(strings.TrimSpace(opts.AzureSAS), "?")
	if sas == "" {
		return nil, errors.New("azblob destination requires a SAS token")
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", account)

	clientOpts := &azblob.ClientOptions{}
	if opts.HTTPClient != nil {
		clientOpts.ClientOptions = azcore.ClientOptions{
			Transport: opts.HTTPClient,
		}
	}

	client, err := azblob.NewClientWithNoCredential(serviceURL+"?"+sas, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	return newAzureSink(client, serviceURL, container, prefix, opts.retryConfig()), nil
}

func newAzureSink(client bufferUploader, serviceURL, container, prefix string, retry inthttp.Config) *AzureSink {
	return &AzureSink{
		client:     client,
		serviceURL: strings.TrimSuffix(serviceURL, "/"),
		container:  container,
		prefix:     prefix,
		retry:      retry,
	}
}

// Save uploads the document in one call. Existing blobs are replaced.
func (s *AzureSink) Save(ctx context.Context, filename string, content []byte) (string, error) {
	blob := objectKey(s.prefix, filepath.Base(filename))

	err := inthttp.ExecuteWithRetry(ctx, s.retry, func() error {
		_, err := s.client.UploadBuffer(ctx, s.container, blob, content, nil)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload blob %s/%s: %w", s.container, blob, err)
	}
	// Location never includes the SAS token
	return fmt.Sprintf("%s/%s/%s", s.serviceURL, s.container, blob), nil
}
