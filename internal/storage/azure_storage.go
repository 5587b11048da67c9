package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// BlobStorage loads uploads kept in a blob container
type BlobStorage interface {
	GetImage(ctx context.Context, blobURL string) ([]byte, error)
}

type azureStorage struct {
	client   *azblob.Client
	host     string
	maxBytes int64
}

// NewAzureStorage connects to the account's blob endpoint with a shared key.
func NewAzureStorage(accountName string, accountKey string) (BlobStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	host := fmt.Sprintf("%s.blob.core.windows.net", accountName)
	client, err := azblob.NewClientWithSharedKeyCredential("https://"+host, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &azureStorage{client: client, host: host, maxBytes: DefaultMaxImageBytes}, nil
}

// ParseBlobURL splits https://<account>.blob.core.windows.net/<container>/<blob>
// into container and blob name.
func ParseBlobURL(blobURL string) (container, blob string, err error) {
	parsedURL, err := url.Parse(blobURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}
	container, blob, ok := strings.Cut(strings.TrimPrefix(parsedURL.Path, "/"), "/")
	if !ok || container == "" || blob == "" {
		return "", "", fmt.Errorf("invalid blob URL: %q has no container/blob path", blobURL)
	}
	return container, blob, nil
}

// IsBlobURL reports whether rawURL points at an Azure blob endpoint.
func IsBlobURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), ".blob.core.windows.net")
}

func (s *azureStorage) GetImage(ctx context.Context, blobURL string) ([]byte, error) {
	u, err := url.Parse(blobURL)
	if err != nil {
		return nil, fmt.Errorf("invalid blob URL: %w", err)
	}
	if !strings.EqualFold(u.Hostname(), s.host) {
		return nil, fmt.Errorf("blob URL host %q does not belong to account %q", u.Hostname(), s.host)
	}
	containerName, blobName, err := ParseBlobURL(blobURL)
	if err != nil {
		return nil, err
	}

	downloadResponse, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	retryReader := downloadResponse.Body
	defer retryReader.Close()

	data, err := io.ReadAll(io.LimitReader(retryReader, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrImageTooLarge
	}
	return data, nil
}

// RoutingFetcher sends blob URLs to blob storage and everything else over HTTP.
type RoutingFetcher struct {
	http  ImageFetcher
	blobs BlobStorage
}

// NewRoutingFetcher creates a fetcher; blobs may be nil when no account is configured.
func NewRoutingFetcher(http ImageFetcher, blobs BlobStorage) *RoutingFetcher {
	return &RoutingFetcher{http: http, blobs: blobs}
}

func (r *RoutingFetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	if r.blobs != nil && IsBlobURL(imageURL) {
		return r.blobs.GetImage(ctx, imageURL)
	}
	return r.http.FetchImage(ctx, imageURL)
}
