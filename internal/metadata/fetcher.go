package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/http"
	"strings"
	"time"

	"auction-relay/internal/observability"
)

// LabelUnavailable is shown in place of a name when metadata cannot be loaded.
const LabelUnavailable = "Metadata unavailable"

// PlaceholderImage is an inline "Image Not Found" SVG.
const PlaceholderImage = "data:image/svg+xml;base64,PHN2ZyB3aWR0aD0iNDAwIiBoZWlnaHQ9IjQwMCIgdmlld0JveD0iMCAwIDQwMCA0MDAiIGZpbGw9Im5vbmUiIHhtbG5zPSJodHRwOi8vd3d3LnczLm9yZy8yMDAwL3N2ZyI+CjxyZWN0IHdpZHRoPSI0MDAiIGhlaWdodD0iNDAwIiBmaWxsPSIjMzc0MTUxIi8+Cjx0ZXh0IHg9IjIwMCIgeT0iMjAwIiB0ZXh0LWFuY2hvcj0ibWlkZGxlIiBmaWxsPSIjNkI3MjgwIiBmb250LXNpemU9IjE2Ij5JbWFnZSBOb3QgRm91bmQ8L3RleHQ+Cjwvc3ZnPgo="

const (
	defaultFetchTimeout = 10 * time.Second
	maxMetadataBytes    = 1 << 20
)

// Attribute is an ERC-721 metadata trait.
type Attribute struct {
	TraitType string      `json:"trait_type"`
	Value     interface{} `json:"value"`
}

// Metadata is ERC-721 token metadata.
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	ExternalURL string      `json:"external_url,omitempty"`
	Attributes  []Attribute `json:"attributes,omitempty"`
}

// Preview is what a caller renders for a token. When Placeholder is set,
// Image is PlaceholderImage and Label explains why.
type Preview struct {
	Metadata
	URL         string `json:"url"`
	Placeholder bool   `json:"placeholder"`
	Label       string `json:"label,omitempty"`
	Error       string `json:"error,omitempty"`
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	Gateway    string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Fetcher loads metadata over HTTP. It never returns an error; failures
// produce a placeholder Preview.
type Fetcher struct {
	resolver Resolver
	client   *http.Client
	logger   *log.Logger
}

// NewFetcher creates a new Fetcher.
func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultFetchTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Fetcher{
		resolver: NewResolver(opts.Gateway),
		client:   opts.HTTPClient,
		logger:   opts.Logger,
	}
}

// Resolver returns the fetcher's gateway resolver.
func (f *Fetcher) Resolver() Resolver {
	return f.resolver
}

// Fetch resolves uri and loads its JSON metadata.
func (f *Fetcher) Fetch(ctx context.Context, uri string) Preview {
	url := f.resolver.Resolve(uri)

	md, err := f.get(ctx, url)
	if err != nil {
		f.logger.Printf("metadata %s: %v", url, err)
		observability.RecordMetadataFallback()
		return Preview{
			Metadata:    Metadata{Image: PlaceholderImage},
			URL:         url,
			Placeholder: true,
			Label:       LabelUnavailable,
			Error:       err.Error(),
		}
	}

	md.Image = f.resolver.Resolve(md.Image)
	return Preview{Metadata: *md, URL: url}
}

// TokenMetadataURL returns {base}/{tokenId}/metadata.json.
func TokenMetadataURL(base string, tokenID *big.Int) string {
	return fmt.Sprintf("%s/%s/metadata.json", strings.TrimSuffix(base, "/"), tokenID.String())
}

// TokenImageURL returns {base}/{tokenId}/image.png.
func TokenImageURL(base string, tokenID *big.Int) string {
	return fmt.Sprintf("%s/%s/image.png", strings.TrimSuffix(base, "/"), tokenID.String())
}

func (f *Fetcher) get(ctx context.Context, url string) (*Metadata, error) {
	if url == "" {
		return nil, fmt.Errorf("empty metadata uri")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch metadata: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var md Metadata
	if err := json.Unmarshal(body, &md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &md, nil
}
