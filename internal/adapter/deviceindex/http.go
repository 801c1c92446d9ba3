// internal/adapter/deviceindex/http.go

package deviceindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/koo5/hillview-sub009/internal/domain/source"
)

// HTTPIndex queries the device photo index through the local plugin's HTTP
// endpoint.
type HTTPIndex struct {
	endpoint string
	client   *retryablehttp.Client
}

// NewHTTPIndex creates an index client for the given endpoint.
func NewHTTPIndex(endpoint string, client *retryablehttp.Client) *HTTPIndex {
	return &HTTPIndex{endpoint: endpoint, client: client}
}

// Query returns one page of indexed photos inside the given box.
func (x *HTTPIndex) Query(ctx context.Context, q source.DeviceQuery) (*source.DevicePage, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, x.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("device index request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("device index returned status %d", resp.StatusCode)
	}

	var page source.DevicePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &page, nil
}
