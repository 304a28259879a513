package contentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kmccann/secblog/blog/domain"
)

const defaultTimeout = 10 * time.Second

// Client is a thin JSON client for a headless content service. It owns the
// base URL, bearer token, and error mapping; the Repository built on top of
// it translates repository calls into endpoint invocations.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a content-service client for the given base URL.
// The token, when non-empty, is sent as a bearer credential.
func NewClient(baseURL string, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

// do performs one request against the content service. A non-nil body is
// sent as JSON; a non-nil out receives the decoded response body.
func (c *Client) do(ctx context.Context, method string, path string, query url.Values, body any, out any) error {
	op := fmt.Sprintf("%s %s", method, path)

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("contentapi: %s failed to encode request: %w", op, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("contentapi: %s failed to build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("contentapi: %s failed: %w", op, err)
	}
	defer resp.Body.Close()

	if err := handleStatus(op, resp); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("contentapi: %s failed to decode response: %w", op, err)
		}
	}

	return nil
}

// handleStatus maps the remote status code onto domain error kinds so the
// service layer treats both storage backends identically.
func handleStatus(op string, resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("contentapi: %s: %w", op, domain.ErrNotFound)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("contentapi: %s: %w", op, domain.ErrConflict)
	}

	var remote struct {
		Error string `json:"error"`
	}
	message := ""
	if raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
		if json.Unmarshal(raw, &remote) == nil {
			message = remote.Error
		}
	}
	if message == "" {
		return fmt.Errorf("contentapi: %s failed with status %d", op, resp.StatusCode)
	}
	return fmt.Errorf("contentapi: %s failed with status %d: %s", op, resp.StatusCode, message)
}
