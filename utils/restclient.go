package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rentathing/models"
)

// RESTClient performs authenticated JSON calls against the marketplace backend.
type RESTClient struct {
	BaseURL string
	HTTP    *http.Client
}

// NewRESTClient returns a client rooted at baseURL.
func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Do sends in (if non-nil) as JSON and decodes the response into out (if non-nil).
// Non-2xx responses become *models.RequestError, transport failures *models.NetworkError.
func (c *RESTClient) Do(ctx context.Context, op, method, path, token string, query url.Values, in, out any) error {
	return c.do(ctx, op, method, path, token, "", query, in, out)
}

// DoIdempotent is Do with an Idempotency-Key header, letting the backend
// drop a replayed write.
func (c *RESTClient) DoIdempotent(ctx context.Context, op, method, path, token, key string, in, out any) error {
	return c.do(ctx, op, method, path, token, key, nil, in, out)
}

func (c *RESTClient) do(ctx context.Context, op, method, path, token, key string, query url.Values, in, out any) error {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return &models.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &models.NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &models.RequestError{Op: op, StatusCode: resp.StatusCode, Message: remoteMessage(raw, resp.Status)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// remoteMessage extracts {"message": ...} or {"error": ...} from an error body.
func remoteMessage(raw []byte, fallback string) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" && len(s) < 256 {
		return s
	}
	return fallback
}

// IsNotFound reports whether err is a 404 from a remote API.
func IsNotFound(err error) bool {
	var re *models.RequestError
	return errors.As(err, &re) && re.StatusCode == http.StatusNotFound
}
