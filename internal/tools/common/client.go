package common

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sandeepkv93/product-catalog-demo/internal/domain"
)

// ProductPayload is the create/update body accepted by the product API.
type ProductPayload struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// APIError is a non-2xx answer from the product API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// ProductClient talks to a running product API rooted at BaseURL (for example
// http://localhost:5000/api).
type ProductClient struct {
	baseURL string
	http    *http.Client
}

func NewProductClient(baseURL string, httpClient *http.Client) *ProductClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &ProductClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *ProductClient) List(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	_, err := c.do(ctx, http.MethodGet, "/products", nil, nil, &out)
	return out, err
}

// Create posts p. A non-empty idempotencyKey is sent as the Idempotency-Key header;
// replayed reports whether the server answered from its idempotency cache.
func (c *ProductClient) Create(ctx context.Context, p ProductPayload, idempotencyKey string) (product domain.Product, replayed bool, err error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	resp, err := c.do(ctx, http.MethodPost, "/products", p, headers, &product)
	if err != nil {
		return domain.Product{}, false, err
	}
	return product, resp.Header.Get("X-Idempotency-Replayed") == "true", nil
}

func (c *ProductClient) DeleteAll(ctx context.Context) (int64, error) {
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	_, err := c.do(ctx, http.MethodDelete, "/products", nil, nil, &out)
	return out.Deleted, err
}

func (c *ProductClient) Count(ctx context.Context) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	_, err := c.do(ctx, http.MethodGet, "/products/count", nil, nil, &out)
	return out.Count, err
}

// Do sends a raw request relative to the base URL and returns the status code.
func (c *ProductClient) Do(ctx context.Context, method, path string, body any, headers map[string]string) (int, error) {
	resp, err := c.do(ctx, method, path, body, headers, nil)
	if resp != nil {
		return resp.StatusCode, err
	}
	return 0, err
}

func (c *ProductClient) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(payload, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return resp, apiErr
	}
	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}
