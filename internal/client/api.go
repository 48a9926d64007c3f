package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/mkweon/searchlayer/internal/ocr"
)

// APIError is a non-success response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server error: %d", e.StatusCode)
}

// Transient reports whether the failure is a gateway/unavailable/
// timeout class response worth retrying.
func (e *APIError) Transient() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Client talks to the searchlayer server API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates an API client. The generous timeout covers full
// pipeline runs on large documents.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// Health performs the lightweight liveness check used by the wake-up
// probe. Any non-2xx status counts as unreachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	// The probe must answer fast or not at all.
	probe := &http.Client{Timeout: 5 * time.Second}
	resp, err := probe.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: "health check failed"}
	}
	return nil
}

// ServerStatus mirrors the server's status payload.
type ServerStatus struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Engine    string `json:"engine"`
	Active    bool   `json:"active"`
	Processed int64  `json:"processed"`
	Failed    int64  `json:"failed"`
}

// Status returns the server status.
func (c *Client) Status(ctx context.Context) (*ServerStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/status", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, c.asAPIError(resp)
	}

	var status ServerStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &status, nil
}

// SubmitResult is the successful output of one submission.
type SubmitResult struct {
	PDF            []byte
	Filename       string
	ExtractedChars int
}

// SubmitDocument uploads the document and original name and returns
// the searchable PDF. The derived output name travels in the
// X-Output-Filename response header.
func (c *Client) SubmitDocument(ctx context.Context, name string, data []byte) (*SubmitResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := mw.WriteField("name", name); err != nil {
		return nil, fmt.Errorf("write name field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/ocr", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, c.asAPIError(resp)
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	filename := resp.Header.Get("X-Output-Filename")
	if filename == "" {
		filename = ocr.OutputName(name)
	}
	chars, _ := strconv.Atoi(resp.Header.Get("X-Extracted-Chars"))

	return &SubmitResult{PDF: pdf, Filename: filename, ExtractedChars: chars}, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *Client) asAPIError(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&errResp)
	return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
}
