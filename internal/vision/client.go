package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ProviderError is returned when the geometry provider answers with a
// non-success status or a structured error payload. It is fatal for
// the current document; retry policy lives in the client submission
// layer, never here.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ocr provider (%d): %s", e.StatusCode, e.Message)
	}
	return "ocr provider: " + e.Message
}

// Client issues document text detection requests against a Google
// Vision style annotate endpoint. One call covers one page range; the
// caller is responsible for batching.
type Client struct {
	endpoint  string
	apiKey    string
	langHints []string
	http      *http.Client
}

// Options configures a geometry client.
type Options struct {
	Endpoint      string
	APIKey        string
	LanguageHints []string
	Timeout       time.Duration
}

// NewClient creates a geometry client for the given endpoint.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		endpoint:  opts.Endpoint,
		apiKey:    opts.APIKey,
		langHints: opts.LanguageHints,
		http:      &http.Client{Timeout: timeout},
	}
}

// Wire format of the files:annotate call. The whole document is sent
// each time; the page list restricts detection to the batch.
type annotateRequest struct {
	Requests []fileRequest `json:"requests"`
}

type fileRequest struct {
	InputConfig  inputConfig   `json:"inputConfig"`
	Features     []feature     `json:"features"`
	ImageContext *imageContext `json:"imageContext,omitempty"`
	Pages        []int         `json:"pages"`
}

type inputConfig struct {
	Content  string `json:"content"`
	MimeType string `json:"mimeType"`
}

type feature struct {
	Type string `json:"type"`
}

type imageContext struct {
	LanguageHints []string `json:"languageHints,omitempty"`
}

type annotateResponse struct {
	Responses []fileResponse `json:"responses"`
	Error     *apiError      `json:"error"`
}

type fileResponse struct {
	Responses  []pageResponse `json:"responses"`
	Error      *apiError      `json:"error"`
	TotalPages int            `json:"totalPages"`
}

type pageResponse struct {
	FullTextAnnotation *textAnnotation `json:"fullTextAnnotation"`
	Error              *apiError       `json:"error"`
}

type textAnnotation struct {
	Pages []annotatedPage `json:"pages"`
	Text  string          `json:"text"`
}

type annotatedPage struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Blocks []Block `json:"blocks"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// AnnotateRange performs one full-document text detection call
// restricted to the inclusive 1-based page range [first, last] and
// returns one GeometryPage per requested page, in ascending page
// order. Pages the provider found no text on come back as empty
// GeometryPage values so the caller's page indexing stays aligned.
func (c *Client) AnnotateRange(ctx context.Context, pdf []byte, first, last int) ([]GeometryPage, error) {
	if first < 1 || last < first {
		return nil, fmt.Errorf("invalid page range %d-%d", first, last)
	}

	pages := make([]int, 0, last-first+1)
	for p := first; p <= last; p++ {
		pages = append(pages, p)
	}

	req := annotateRequest{
		Requests: []fileRequest{{
			InputConfig: inputConfig{
				Content:  base64.StdEncoding.EncodeToString(pdf),
				MimeType: "application/pdf",
			},
			Features: []feature{{Type: "DOCUMENT_TEXT_DETECTION"}},
			Pages:    pages,
		}},
	}
	if len(c.langHints) > 0 {
		req.Requests[0].ImageContext = &imageContext{LanguageHints: c.langHints}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal annotate request: %w", err)
	}

	url := c.endpoint + "/v1/files:annotate?key=" + c.apiKey
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create annotate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("annotate request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed annotateResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("provider returned status %d", resp.StatusCode)
		if decodeErr == nil && parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return nil, &ProviderError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &ProviderError{Message: "malformed provider response: " + decodeErr.Error()}
	}
	if len(parsed.Responses) == 0 {
		return nil, &ProviderError{Message: "provider response contains no results"}
	}

	file := parsed.Responses[0]
	if file.Error != nil {
		return nil, &ProviderError{StatusCode: file.Error.Code, Message: file.Error.Message}
	}

	result := make([]GeometryPage, 0, len(pages))
	for i, pr := range file.Responses {
		if i >= len(pages) {
			break
		}
		if pr.Error != nil {
			return nil, &ProviderError{StatusCode: pr.Error.Code, Message: pr.Error.Message}
		}
		result = append(result, toGeometryPage(pr.FullTextAnnotation))
	}
	// Pad absent trailing results: no text detected on those pages.
	for len(result) < len(pages) {
		result = append(result, GeometryPage{})
	}
	return result, nil
}

func toGeometryPage(ann *textAnnotation) GeometryPage {
	if ann == nil || len(ann.Pages) == 0 {
		return GeometryPage{}
	}
	p := ann.Pages[0]
	return GeometryPage{
		PixelWidth:  p.Width,
		PixelHeight: p.Height,
		Blocks:      p.Blocks,
		RawText:     ann.Text,
	}
}
