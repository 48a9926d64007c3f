package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func annotation(text string, width, height float64, words ...string) map[string]interface{} {
	wordList := make([]map[string]interface{}, 0, len(words))
	for _, w := range words {
		symbols := make([]map[string]string, 0, len(w))
		for _, r := range w {
			symbols = append(symbols, map[string]string{"text": string(r)})
		}
		wordList = append(wordList, map[string]interface{}{
			"boundingBox": map[string]interface{}{
				"vertices": []map[string]float64{
					{"x": 10, "y": 20}, {"x": 50, "y": 20}, {"x": 50, "y": 40}, {"x": 10, "y": 40},
				},
			},
			"symbols": symbols,
		})
	}

	return map[string]interface{}{
		"fullTextAnnotation": map[string]interface{}{
			"text": text,
			"pages": []map[string]interface{}{{
				"width":  width,
				"height": height,
				"blocks": []map[string]interface{}{{
					"paragraphs": []map[string]interface{}{{
						"words": wordList,
					}},
				}},
			}},
		},
	}
}

func TestAnnotateRangeParsesPages(t *testing.T) {
	var gotReq annotateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/files:annotate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}

		resp := map[string]interface{}{
			"responses": []map[string]interface{}{{
				"responses": []map[string]interface{}{
					annotation("hello world\n", 1000, 2000, "hello", "world"),
					annotation("page two\n", 1000, 2000, "page", "two"),
				},
				"totalPages": 2,
			}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL, APIKey: "test-key", LanguageHints: []string{"ko", "en"}})

	doc := []byte("%PDF-1.4 fake")
	pages, err := c.AnnotateRange(context.Background(), doc, 1, 2)
	if err != nil {
		t.Fatalf("AnnotateRange: %v", err)
	}

	if len(gotReq.Requests) != 1 {
		t.Fatalf("expected 1 inner request, got %d", len(gotReq.Requests))
	}
	inner := gotReq.Requests[0]
	if inner.InputConfig.MimeType != "application/pdf" {
		t.Fatalf("expected application/pdf, got %s", inner.InputConfig.MimeType)
	}
	if inner.InputConfig.Content != base64.StdEncoding.EncodeToString(doc) {
		t.Fatal("document content not base64 of input")
	}
	if len(inner.Pages) != 2 || inner.Pages[0] != 1 || inner.Pages[1] != 2 {
		t.Fatalf("expected pages [1 2], got %v", inner.Pages)
	}
	if len(inner.Features) != 1 || inner.Features[0].Type != "DOCUMENT_TEXT_DETECTION" {
		t.Fatalf("expected DOCUMENT_TEXT_DETECTION feature, got %v", inner.Features)
	}
	if inner.ImageContext == nil || len(inner.ImageContext.LanguageHints) != 2 {
		t.Fatal("language hints not forwarded")
	}

	if len(pages) != 2 {
		t.Fatalf("expected 2 geometry pages, got %d", len(pages))
	}
	if pages[0].RawText != "hello world\n" {
		t.Fatalf("unexpected raw text %q", pages[0].RawText)
	}
	if pages[0].PixelWidth != 1000 || pages[0].PixelHeight != 2000 {
		t.Fatalf("unexpected pixel dims %vx%v", pages[0].PixelWidth, pages[0].PixelHeight)
	}

	words := pages[0].Blocks[0].Paragraphs[0].Words
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	if words[0].Text() != "hello" || words[1].Text() != "world" {
		t.Fatalf("symbol concatenation wrong: %q %q", words[0].Text(), words[1].Text())
	}
	if v := words[0].BoundingBox.BottomRight(); v.X != 50 || v.Y != 40 {
		t.Fatalf("unexpected bottom-right vertex %+v", v)
	}
}

func TestAnnotateRangePadsMissingPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"responses": []map[string]interface{}{{
				"responses": []map[string]interface{}{
					annotation("only page\n", 800, 600, "only"),
				},
			}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL, APIKey: "k"})
	pages, err := c.AnnotateRange(context.Background(), []byte("x"), 3, 5)
	if err != nil {
		t.Fatalf("AnnotateRange: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages (padded), got %d", len(pages))
	}
	if !pages[0].HasText() {
		t.Fatal("first page should carry text")
	}
	if pages[1].HasText() || pages[2].HasText() {
		t.Fatal("padded pages should be empty")
	}
}

func TestAnnotateRangeProviderError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "structured error body",
			status:  http.StatusForbidden,
			body:    `{"error": {"code": 403, "message": "API key expired"}}`,
			wantMsg: "API key expired",
		},
		{
			name:    "unstructured error body",
			status:  http.StatusServiceUnavailable,
			body:    `gateway exploded`,
			wantMsg: "provider returned status 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(Options{Endpoint: srv.URL, APIKey: "k"})
			_, err := c.AnnotateRange(context.Background(), []byte("x"), 1, 1)

			pe, ok := err.(*ProviderError)
			if !ok {
				t.Fatalf("expected *ProviderError, got %T (%v)", err, err)
			}
			if pe.StatusCode != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, pe.StatusCode)
			}
			if pe.Message != tt.wantMsg {
				t.Fatalf("expected message %q, got %q", tt.wantMsg, pe.Message)
			}
		})
	}
}

func TestAnnotateRangeRejectsBadRange(t *testing.T) {
	c := NewClient(Options{Endpoint: "http://localhost:0", APIKey: "k"})
	if _, err := c.AnnotateRange(context.Background(), []byte("x"), 0, 5); err == nil {
		t.Fatal("expected error for first page 0")
	}
	if _, err := c.AnnotateRange(context.Background(), []byte("x"), 5, 4); err == nil {
		t.Fatal("expected error for inverted range")
	}
}
