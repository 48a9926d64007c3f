package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mkweon/searchlayer/internal/jobs"
)

// testSchedule mirrors the production delays so the probe and retry
// sequences can be asserted exactly.
func testSchedule() Schedule {
	return DefaultSchedule()
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.delays))
	copy(out, r.delays)
	return out
}

func newTestSubmitter(t *testing.T, handler http.Handler) (*Submitter, *jobs.Queue, *sleepRecorder) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	queue := jobs.NewQueue()
	rec := &sleepRecorder{}
	sub := NewSubmitter(New(srv.URL, "test-key"), queue, testSchedule(), LimitsConfig{
		MaxQueuedFiles: 10,
		MaxFileBytes:   1 << 20,
	})
	sub.sleep = rec.sleep
	return sub, queue, rec
}

func TestWakeUpExhaustionNeverSubmits(t *testing.T) {
	var healthCalls, ocrCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		healthCalls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/api/v1/ocr", func(w http.ResponseWriter, r *http.Request) {
		ocrCalls++
		w.Write([]byte("%PDF"))
	})

	sub, queue, rec := newTestSubmitter(t, mux)
	job, err := sub.Enqueue("doc.pdf", []byte("%PDF-1.4 test"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	sub.Drain(context.Background())

	if healthCalls != 8 {
		t.Errorf("health probes = %d, want 8", healthCalls)
	}
	if ocrCalls != 0 {
		t.Errorf("submission ran %d times despite unreachable backend", ocrCalls)
	}

	want := []time.Duration{
		3 * time.Second, 5 * time.Second, 5 * time.Second,
		8 * time.Second, 8 * time.Second,
		10 * time.Second, 10 * time.Second,
	}
	got := rec.recorded()
	if len(got) != len(want) {
		t.Fatalf("sleeps = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if job.CurrentStatus() != jobs.StatusError {
		t.Errorf("status = %s, want error", job.CurrentStatus())
	}
	if !strings.Contains(job.Error, "unreachable") {
		t.Errorf("error = %q, want mention of unreachable backend", job.Error)
	}

	if got, want := queue.Len(), 1; got != want {
		t.Errorf("queue length = %d, want %d", got, want)
	}
}

func TestTransientSubmitErrorsAreRetried(t *testing.T) {
	var ocrCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v1/ocr", func(w http.ResponseWriter, r *http.Request) {
		ocrCalls++
		if ocrCalls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("X-Output-Filename", "doc_OCR.pdf")
		w.Header().Set("X-Extracted-Chars", "42")
		w.Write([]byte("%PDF-1.7 output"))
	})

	sub, _, rec := newTestSubmitter(t, mux)
	job, err := sub.Enqueue("doc.pdf", []byte("%PDF-1.4 test"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	sub.Drain(context.Background())

	if ocrCalls != 3 {
		t.Errorf("ocr calls = %d, want 3", ocrCalls)
	}

	got := rec.recorded()
	if len(got) != 2 {
		t.Fatalf("sleeps = %v, want exactly two retry delays", got)
	}
	for i, d := range got {
		if d != 10*time.Second {
			t.Errorf("sleep[%d] = %v, want 10s", i, d)
		}
	}

	if job.CurrentStatus() != jobs.StatusCompleted {
		t.Fatalf("status = %s, want completed", job.CurrentStatus())
	}
	if job.Result == nil || job.Result.Filename != "doc_OCR.pdf" {
		t.Errorf("result = %+v, want filename doc_OCR.pdf", job.Result)
	}
	if string(job.Result.PDF) != "%PDF-1.7 output" {
		t.Errorf("result PDF = %q", job.Result.PDF)
	}
}

func TestTerminalSubmitErrorFailsImmediately(t *testing.T) {
	var ocrCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v1/ocr", func(w http.ResponseWriter, r *http.Request) {
		ocrCalls++
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"no text detected in document"}`))
	})

	sub, _, rec := newTestSubmitter(t, mux)
	job, err := sub.Enqueue("blank.pdf", []byte("%PDF-1.4 blank"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	sub.Drain(context.Background())

	if ocrCalls != 1 {
		t.Errorf("ocr calls = %d, want 1 (no retry on terminal error)", ocrCalls)
	}
	if len(rec.recorded()) != 0 {
		t.Errorf("sleeps = %v, want none", rec.recorded())
	}
	if job.CurrentStatus() != jobs.StatusError {
		t.Fatalf("status = %s, want error", job.CurrentStatus())
	}
	if !strings.Contains(job.Error, "no text detected") {
		t.Errorf("error = %q, want server message carried through", job.Error)
	}
}

func TestAllSubmitAttemptsExhausted(t *testing.T) {
	var ocrCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v1/ocr", func(w http.ResponseWriter, r *http.Request) {
		ocrCalls++
		w.WriteHeader(http.StatusBadGateway)
	})

	sub, _, _ := newTestSubmitter(t, mux)
	job, err := sub.Enqueue("doc.pdf", []byte("%PDF-1.4 test"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	sub.Drain(context.Background())

	if ocrCalls != 3 {
		t.Errorf("ocr calls = %d, want 3", ocrCalls)
	}
	if job.CurrentStatus() != jobs.StatusError {
		t.Fatalf("status = %s, want error", job.CurrentStatus())
	}
	if !strings.Contains(job.Error, "after 3 attempts") {
		t.Errorf("error = %q, want attempt count", job.Error)
	}
}

func TestEnqueueLimits(t *testing.T) {
	sub, _, _ := newTestSubmitter(t, http.NewServeMux())

	if _, err := sub.Enqueue("empty.pdf", nil); err == nil {
		t.Error("expected error for empty document")
	}

	big := make([]byte, 2<<20)
	if _, err := sub.Enqueue("big.pdf", big); err == nil {
		t.Error("expected error for oversized document")
	}

	for i := 0; i < 10; i++ {
		if _, err := sub.Enqueue("doc.pdf", []byte("x")); err != nil {
			t.Fatalf("Enqueue %d: %v", i, err)
		}
	}
	if _, err := sub.Enqueue("overflow.pdf", []byte("x")); err == nil {
		t.Error("expected error when queue is full")
	}
}

func TestRetryRequeuesErroredJob(t *testing.T) {
	healthy := false
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		if healthy {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/api/v1/ocr", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Output-Filename", "doc_OCR.pdf")
		w.Write([]byte("%PDF"))
	})

	sub, _, _ := newTestSubmitter(t, mux)
	job, err := sub.Enqueue("doc.pdf", []byte("%PDF-1.4 test"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	sub.Drain(context.Background())
	if job.CurrentStatus() != jobs.StatusError {
		t.Fatalf("status = %s, want error before retry", job.CurrentStatus())
	}

	healthy = true
	if err := sub.Retry(job.ID); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	sub.Drain(context.Background())

	if job.CurrentStatus() != jobs.StatusCompleted {
		t.Errorf("status = %s, want completed after retry", job.CurrentStatus())
	}
}
