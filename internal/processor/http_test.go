package processor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"lexsync/internal/processor"
	"lexsync/internal/queue"
	"lexsync/internal/testsupport"
)

func newClient(t *testing.T, baseURL string) *processor.Client {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Processor.BaseURL = baseURL
	client, err := processor.NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Processor.BaseURL = ""
	if _, err := processor.NewClient(cfg, nil); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestProcessQuerySubmitsAndDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/queries" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req struct {
			ID      string              `json:"id"`
			Payload string              `json:"payload"`
			Context *queue.QueryContext `json:"context"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Payload != "notice period for eviction" {
			t.Errorf("payload = %q", req.Payload)
		}
		if req.Context == nil || req.Context.Domain != "housing" {
			t.Errorf("context = %+v", req.Context)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"answer":  "30 days",
			"sources": []string{"statute-12"},
		})
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	item := queue.NewQuery("notice period for eviction", &queue.QueryContext{Domain: "housing"}, 3)

	result, err := client.ProcessQuery(context.Background(), item)
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if result.Answer != "30 days" || len(result.Sources) != 1 {
		t.Fatalf("result = %+v", result)
	}
	if result.CompletedAt.IsZero() {
		t.Fatal("completion timestamp not set")
	}
}

func TestProcessQueryEmptyAnswerIsBadResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"answer": ""})
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	_, err := client.ProcessQuery(context.Background(), queue.NewQuery("q", nil, 3))
	if processor.ErrorCode(err) != processor.CodeBadResponse {
		t.Fatalf("err = %v, want bad response code", err)
	}
}

func TestProcessQueryServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	_, err := client.ProcessQuery(context.Background(), queue.NewQuery("q", nil, 3))
	if processor.ErrorCode(err) != processor.CodeUnavailable {
		t.Fatalf("err = %v, want unavailable code", err)
	}
}

func TestProcessQueryClientErrorIsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "malformed query", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	_, err := client.ProcessQuery(context.Background(), queue.NewQuery("q", nil, 3))
	if processor.ErrorCode(err) != processor.CodeRejected {
		t.Fatalf("err = %v, want rejected code", err)
	}
}

func TestProcessDocumentUploadsMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/documents" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("options"); got == "" {
			t.Error("options field missing")
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			file.Close()
			if header.Filename != "contrato.pdf" {
				t.Errorf("filename = %s", header.Filename)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"processed_id": "remote-77",
			"summary":      "rental agreement",
		})
	}))
	defer server.Close()

	blobPath := filepath.Join(t.TempDir(), "blob.pdf")
	if err := os.WriteFile(blobPath, []byte("%PDF-1.7"), 0o644); err != nil {
		t.Fatalf("write blob: %v", err)
	}

	client := newClient(t, server.URL)
	item := queue.NewDocument("contrato.pdf", blobPath, &queue.DocumentOptions{Summarize: true})

	result, err := client.ProcessDocument(context.Background(), item)
	if err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}
	if result.ProcessedID != "remote-77" || result.Summary != "rental agreement" {
		t.Fatalf("result = %+v", result)
	}
}

func TestProcessDocumentMissingBlob(t *testing.T) {
	client := newClient(t, "http://127.0.0.1:0")
	item := queue.NewDocument("gone.pdf", filepath.Join(t.TempDir(), "missing"), nil)

	_, err := client.ProcessDocument(context.Background(), item)
	if processor.ErrorCode(err) != processor.CodeBlobMissing {
		t.Fatalf("err = %v, want blob missing code", err)
	}
}
