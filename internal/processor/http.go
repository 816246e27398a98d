package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"lexsync/internal/config"
	"lexsync/internal/logging"
	"lexsync/internal/queue"
)

const userAgent = "LexSync/0.1.0"

// Client talks to the remote processor service over HTTP. It implements
// both QueryProcessor and DocumentProcessor.
type Client struct {
	baseURL      string
	queryClient  *http.Client
	uploadClient *http.Client
	logger       *slog.Logger
}

// NewClient builds a processor client from configuration. An empty base URL
// is an error: a drain without a processor cannot make progress.
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	base := strings.TrimSpace(cfg.Processor.BaseURL)
	if base == "" {
		return nil, errors.New("processor.base_url is not configured")
	}

	requestTimeout := time.Duration(cfg.Processor.RequestTimeout) * time.Second
	uploadTimeout := time.Duration(cfg.Processor.UploadTimeout) * time.Second

	return &Client{
		baseURL:      base,
		queryClient:  &http.Client{Timeout: requestTimeout},
		uploadClient: &http.Client{Timeout: uploadTimeout},
		logger:       logging.NewComponentLogger(logger, "processor"),
	}, nil
}

type queryRequest struct {
	ID      string              `json:"id"`
	Payload string              `json:"payload"`
	Context *queue.QueryContext `json:"context,omitempty"`
}

type queryResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
}

// ProcessQuery submits one query to the remote service.
func (c *Client) ProcessQuery(ctx context.Context, q *queue.QueuedQuery) (*queue.QueryResult, error) {
	body, err := json.Marshal(queryRequest{ID: q.ID, Payload: q.Payload, Context: q.Context})
	if err != nil {
		return nil, fmt.Errorf("marshal query request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/queries", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.queryClient.Do(req)
	if err != nil {
		return nil, NewError(CodeUnavailable, "submit query: %v", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, NewError(CodeBadResponse, "decode query response: %v", err)
	}
	if strings.TrimSpace(decoded.Answer) == "" {
		return nil, NewError(CodeBadResponse, "query response carried no answer")
	}

	c.logger.Debug("query processed",
		logging.String(logging.FieldItemID, q.ID),
		logging.Int("source_count", len(decoded.Sources)),
	)

	return &queue.QueryResult{
		Answer:      decoded.Answer,
		Sources:     decoded.Sources,
		CompletedAt: time.Now().UTC(),
	}, nil
}

type documentResponse struct {
	ProcessedID string `json:"processed_id"`
	Summary     string `json:"summary,omitempty"`
}

// ProcessDocument uploads one spooled document to the remote service.
func (c *Client) ProcessDocument(ctx context.Context, d *queue.QueuedDocument) (*queue.DocumentResult, error) {
	blob, err := os.Open(d.BlobPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewError(CodeBlobMissing, "spooled document %s is gone", d.BlobPath)
		}
		return nil, fmt.Errorf("open spooled document: %w", err)
	}
	defer blob.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if d.Options != nil {
		optionsJSON, err := json.Marshal(d.Options)
		if err != nil {
			return nil, fmt.Errorf("marshal document options: %w", err)
		}
		if err := writer.WriteField("options", string(optionsJSON)); err != nil {
			return nil, fmt.Errorf("write options field: %w", err)
		}
	}
	part, err := writer.CreateFormFile("file", d.Filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, blob); err != nil {
		return nil, fmt.Errorf("copy document body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/documents", &buf)
	if err != nil {
		return nil, fmt.Errorf("build document request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return nil, NewError(CodeUnavailable, "upload document: %v", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var decoded documentResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, NewError(CodeBadResponse, "decode document response: %v", err)
	}
	if strings.TrimSpace(decoded.ProcessedID) == "" {
		return nil, NewError(CodeBadResponse, "document response carried no processed id")
	}

	c.logger.Debug("document processed",
		logging.String(logging.FieldItemID, d.ID),
		logging.String("processed_id", decoded.ProcessedID),
	)

	return &queue.DocumentResult{
		ProcessedID: decoded.ProcessedID,
		Summary:     decoded.Summary,
		CompletedAt: time.Now().UTC(),
	}, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		detail = resp.Status
	}
	if resp.StatusCode >= 500 {
		return NewError(CodeUnavailable, "processor returned %d: %s", resp.StatusCode, detail)
	}
	return NewError(CodeRejected, "processor returned %d: %s", resp.StatusCode, detail)
}
