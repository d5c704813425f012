// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upload sends documents to the answering service's knowledge base.
// Uploading is a protected action: it needs a credential from auth.Session.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/askrod/internal/auth"
	"github.com/jeranaias/askrod/internal/logging"
)

const (
	// UploadPath is the upload endpoint relative to the backend base URL.
	UploadPath = "/query/query/upload"

	// DefaultTimeout bounds one upload request.
	DefaultTimeout = 5 * time.Minute

	maxResponseSize = 1 << 20
)

// =============================================================================
// TYPES
// =============================================================================

// File is one document to upload.
type File struct {
	Name   string
	Reader io.Reader
}

// Result is the server's acknowledgement of a successful upload.
type Result struct {
	Message string `json:"message"`
	Files   int    `json:"-"`
}

// errorBody is the failure shape returned by the upload endpoint.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// OpenFiles opens each path for upload. The returned closer releases every
// file that was opened, even when an error is returned.
func OpenFiles(paths []string) ([]File, func() error, error) {
	var (
		files   []File
		handles []*os.File
	)
	closeAll := func() error {
		var first error
		for _, h := range handles {
			if err := h.Close(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, closeAll, fmt.Errorf("failed to open %s: %w", p, err)
		}
		info, err := f.Stat()
		if err != nil {
			handles = append(handles, f)
			return nil, closeAll, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		handles = append(handles, f)
		if info.IsDir() {
			return nil, closeAll, fmt.Errorf("%s is a directory", p)
		}
		files = append(files, File{Name: filepath.Base(p), Reader: f})
	}
	return files, closeAll, nil
}

// =============================================================================
// CLIENT
// =============================================================================

// Client uploads documents using the credential held by a session.
type Client struct {
	baseURL    string
	session    *auth.Session
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logging.OrNop(logger)
	}
}

// NewClient creates an upload client bound to session.
func NewClient(baseURL string, session *auth.Session, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		session:    session,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload sends files under category.
//
// Missing credential, blank category and empty file list are rejected before
// any request. A 401 clears the credential the request was sent with and
// returns an UploadError matching ErrUnauthorized; the caller must log in
// again. If that credential was already replaced by a newer login, the newer
// one is kept and the error does not match ErrUnauthorized.
func (c *Client) Upload(ctx context.Context, category string, files []File) (Result, error) {
	cred, ok := c.session.Current()
	if !ok {
		return Result{}, ErrLoginRequired
	}
	if strings.TrimSpace(category) == "" {
		return Result{}, ErrMissingCategory
	}
	if len(files) == 0 {
		return Result{}, ErrNoFiles
	}

	body, contentType, err := encodeMultipart(category, files)
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+UploadPath, body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", cred.Header())

	logging.LogRequest(c.logger, req)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.LogFailure(c.logger, req, err, time.Since(start))
		return Result{}, &UploadError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	logging.LogResponse(c.logger, req, resp, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Result{}, &UploadError{Status: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// A login made while the request was in flight keeps its credential.
		cleared := c.session.ClearIf(cred.Token)
		c.logger.Warn("upload rejected", zap.Bool("credential_cleared", cleared))
		return Result{}, &UploadError{Status: resp.StatusCode, Message: serverMessage(data, resp), Unauthorized: cleared}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &UploadError{Status: resp.StatusCode, Message: serverMessage(data, resp)}
	}

	var result Result
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &result); err != nil {
			return Result{}, &UploadError{Status: resp.StatusCode, Message: "malformed response from server", Err: err}
		}
	}
	if result.Message == "" {
		result.Message = "Files uploaded successfully"
	}
	result.Files = len(files)

	c.logger.Info("upload complete",
		zap.String("category", category),
		zap.Int("files", len(files)))
	return result, nil
}

// encodeMultipart builds the form body: one "files" part per file and a
// "category" field.
func encodeMultipart(category string, files []File) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range files {
		if f.Reader == nil {
			return nil, "", fmt.Errorf("file %q has no content", f.Name)
		}
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("failed to add %s: %w", f.Name, err)
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
	}
	if err := w.WriteField("category", category); err != nil {
		return nil, "", fmt.Errorf("failed to add category: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish upload body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// serverMessage prefers the server's error text and falls back to the status.
func serverMessage(data []byte, resp *http.Response) string {
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil {
		if eb.Error != "" {
			return eb.Error
		}
		if eb.Detail != "" {
			return eb.Detail
		}
	}
	return http.StatusText(resp.StatusCode)
}
