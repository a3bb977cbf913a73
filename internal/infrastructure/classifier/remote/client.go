// Package remote calls the external classification service over HTTP.
// Every failure mode (timeout, transport error, non-2xx status, malformed
// payload) is reported uniformly as domain.ErrClassifierUnavailable so the
// orchestrator can engage the fallback path.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/intelliinsight/paper-analysis/internal/core/domain"
	"github.com/intelliinsight/paper-analysis/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Option func(*Client)

func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) {
		c.executor = executor
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Classify(ctx context.Context, upload domain.Upload) (domain.ClassificationResult, error) {
	var result domain.ClassificationResult

	call := func(ctx context.Context) error {
		res, err := c.analyze(ctx, upload)
		if err != nil {
			return err
		}
		result = res
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "classifier.analyze", call, classifyRemoteError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrClassifierUnavailable, "classify document", err)
	}
	return result, nil
}

func (c *Client) analyze(ctx context.Context, upload domain.Upload) (domain.ClassificationResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", upload.FileName)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("write multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", &body)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("analyze request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.ClassificationResult{}, statusError(resp)
	}

	var result domain.ClassificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("decode analyze response: %w", err)
	}
	return result, nil
}

type httpStatusError struct {
	status int
	detail string
}

func (e *httpStatusError) Error() string {
	if e.detail == "" {
		return fmt.Sprintf("analyze status %d", e.status)
	}
	return fmt.Sprintf("analyze status %d: %s", e.status, e.detail)
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &httpStatusError{status: resp.StatusCode, detail: strings.TrimSpace(string(raw))}
}
