package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"contrato-firma/internal/config"
	"contrato-firma/internal/domain/entity"
)

const (
	maxBodyLogLength = 500 // Maximum characters to log for body
)

var base64Pattern = regexp.MustCompile(`"([A-Za-z0-9+/=]{100,})"`)

// RequestContext carries caller information recorded with each outbound call
type RequestContext struct {
	SessionID string
}

// ProgressFunc receives the number of body bytes handed to the transport so far
// and the total body size (0 when unknown).
type ProgressFunc func(sent, total int64)

type HTTPClient interface {
	// PostMultipart performs a multipart POST against the submission backend.
	// Files are written in order, so a field name may repeat.
	PostMultipart(ctx context.Context, reqCtx *RequestContext, path string, fields map[string]string, files []FileUpload, progress ProgressFunc, result interface{}) error
}

// FileUpload represents a file part of a multipart body
type FileUpload struct {
	FieldName   string
	Filename    string
	ContentType string
	Content     []byte
}

// StatusError is returned when the backend answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error: status=%d, body=%s", e.StatusCode, truncateString(e.Body, maxBodyLogLength))
}

// APILogSaver interface for saving API logs
type APILogSaver interface {
	Save(ctx context.Context, log *entity.APILog) error
}

type httpClient struct {
	client      *http.Client
	baseURL     string
	apiLogSaver APILogSaver
	logger      *zap.Logger
}

func NewHTTPClient(cfg *config.Config, apiLogSaver APILogSaver, logger *zap.Logger) HTTPClient {
	c := &httpClient{
		client: &http.Client{
			Timeout: cfg.Submission.Timeout,
		},
		baseURL:     strings.TrimRight(cfg.Submission.BaseURL, "/"),
		apiLogSaver: apiLogSaver,
		logger:      logger,
	}

	logger.Info("HTTP Client initialized",
		zap.String("base_url", c.baseURL),
		zap.Duration("timeout", cfg.Submission.Timeout),
	)

	return c
}

// truncateString truncates a string if it exceeds maxLength
func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength] + fmt.Sprintf("... [truncated, total %d chars]", len(s))
}

// truncateBase64InJSON truncates base64-like values in JSON string
func truncateBase64InJSON(jsonStr string, maxLength int) string {
	return base64Pattern.ReplaceAllStringFunc(jsonStr, func(match string) string {
		content := match[1 : len(match)-1]
		if len(content) > maxLength {
			return fmt.Sprintf(`"%s... [base64 truncated, total %d chars]"`, content[:maxLength], len(content))
		}
		return match
	})
}

// formatHeadersForLog formats HTTP headers for logging in "Header Key=Value" format
func formatHeadersForLog(headers http.Header) string {
	var sb strings.Builder
	for key, values := range headers {
		for _, value := range values {
			if len(value) > 100 {
				value = value[:100] + "..."
			}
			sb.WriteString(fmt.Sprintf("Header %s=%s\n", key, value))
		}
	}
	return sb.String()
}

func (c *httpClient) logRequest(method, url string, headers http.Header, body []byte) {
	var logBuilder strings.Builder

	logBuilder.WriteString("\n>>> [WEBCLIENT-REQ]\n")
	logBuilder.WriteString(fmt.Sprintf("Method: %s\n", method))
	logBuilder.WriteString(fmt.Sprintf("URL: %s\n", url))
	logBuilder.WriteString(formatHeadersForLog(headers))

	if len(body) > 0 {
		bodyStr := truncateBase64InJSON(string(body), 100)
		bodyStr = truncateString(bodyStr, maxBodyLogLength)
		logBuilder.WriteString(fmt.Sprintf("REQUEST BODY: %s\n", bodyStr))
	}

	c.logger.Debug(logBuilder.String())
}

func (c *httpClient) logResponse(statusCode int, statusText string, duration time.Duration, headers http.Header, body []byte) {
	var logBuilder strings.Builder

	logBuilder.WriteString("\n>>> [WEBCLIENT-RESPONSE]\n")
	logBuilder.WriteString(fmt.Sprintf("Status: %d %s\n", statusCode, statusText))
	logBuilder.WriteString(fmt.Sprintf("Duration: %s\n", duration))
	logBuilder.WriteString(formatHeadersForLog(headers))

	bodyStr := truncateString(string(body), maxBodyLogLength)
	logBuilder.WriteString(fmt.Sprintf("Body: %s\n", bodyStr))

	c.logger.Debug(logBuilder.String())
}

// saveAPILog stores the call summary without blocking the caller
func (c *httpClient) saveAPILog(method, endpoint string, requestBody []byte, responseBody []byte, statusCode int, duration time.Duration, reqCtx *RequestContext) {
	if c.apiLogSaver == nil {
		return
	}

	respBodyStr := string(responseBody)
	if len(respBodyStr) > 10000 {
		respBodyStr = respBodyStr[:10000] + "... [truncated]"
	}

	apiLog := &entity.APILog{
		Endpoint:     endpoint,
		Method:       method,
		RequestBody:  string(requestBody),
		ResponseBody: respBodyStr,
		StatusCode:   statusCode,
		Duration:     duration.Milliseconds(),
		CreatedAt:    time.Now(),
	}
	if reqCtx != nil {
		apiLog.SessionID = reqCtx.SessionID
	}

	go func() {
		if err := c.apiLogSaver.Save(context.Background(), apiLog); err != nil {
			c.logger.Warn("Failed to save API log to database",
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
		}
	}()
}

// PostMultipart sends a multipart/form-data POST request
func (c *httpClient) PostMultipart(ctx context.Context, reqCtx *RequestContext, path string, fields map[string]string, files []FileUpload, progress ProgressFunc, result interface{}) error {
	fullURL := c.baseURL + path

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	for _, file := range files {
		part, err := writer.CreatePart(filePartHeader(file))
		if err != nil {
			return fmt.Errorf("failed to create form file %s: %w", file.Filename, err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return fmt.Errorf("failed to write file content %s: %w", file.Filename, err)
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	payload := buf.Bytes()
	total := int64(len(payload))
	var body io.Reader = bytes.NewReader(payload)
	if progress != nil {
		body = &progressReader{reader: bytes.NewReader(payload), total: total, fn: progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = total
	if progress != nil {
		// redirects replay the body, so rebuild the reader rather than reuse the drained one
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(&progressReader{reader: bytes.NewReader(payload), total: total, fn: progress}), nil
		}
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	summary := multipartSummary(fields, files)
	c.logRequest(http.MethodPost, fullURL, req.Header, []byte(summary))

	startTime := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(startTime)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	c.logResponse(resp.StatusCode, resp.Status, duration, resp.Header, respBody)
	c.saveAPILog(http.MethodPost, fullURL, []byte(summary), respBody, resp.StatusCode, duration, reqCtx)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

func filePartHeader(file FileUpload) textproto.MIMEHeader {
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(file.FieldName), escapeQuotes(file.Filename)))
	h.Set("Content-Type", contentType)
	return h
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// multipartSummary describes a multipart body for logs without its content
func multipartSummary(fields map[string]string, files []FileUpload) string {
	var sb strings.Builder
	sb.WriteString("{fields: [")
	fieldKeys := make([]string, 0, len(fields))
	for k := range fields {
		fieldKeys = append(fieldKeys, k)
	}
	sb.WriteString(strings.Join(fieldKeys, ", "))
	sb.WriteString("], files: [")
	fileKeys := make([]string, 0, len(files))
	for _, f := range files {
		fileKeys = append(fileKeys, fmt.Sprintf("%s(%s, %d bytes)", f.FieldName, f.Filename, len(f.Content)))
	}
	sb.WriteString(strings.Join(fileKeys, ", "))
	sb.WriteString("]}")
	return sb.String()
}
