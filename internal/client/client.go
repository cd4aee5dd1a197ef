// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package client talks to the paperpress server API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/paperpress/pkg/types"
)

// APIError is an error response produced by the server, as opposed to
// a transport failure reaching it.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

// Client calls the paperpress server API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// New returns a Client for the server named in cfg.ServerURL.
func New(cfg types.ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.ServerURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Upload sends a PDF to the server and returns its registered record.
func (c *Client) Upload(ctx context.Context, filename string, pdf io.Reader) (*types.UploadResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := newPDFPart(mw, filename)
	if err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}
	if _, err := io.Copy(part, pdf); err != nil {
		return nil, fmt.Errorf("reading PDF: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload-pdf", &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out types.UploadResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Convert asks the server to convert an uploaded PDF to Markdown.
func (c *Client) Convert(ctx context.Context, fileID string) (*types.ConvertResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/convert/"+url.PathEscape(fileID), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var out types.ConvertResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplyTreatment runs the Markdown cleanup pass on the server.
func (c *Client) ApplyTreatment(ctx context.Context, treatment types.TreatmentRequest) (*types.TreatmentResponse, error) {
	var out types.TreatmentResponse
	if err := c.postJSON(ctx, "/api/apply-treatment", treatment, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateEPUB renders Markdown into an EPUB, returning the archive
// bytes and the filename the server suggests for saving it.
func (c *Client) GenerateEPUB(ctx context.Context, book types.EPUBRequest) ([]byte, string, error) {
	payload, err := json.Marshal(book)
	if err != nil {
		return nil, "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/generate-epub", bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.send(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", decodeAPIError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading EPUB: %w", err)
	}
	return data, attachmentFilename(resp.Header.Get("Content-Disposition")), nil
}

// Health reports the server's capability flags.
func (c *Client) Health(ctx context.Context) (*types.HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var out types.HealthResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

// do executes req and decodes a JSON success body into out. Non-200
// statuses become an *APIError carrying the server's detail message.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	return resp, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil {
		var er types.ErrorResponse
		if json.Unmarshal(body, &er) == nil && er.Detail != "" {
			apiErr.Detail = er.Detail
		} else {
			apiErr.Detail = strings.TrimSpace(string(body))
		}
	}
	if apiErr.Detail == "" {
		apiErr.Detail = http.StatusText(resp.StatusCode)
	}

	return apiErr
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, `\"`)

// newPDFPart opens a form-data part named "pdf" typed application/pdf.
func newPDFPart(mw *multipart.Writer, filename string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="pdf"; filename="%s"`, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", "application/pdf")
	return mw.CreatePart(h)
}

// attachmentFilename extracts the filename parameter from a
// Content-Disposition header. Unparseable headers yield "".
func attachmentFilename(header string) string {
	if header == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(header); err == nil {
		return params["filename"]
	}
	return ""
}
