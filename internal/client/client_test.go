// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperpress/pkg/types"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(types.ClientConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "paperpress-test"},
		ServerURL:  ts.URL,
	})
}

func TestUpload(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/upload-pdf", r.URL.Path)
		assert.Equal(t, "paperpress-test", r.Header.Get("User-Agent"))

		require.NoError(t, r.ParseMultipartForm(32<<20))
		file, header, err := r.FormFile("pdf")
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, "attention.pdf", header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))

		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 fake", string(content))

		json.NewEncoder(w).Encode(types.UploadResponse{
			FileID:   "abc-123",
			Filename: header.Filename,
			Size:     int64(len(content)),
			Pages:    7,
			Status:   "uploaded",
		})
	}))

	up, err := c.Upload(context.Background(), "attention.pdf", strings.NewReader("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, "abc-123", up.FileID)
	assert.Equal(t, 7, up.Pages)
}

func TestUpload_ServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(types.ErrorResponse{Detail: "File must be a PDF"})
	}))

	_, err := c.Upload(context.Background(), "notes.txt", strings.NewReader("hello"))
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "File must be a PDF", apiErr.Detail)
}

func TestConvert(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/convert/abc-123", r.URL.Path)

		json.NewEncoder(w).Encode(types.ConvertResponse{
			Status:     "converted",
			Markdown:   "# Attention Is All You Need",
			Images:     []string{"/temp-images/abc-123/page_1_img_1.png"},
			ImageCount: 1,
		})
	}))

	conv, err := c.Convert(context.Background(), "abc-123")
	require.NoError(t, err)
	assert.Equal(t, "# Attention Is All You Need", conv.Markdown)
	assert.Equal(t, 1, conv.ImageCount)
	require.Len(t, conv.Images, 1)
}

func TestConvert_NotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(types.ErrorResponse{Detail: "File not found"})
	}))

	_, err := c.Convert(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "File not found", apiErr.Detail)
}

func TestApplyTreatment(t *testing.T) {
	useLLM := false
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/apply-treatment", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req types.TreatmentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "raw markdown", req.Markdown)
		require.NotNil(t, req.UseLLM)
		assert.False(t, *req.UseLLM)

		json.NewEncoder(w).Encode(types.TreatmentResponse{
			TreatedMarkdown: "clean markdown",
			Fallback:        false,
		})
	}))

	resp, err := c.ApplyTreatment(context.Background(), types.TreatmentRequest{
		Markdown: "raw markdown",
		UseLLM:   &useLLM,
	})
	require.NoError(t, err)
	assert.Equal(t, "clean markdown", resp.TreatedMarkdown)
	assert.False(t, resp.Fallback)
}

func TestGenerateEPUB(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate-epub", r.URL.Path)

		var req types.EPUBRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Attention Is All You Need", req.Title)

		w.Header().Set("Content-Type", "application/epub+zip")
		w.Header().Set("Content-Disposition", `attachment; filename="Attention Is All You Need.epub"`)
		w.Write([]byte("PK epub bytes"))
	}))

	data, filename, err := c.GenerateEPUB(context.Background(), types.EPUBRequest{
		Markdown: "# Attention Is All You Need",
		Title:    "Attention Is All You Need",
	})
	require.NoError(t, err)
	assert.Equal(t, "PK epub bytes", string(data))
	assert.Equal(t, "Attention Is All You Need.epub", filename)
}

func TestGenerateEPUB_NoDisposition(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("PK"))
	}))

	_, filename, err := c.GenerateEPUB(context.Background(), types.EPUBRequest{Markdown: "# T"})
	require.NoError(t, err)
	assert.Equal(t, "", filename)
}

func TestGenerateEPUB_ServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(types.ErrorResponse{Detail: "No markdown content provided"})
	}))

	_, _, err := c.GenerateEPUB(context.Background(), types.EPUBRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "No markdown content provided", apiErr.Detail)
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(types.HealthResponse{
			Status:          "healthy",
			MarkerAvailable: false,
			EpubAvailable:   true,
			AIAvailable:     true,
		})
	}))

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.True(t, h.EpubAvailable)
	assert.False(t, h.MarkerAvailable)
}

func TestTransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(types.ClientConfig{
		HTTPConfig: types.HTTPConfig{Timeout: time.Second},
		ServerURL:  url,
	})

	_, err := c.Health(context.Background())
	require.Error(t, err)

	// Transport failures are not API errors.
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Contains(t, err.Error(), "HTTP request")
}

func TestAPIError_PlainBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream exploded")
	}))

	_, err := c.Health(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream exploded", apiErr.Detail)
}

func TestAPIError_EmptyBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.Health(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusText(http.StatusServiceUnavailable), apiErr.Detail)
}
