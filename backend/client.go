// ABOUTME: HTTP client for the remix backend (search, remix, create, genres)
// ABOUTME: Maps transport and decoding failures onto the ErrNetwork/ErrMalformedResponse taxonomy

// Package backend talks to the remix service over HTTP.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxErrorBody = 4 << 10

// Client communicates with the remix backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a backend client. A zero timeout keeps the transport defaults.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured service root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Search returns up to maxResults catalog candidates for query.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]SearchResultItem, error) {
	var out searchResponse
	if err := c.postJSON(ctx, "/api/search", searchRequest{Query: query, MaxResults: maxResults}, &out); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	if out.Results == nil {
		return nil, fmt.Errorf("search %q: %w: missing results", query, ErrMalformedResponse)
	}

	return *out.Results, nil
}

// Remix requests a remix of a catalog track and returns the artifact URL.
func (c *Client) Remix(ctx context.Context, req RemixRequest) (string, error) {
	var out artifactResponse
	if err := c.postJSON(ctx, "/api/remix", req, &out); err != nil {
		return "", fmt.Errorf("remix: %w", err)
	}

	if strings.TrimSpace(out.URL) == "" {
		return "", fmt.Errorf("remix: %w: empty url", ErrMalformedResponse)
	}

	return out.URL, nil
}

// Create uploads the tracks as a multipart form and returns the artifact URL.
func (c *Client) Create(ctx context.Context, req CreateRequest) (string, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeCreateForm(form, req))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/create", pr)
	if err != nil {
		_ = pr.Close()
		return "", fmt.Errorf("create: build request: %w", err)
	}

	httpReq.Header.Set("Content-Type", form.FormDataContentType())

	var out artifactResponse
	if err := c.do(httpReq, &out); err != nil {
		return "", fmt.Errorf("create: %w", err)
	}

	if strings.TrimSpace(out.URL) == "" {
		return "", fmt.Errorf("create: %w: empty url", ErrMalformedResponse)
	}

	return out.URL, nil
}

// Genres returns the genre tags the backend can render.
func (c *Client) Genres(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/genres", nil)
	if err != nil {
		return nil, fmt.Errorf("genres: build request: %w", err)
	}

	var out genresResponse
	if err := c.do(httpReq, &out); err != nil {
		return nil, fmt.Errorf("genres: %w", err)
	}

	if len(out.Genres) == 0 {
		return nil, fmt.Errorf("genres: %w: empty list", ErrMalformedResponse)
	}

	return out.Genres, nil
}

// ResolveURL makes a server-relative artifact URL absolute against the base URL.
func (c *Client) ResolveURL(raw string) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: bad artifact url %q: %w", ErrMalformedResponse, raw, err)
	}

	if ref.IsAbs() {
		return ref.String(), nil
	}

	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("bad base url %q: %w", c.baseURL, err)
	}

	return base.ResolveReference(ref).String(), nil
}

// Fetch opens the artifact at raw for reading. The caller closes the body.
func (c *Client) Fetch(ctx context.Context, raw string) (io.ReadCloser, error) {
	target, err := c.ResolveURL(raw)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}

	resp, err := c.send(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}

	return resp.Body, nil
}

// Download saves the artifact at raw to dir/filename and returns the written path.
func (c *Client) Download(ctx context.Context, raw, dir, filename string) (string, error) {
	body, err := c.Fetch(ctx, raw)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	dest := filepath.Join(dir, filename)
	tmp := dest + ".part"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create download file: %w", err)
	}

	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)

		return "", fmt.Errorf("failed to write download: %w: %w", ErrNetwork, err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to close download file: %w", err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		return "", fmt.Errorf("failed to finalize download: %w", err)
	}

	return dest, nil
}

// postJSON posts body as JSON and decodes the JSON reply into out
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq, out)
}

// do sends the request and decodes a 2xx JSON body into out
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrMalformedResponse, err)
	}

	return nil
}

// send performs the round trip and turns non-2xx statuses into ErrNetwork
func (c *Client) send(req *http.Request) (*http.Response, error) {
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()

		return nil, fmt.Errorf("%w: status %d%s", ErrNetwork, resp.StatusCode, errorDetail(resp.Body))
	}

	return resp, nil
}

// errorDetail extracts a FastAPI-style {"detail": ...} message when present
func errorDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}

	var e errorResponse
	if json.Unmarshal(data, &e) == nil && e.Detail != "" {
		return ": " + e.Detail
	}

	return ": " + strings.TrimSpace(string(data))
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// writeCreateForm streams the creation form: files in order, then mix_ratios, then optional lyrics
func writeCreateForm(form *multipart.Writer, req CreateRequest) error {
	for _, file := range req.Files {
		if err := writeFilePart(form, file); err != nil {
			return err
		}
	}

	ratios, err := json.Marshal(req.MixRatios)
	if err != nil {
		return fmt.Errorf("marshal mix ratios: %w", err)
	}

	if err := form.WriteField("mix_ratios", string(ratios)); err != nil {
		return fmt.Errorf("write mix_ratios: %w", err)
	}

	if strings.TrimSpace(req.Lyrics) != "" {
		if err := form.WriteField("lyrics", strings.TrimSpace(req.Lyrics)); err != nil {
			return fmt.Errorf("write lyrics: %w", err)
		}

		if err := form.WriteField("voice_style", req.VoiceStyle); err != nil {
			return fmt.Errorf("write voice_style: %w", err)
		}
	}

	return form.Close()
}

func writeFilePart(form *multipart.Writer, file UploadFile) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer func() { _ = src.Close() }()

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="files"; filename="%s"`, quoteEscaper.Replace(file.Name)))

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header.Set("Content-Type", contentType)

	part, err := form.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create part %s: %w", file.Name, err)
	}

	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copy %s: %w", file.Name, err)
	}

	return nil
}
