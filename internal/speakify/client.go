// Package speakify is the HTTP transport for the Speakify conversion API.
package speakify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/speakify/internal/models"
)

// TokenSource supplies the bearer token for each request. An empty token sends
// the request unauthenticated.
type TokenSource interface {
	Token() string
}

type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// APIError is a non-2xx response. Message is the server's own explanation,
// when it sent one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("speakify api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("speakify api: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) UserMessage() string { return e.Message }

func (e *APIError) Temporary() bool { return e.StatusCode >= 500 }

type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	maxRetries int
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if tokens == nil {
		tokens = StaticToken("")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		maxRetries: 2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type voicesResp struct {
	Voices []models.Voice `json:"voices"`
}

func (c *Client) FetchVoices(ctx context.Context) ([]models.Voice, error) {
	var out voicesResp
	if err := c.doJSON(ctx, http.MethodGet, "/tts/voices", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch voices: %w", err)
	}
	return out.Voices, nil
}

type convertReq struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

// The API has shipped the audio reference under several names.
type convertResp struct {
	AudioURL      string `json:"audio_url"`
	AudioURLCamel string `json:"audioUrl"`
	URL           string `json:"url"`
	Size          int64  `json:"size"`
}

func (r convertResp) location() string {
	for _, v := range []string{r.AudioURL, r.AudioURLCamel, r.URL} {
		if v != "" {
			return v
		}
	}
	return ""
}

func (c *Client) ConvertTextToSpeech(ctx context.Context, req models.TextToSpeechRequest) (*models.TextToSpeechResult, error) {
	body, err := json.Marshal(convertReq{Text: req.Text, Voice: req.Voice, Speed: req.Speed})
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}

	var out convertResp
	if err := c.doJSON(ctx, http.MethodPost, "/tts/convert", body, &out); err != nil {
		return nil, fmt.Errorf("convert text to speech: %w", err)
	}

	loc := out.location()
	if loc == "" {
		return nil, errors.New("convert text to speech: response has no audio url")
	}
	if u, err := url.Parse(loc); err == nil && !u.IsAbs() {
		loc = c.resolve(u)
	}
	return &models.TextToSpeechResult{AudioLocation: loc, SizeBytes: out.Size}, nil
}

type transcriptResp struct {
	Transcript *string `json:"transcript"`
	Text       *string `json:"text"`
	Language   string  `json:"language"`
	Duration   float64 `json:"duration"`
}

func (c *Client) ConvertSpeechToText(ctx context.Context, file models.AudioFile) (*models.Transcript, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("audio", file.Name)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/asr/convert", bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out transcriptResp
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("convert speech to text: %w", err)
	}

	tr := &models.Transcript{Language: out.Language, Duration: out.Duration}
	switch {
	case out.Transcript != nil:
		tr.Text = *out.Transcript
	case out.Text != nil:
		tr.Text = *out.Text
	default:
		return nil, errors.New("convert speech to text: response has no transcript")
	}
	return tr, nil
}

type statsResp struct {
	Stats struct {
		ConversionsToday int     `json:"conversionsToday"`
		TotalConversions int     `json:"totalConversions"`
		StorageUsedMB    float64 `json:"storageUsedMB"`
	} `json:"stats"`
}

func (c *Client) FetchUsageSnapshot(ctx context.Context) (*models.UsageSnapshot, error) {
	var out statsResp
	if err := c.doJSON(ctx, http.MethodGet, "/stats", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch usage: %w", err)
	}
	return &models.UsageSnapshot{
		ConversionsToday:     out.Stats.ConversionsToday,
		ConversionsTotal:     out.Stats.TotalConversions,
		StorageUsedMegabytes: out.Stats.StorageUsedMB,
	}, nil
}

type historyResp struct {
	History []models.HistoryItem `json:"history"`
	Total   int                  `json:"total"`
}

func (c *Client) FetchHistory(ctx context.Context, limit, offset int) (models.HistoryPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var out historyResp
	if err := c.doJSON(ctx, http.MethodGet, "/stats/history?"+q.Encode(), nil, &out); err != nil {
		return models.HistoryPage{}, fmt.Errorf("fetch history: %w", err)
	}
	return models.HistoryPage{Items: out.History, Total: out.Total, Limit: limit, Offset: offset}, nil
}

func (c *Client) DeleteHistoryItem(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/stats/history/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete history item: %w", err)
	}
	return nil
}

// doJSON sends body as JSON. GET and DELETE are retried on network errors and
// 5xx responses; conversions are never retried.
func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	attempts := 1
	if method == http.MethodGet || method == http.MethodDelete {
		attempts += c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			slog.Debug("retrying speakify call", "method", method, "path", path, "attempt", attempt)
		}

		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := c.newRequest(ctx, method, path, rd)
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		lastErr = c.do(req, out)
		if lastErr == nil || !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if tok := c.tokens.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = body.Error
		if apiErr.Message == "" {
			apiErr.Message = body.Message
		}
	}
	return apiErr
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) resolve(ref *url.URL) string {
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
