// Package gemini wraps the Google Generative Language REST API for video
// understanding.
//
// Small videos are sent inline as base64 data; anything over the configured
// inline limits is uploaded through the File API first, polled until the file
// reaches the ACTIVE state, and deleted again after the narration request
// completes.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"narrate/internal/script"
	"narrate/internal/services"
)

const (
	defaultBaseURL      = "https://generativelanguage.googleapis.com"
	defaultModel        = "gemini-1.5-pro-latest"
	defaultHTTPTimeout  = 30 * time.Minute
	defaultPollInterval = 10 * time.Second
	defaultPollTimeout  = 10 * time.Minute

	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 2 * time.Second
	defaultRetryMaxDelay  = 30 * time.Second

	fileStateProcessing = "PROCESSING"
	fileStateActive     = "ACTIVE"
	fileStateFailed     = "FAILED"
)

// Config captures the runtime settings required to talk to the API.
type Config struct {
	APIKey                   string
	BaseURL                  string
	Model                    string
	TimeoutSeconds           int
	Temperature              float64
	MaxInlineDurationSeconds float64
	MaxInlineSizeMB          float64
}

// VideoInfo describes the video being narrated. Duration and size drive the
// inline-versus-upload decision.
type VideoInfo struct {
	Path            string
	DurationSeconds float64
	SizeBytes       int64
}

// Client issues narration requests against the Generative Language API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	pollInterval     time.Duration
	pollTimeout      time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithPollInterval overrides how often uploaded files are polled for the
// ACTIVE state (useful for tests).
func WithPollInterval(interval, timeout time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
		if timeout > 0 {
			c.pollTimeout = timeout
		}
	}
}

// WithSleeper overrides how retry and poll sleeps are performed.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a Gemini client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:                   strings.TrimSpace(cfg.APIKey),
			BaseURL:                  strings.TrimSpace(cfg.BaseURL),
			Model:                    strings.TrimSpace(cfg.Model),
			TimeoutSeconds:           cfg.TimeoutSeconds,
			Temperature:              cfg.Temperature,
			MaxInlineDurationSeconds: cfg.MaxInlineDurationSeconds,
			MaxInlineSizeMB:          cfg.MaxInlineSizeMB,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
		pollInterval:     defaultPollInterval,
		pollTimeout:      defaultPollTimeout,
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// GenerateNarration sends the video plus narration prompt to the model and
// returns the raw script text with any markdown code fence removed. The
// caller is responsible for decoding and validating the JSON.
func (c *Client) GenerateNarration(ctx context.Context, video VideoInfo) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", services.Wrap(services.ErrConfiguration, "acquiring-script", "gemini", "api key required", nil)
	}
	if strings.TrimSpace(video.Path) == "" {
		return "", services.Wrap(services.ErrNarration, "acquiring-script", "gemini", "video path required", nil)
	}

	prompt := NarrationPrompt(video.DurationSeconds)
	mimeType := videoMIMEType(video.Path)

	var videoPart part
	var uploadedName string
	if c.requiresUpload(video) {
		uploaded, err := c.uploadFile(ctx, video.Path, mimeType)
		if err != nil {
			return "", err
		}
		uploadedName = uploaded.Name
		defer c.deleteFile(uploadedName)
		videoPart = part{FileData: &fileData{MIMEType: mimeType, FileURI: uploaded.URI}}
	} else {
		data, err := os.ReadFile(video.Path)
		if err != nil {
			return "", services.Wrap(services.ErrNarration, "acquiring-script", "read video", "", err)
		}
		videoPart = part{InlineData: &inlineData{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}}
	}

	payload := generateRequest{
		Contents: []content{{Parts: []part{videoPart, {Text: prompt}}}},
		GenerationConfig: &generationConfig{
			Temperature: c.cfg.Temperature,
		},
	}
	raw, err := c.generateWithRetry(ctx, payload)
	if err != nil {
		return "", err
	}
	return script.StripMarkdownFence(raw), nil
}

func (c *Client) requiresUpload(video VideoInfo) bool {
	sizeMB := float64(video.SizeBytes) / (1024 * 1024)
	if c.cfg.MaxInlineDurationSeconds > 0 && video.DurationSeconds > c.cfg.MaxInlineDurationSeconds {
		return true
	}
	if c.cfg.MaxInlineSizeMB > 0 && sizeMB > c.cfg.MaxInlineSizeMB {
		return true
	}
	return false
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
	FileData   *fileData   `json:"file_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type fileData struct {
	MIMEType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason        string `json:"blockReason"`
		BlockReasonMessage string `json:"blockReasonMessage"`
	} `json:"promptFeedback"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type fileResource struct {
	Name  string `json:"name"`
	URI   string `json:"uri"`
	State string `json:"state"`
}

type uploadResponse struct {
	File  fileResource `json:"file"`
	Error *apiError    `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("gemini request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (c *Client) generateWithRetry(ctx context.Context, payload generateRequest) (string, error) {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := c.generateOnce(ctx, payload)
		if err == nil {
			return text, nil
		}
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			var statusErr *httpStatusError
			if errors.As(err, &statusErr) {
				return "", services.Wrap(services.ErrNarration, "acquiring-script", "gemini", "", err)
			}
			return "", err
		}
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return "", services.Wrap(services.ErrNarration, "acquiring-script", "gemini", "", sleepErr)
		}
		lastErr = err
	}
	return "", services.Wrap(services.ErrNarration, "acquiring-script", "gemini",
		fmt.Sprintf("failed after %d attempts", attempts), lastErr)
}

func (c *Client) generateOnce(ctx context.Context, payload generateRequest) (string, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model, c.cfg.APIKey)
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", services.Wrap(services.ErrNarration, "acquiring-script", "encode request", "", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", services.Wrap(services.ErrNarration, "acquiring-script", "build request", "", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "acquiring-script", "gemini request", "", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "acquiring-script", "read response", "", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", services.Wrap(services.ErrNarration, "acquiring-script", "decode response", "", err)
	}
	if decoded.Error != nil {
		return "", services.Wrap(services.ErrNarration, "acquiring-script", "gemini",
			fmt.Sprintf("api error %d: %s", decoded.Error.Code, decoded.Error.Message), nil)
	}
	if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
		message := decoded.PromptFeedback.BlockReasonMessage
		if message == "" {
			message = decoded.PromptFeedback.BlockReason
		}
		return "", services.Wrap(services.ErrNarration, "acquiring-script", "gemini",
			"request blocked: "+message, nil)
	}
	for _, candidate := range decoded.Candidates {
		var builder strings.Builder
		for _, p := range candidate.Content.Parts {
			builder.WriteString(p.Text)
		}
		if text := strings.TrimSpace(builder.String()); text != "" {
			return text, nil
		}
	}
	return "", services.Wrap(services.ErrNarration, "acquiring-script", "gemini", "empty response", nil)
}

func (c *Client) uploadFile(ctx context.Context, path, mimeType string) (fileResource, error) {
	var empty fileResource
	file, err := os.Open(path)
	if err != nil {
		return empty, services.Wrap(services.ErrNarration, "acquiring-script", "open video", "", err)
	}
	defer file.Close()

	endpoint := fmt.Sprintf("%s/upload/v1beta/files?uploadType=media&key=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, file)
	if err != nil {
		return empty, services.Wrap(services.ErrNarration, "acquiring-script", "build upload", "", err)
	}
	req.Header.Set("Content-Type", mimeType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "acquiring-script", "upload video", "", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "acquiring-script", "read upload response", "", err)
	}
	if resp.StatusCode != http.StatusOK {
		return empty, services.Wrap(services.ErrNarration, "acquiring-script", "upload video",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var decoded uploadResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return empty, services.Wrap(services.ErrNarration, "acquiring-script", "decode upload response", "", err)
	}
	if decoded.Error != nil {
		return empty, services.Wrap(services.ErrNarration, "acquiring-script", "upload video",
			fmt.Sprintf("api error %d: %s", decoded.Error.Code, decoded.Error.Message), nil)
	}
	if decoded.File.Name == "" {
		return empty, services.Wrap(services.ErrNarration, "acquiring-script", "upload video", "response carried no file", nil)
	}
	return c.waitForActive(ctx, decoded.File)
}

func (c *Client) waitForActive(ctx context.Context, file fileResource) (fileResource, error) {
	deadline := time.Now().Add(c.pollTimeout)
	for file.State == fileStateProcessing {
		if time.Now().After(deadline) {
			return fileResource{}, services.Wrap(services.ErrNarration, "acquiring-script", "upload video",
				fmt.Sprintf("file %s still processing after %s", file.Name, c.pollTimeout), nil)
		}
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return fileResource{}, services.Wrap(services.ErrNarration, "acquiring-script", "upload video", "", err)
		}
		refreshed, err := c.getFile(ctx, file.Name)
		if err != nil {
			return fileResource{}, err
		}
		file = refreshed
	}
	if file.State == fileStateFailed {
		return fileResource{}, services.Wrap(services.ErrNarration, "acquiring-script", "upload video",
			fmt.Sprintf("file %s failed processing", file.Name), nil)
	}
	return file, nil
}

func (c *Client) getFile(ctx context.Context, name string) (fileResource, error) {
	var empty fileResource
	endpoint := fmt.Sprintf("%s/v1beta/%s?key=%s", strings.TrimRight(c.cfg.BaseURL, "/"), name, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return empty, services.Wrap(services.ErrNarration, "acquiring-script", "poll file", "", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "acquiring-script", "poll file", "", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "acquiring-script", "poll file", "", err)
	}
	if resp.StatusCode != http.StatusOK {
		return empty, services.Wrap(services.ErrNarration, "acquiring-script", "poll file",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	var decoded fileResource
	if err := json.Unmarshal(body, &decoded); err != nil {
		return empty, services.Wrap(services.ErrNarration, "acquiring-script", "decode file state", "", err)
	}
	return decoded, nil
}

// deleteFile is best effort cleanup after a narration request; failures are
// ignored because the File API expires uploads on its own.
func (c *Client) deleteFile(name string) {
	if name == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	endpoint := fmt.Sprintf("%s/v1beta/%s?key=%s", strings.TrimRight(c.cfg.BaseURL, "/"), name, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

func (c *Client) retryAttempts() int {
	if c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}
	if errors.Is(err, services.ErrTransient) {
		return c.backoffDelay(attempt), true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.retryBaseDelay
	if delay <= 0 {
		return 0
	}
	for i := 1; i < attempt; i++ {
		if delay > c.retryMaxDelay/2 {
			return c.retryMaxDelay
		}
		delay *= 2
	}
	if c.retryMaxDelay > 0 && delay > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func videoMIMEType(path string) string {
	if mimeType := mime.TypeByExtension(filepath.Ext(path)); mimeType != "" && strings.HasPrefix(mimeType, "video/") {
		return mimeType
	}
	return "video/mp4"
}
