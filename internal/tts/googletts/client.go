// Package googletts implements the tts.Engine contract against the Google
// Cloud Text-to-Speech REST API.
//
// Synthesis uses the v1 text:synthesize endpoint with API-key auth; the
// response carries base64-encoded audio which is decoded and written to the
// requested path. Clip duration is measured from the written file with
// ffprobe rather than trusted from any request parameter.
package googletts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"narrate/internal/media/ffprobe"
	"narrate/internal/services"
	"narrate/internal/tts"
)

const (
	defaultBaseURL     = "https://texttospeech.googleapis.com"
	defaultHTTPTimeout = 60 * time.Second
	synthesizePath     = "/v1/text:synthesize"
)

// Config captures the runtime settings required to talk to the API.
type Config struct {
	APIKey         string
	BaseURL        string
	Voice          string
	LanguageCode   string
	SpeakingRate   float64
	TimeoutSeconds int
	FFprobeBinary  string
}

// Client implements tts.Engine.
type Client struct {
	cfg        Config
	httpClient *http.Client
	probe      func(ctx context.Context, path string) (float64, error)
}

var _ tts.Engine = (*Client)(nil)

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

// WithDurationProbe overrides how clip durations are measured (useful for
// tests that run without ffprobe).
func WithDurationProbe(probe func(ctx context.Context, path string) (float64, error)) Option {
	return func(c *Client) {
		if probe != nil {
			c.probe = probe
		}
	}
}

// NewClient constructs a Google TTS client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	client.probe = func(ctx context.Context, path string) (float64, error) {
		result, err := ffprobe.Inspect(ctx, cfg.FFprobeBinary, path)
		if err != nil {
			return 0, err
		}
		return result.DurationSeconds(), nil
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type synthesisInput struct {
	Text string `json:"text,omitempty"`
	SSML string `json:"ssml,omitempty"`
}

type voiceSelection struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name"`
}

type audioConfig struct {
	AudioEncoding string  `json:"audioEncoding"`
	SpeakingRate  float64 `json:"speakingRate,omitempty"`
}

type synthesizeRequest struct {
	Input       synthesisInput `json:"input"`
	Voice       voiceSelection `json:"voice"`
	AudioConfig audioConfig    `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
	Error        *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SynthesizePlain synthesizes plain text into outPath.
func (c *Client) SynthesizePlain(ctx context.Context, text, outPath string) (tts.Result, error) {
	return c.synthesize(ctx, synthesisInput{Text: text}, outPath)
}

// SynthesizeSSML synthesizes an SSML document into outPath.
func (c *Client) SynthesizeSSML(ctx context.Context, ssml, outPath string) (tts.Result, error) {
	return c.synthesize(ctx, synthesisInput{SSML: ssml}, outPath)
}

// ClipDuration measures the duration of a written clip.
func (c *Client) ClipDuration(ctx context.Context, path string) (float64, error) {
	duration, err := c.probe(ctx, path)
	if err != nil {
		return 0, services.Wrap(services.ErrTTS, "synthesizing", "measure clip", "", err)
	}
	if duration <= 0 {
		return 0, services.Wrap(services.ErrTTS, "synthesizing", "measure clip", fmt.Sprintf("%s reports zero duration", path), nil)
	}
	return duration, nil
}

func (c *Client) synthesize(ctx context.Context, input synthesisInput, outPath string) (tts.Result, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return tts.Result{}, services.Wrap(services.ErrConfiguration, "synthesizing", "google tts", "api key required", nil)
	}
	if strings.TrimSpace(input.Text) == "" && strings.TrimSpace(input.SSML) == "" {
		return tts.Result{}, services.Wrap(services.ErrTTS, "synthesizing", "google tts", "empty input", nil)
	}
	if strings.TrimSpace(outPath) == "" {
		return tts.Result{}, services.Wrap(services.ErrTTS, "synthesizing", "google tts", "output path required", nil)
	}

	payload := synthesizeRequest{
		Input: input,
		Voice: voiceSelection{
			LanguageCode: c.cfg.LanguageCode,
			Name:         c.cfg.Voice,
		},
		AudioConfig: audioConfig{
			AudioEncoding: "MP3",
			SpeakingRate:  c.cfg.SpeakingRate,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return tts.Result{}, services.Wrap(services.ErrTTS, "synthesizing", "encode request", "", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + synthesizePath + "?key=" + c.cfg.APIKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return tts.Result{}, services.Wrap(services.ErrTTS, "synthesizing", "build request", "", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return tts.Result{}, services.Wrap(services.ErrTTS, "synthesizing", "send request", "", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return tts.Result{}, services.Wrap(services.ErrTTS, "synthesizing", "read response", "", err)
	}

	var decoded synthesizeResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		if resp.StatusCode != http.StatusOK {
			return tts.Result{}, services.Wrap(services.ErrTTS, "synthesizing", "google tts",
				fmt.Sprintf("http %d: %s", resp.StatusCode, summarize(respBody)), nil)
		}
		return tts.Result{}, services.Wrap(services.ErrTTS, "synthesizing", "decode response", "", err)
	}
	if resp.StatusCode != http.StatusOK || decoded.Error != nil {
		message := summarize(respBody)
		if decoded.Error != nil {
			message = decoded.Error.Message
		}
		return tts.Result{}, services.Wrap(services.ErrTTS, "synthesizing", "google tts",
			fmt.Sprintf("http %d: %s", resp.StatusCode, message), nil)
	}
	if decoded.AudioContent == "" {
		return tts.Result{}, services.Wrap(services.ErrTTS, "synthesizing", "google tts", "response carried no audio", nil)
	}

	audio, err := base64.StdEncoding.DecodeString(decoded.AudioContent)
	if err != nil {
		return tts.Result{}, services.Wrap(services.ErrTTS, "synthesizing", "decode audio", "", err)
	}
	if err := os.WriteFile(outPath, audio, 0o644); err != nil {
		return tts.Result{}, services.Wrap(services.ErrTTS, "synthesizing", "write clip", "", err)
	}

	duration, err := c.ClipDuration(ctx, outPath)
	if err != nil {
		_ = os.Remove(outPath)
		return tts.Result{}, err
	}
	return tts.Result{Path: outPath, DurationSeconds: duration}, nil
}

func summarize(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	if text == "" {
		return "empty body"
	}
	return text
}

// HealthCheck verifies the API key is present without issuing a request.
func (c *Client) HealthCheck() error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return errors.New("google tts: api key required")
	}
	return nil
}
