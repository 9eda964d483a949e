package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateGemini(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateValidator(); err != nil {
		return err
	}
	if err := c.validateAssembly(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	return nil
}

func (c *Config) validateGemini() error {
	if c.Gemini.Model == "" {
		return errors.New("gemini.model must be set")
	}
	if c.Gemini.TimeoutSeconds <= 0 {
		return errors.New("gemini.timeout_seconds must be positive")
	}
	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		return errors.New("gemini.temperature must be between 0 and 2")
	}
	if c.Gemini.MaxInlineDurationSeconds <= 0 {
		return errors.New("gemini.max_inline_duration_seconds must be positive")
	}
	if c.Gemini.MaxInlineSizeMB <= 0 {
		return errors.New("gemini.max_inline_size_mb must be positive")
	}
	return nil
}

func (c *Config) validateTTS() error {
	if c.TTS.Voice == "" {
		return errors.New("tts.voice must be set")
	}
	if c.TTS.SpeakingRate < 0.25 || c.TTS.SpeakingRate > 4.0 {
		return errors.New("tts.speaking_rate must be between 0.25 and 4.0")
	}
	if c.TTS.TimeoutSeconds <= 0 {
		return errors.New("tts.timeout_seconds must be positive")
	}
	if c.TTS.Workers < 1 {
		return errors.New("tts.workers must be at least 1")
	}
	return nil
}

func (c *Config) validateValidator() error {
	if c.Validator.MinSegmentSeconds <= 0 {
		return errors.New("validator.min_segment_seconds must be positive")
	}
	return nil
}

func (c *Config) validateAssembly() error {
	switch c.Assembly.AudioFormat {
	case "mp3", "wav":
	default:
		return fmt.Errorf("assembly.audio_format: unsupported value %q", c.Assembly.AudioFormat)
	}
	if c.Assembly.SampleRate <= 0 {
		return errors.New("assembly.sample_rate must be positive")
	}
	if c.Assembly.Channels != 1 && c.Assembly.Channels != 2 {
		return errors.New("assembly.channels must be 1 or 2")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: unsupported value %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("log_format: unsupported value %q", c.LogFormat)
	}
	return nil
}
