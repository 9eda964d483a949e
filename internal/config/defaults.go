package config

const (
	defaultOutputDir = "~/narrate/output"
	defaultWorkDir   = "~/.local/share/narrate/work"
	defaultLogDir    = "~/.local/share/narrate/logs"

	defaultGeminiBaseURL           = "https://generativelanguage.googleapis.com"
	defaultGeminiModel             = "gemini-1.5-pro-latest"
	defaultGeminiTimeoutSeconds    = 1800
	defaultGeminiTemperature       = 0.6
	defaultMaxInlineDurationSecond = 55
	defaultMaxInlineSizeMB         = 19

	defaultTTSBaseURL        = "https://texttospeech.googleapis.com"
	defaultTTSVoice          = "en-US-Standard-C"
	defaultTTSLanguageCode   = "en-US"
	defaultTTSSpeakingRate   = 1.0
	defaultTTSTimeoutSeconds = 60
	defaultTTSWorkers        = 2

	defaultMinSegmentSeconds = 0.5

	defaultAudioFormat  = "mp3"
	defaultAudioBitrate = "192k"
	defaultSampleRate   = 44100
	defaultChannels     = 2

	defaultLogLevel  = "info"
	defaultLogFormat = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
		},
		Gemini: Gemini{
			BaseURL:                  defaultGeminiBaseURL,
			Model:                    defaultGeminiModel,
			TimeoutSeconds:           defaultGeminiTimeoutSeconds,
			Temperature:              defaultGeminiTemperature,
			MaxInlineDurationSeconds: defaultMaxInlineDurationSecond,
			MaxInlineSizeMB:          defaultMaxInlineSizeMB,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			Voice:          defaultTTSVoice,
			LanguageCode:   defaultTTSLanguageCode,
			SpeakingRate:   defaultTTSSpeakingRate,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
			Workers:        defaultTTSWorkers,
		},
		Validator: Validator{
			MinSegmentSeconds: defaultMinSegmentSeconds,
		},
		Assembly: Assembly{
			AudioFormat:  defaultAudioFormat,
			AudioBitrate: defaultAudioBitrate,
			SampleRate:   defaultSampleRate,
			Channels:     defaultChannels,
		},
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}
