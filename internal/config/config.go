package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration for the bridge client.
type Config struct {
	Rooms        RoomsConfig
	Stream       StreamConfig
	Audio        AudioConfig
	Conversation ConversationConfig
}

type RoomsConfig struct {
	APIBaseURL  string
	WSBaseURL   string
	HTTPTimeout time.Duration
}

type StreamConfig struct {
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
}

type ConversationConfig struct {
	SettleDelay time.Duration
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() Config {
	cfg := Config{
		Rooms: RoomsConfig{
			APIBaseURL:  envOrDefault("LUGHA_API_BASE_URL", "http://localhost:8000/api"),
			WSBaseURL:   envOrDefault("LUGHA_WS_BASE_URL", "ws://localhost:8000"),
			HTTPTimeout: time.Duration(envOrDefaultInt("LUGHA_HTTP_TIMEOUT_MS", 10000)) * time.Millisecond,
		},
		Stream: StreamConfig{
			ReconnectDelay:       time.Duration(envOrDefaultInt("LUGHA_RECONNECT_DELAY_MS", 2000)) * time.Millisecond,
			MaxReconnectAttempts: envOrDefaultInt("LUGHA_MAX_RECONNECT_ATTEMPTS", 5),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("LUGHA_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("LUGHA_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     envOrDefault("LUGHA_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("LUGHA_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("LUGHA_CHANNELS", 1),
		},
		Conversation: ConversationConfig{
			SettleDelay: time.Duration(envOrDefaultInt("LUGHA_SETTLE_DELAY_MS", 800)) * time.Millisecond,
		},
	}

	if cfg.Rooms.HTTPTimeout <= 0 {
		cfg.Rooms.HTTPTimeout = 10 * time.Second
	}
	if cfg.Stream.ReconnectDelay <= 0 {
		cfg.Stream.ReconnectDelay = 2 * time.Second
	}
	if cfg.Stream.MaxReconnectAttempts < 0 {
		cfg.Stream.MaxReconnectAttempts = 5
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Conversation.SettleDelay <= 0 {
		cfg.Conversation.SettleDelay = 800 * time.Millisecond
	}

	return cfg
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
