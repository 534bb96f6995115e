package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables use the
// LECTERN_ prefix with underscores separating nested keys
// (e.g. LECTERN_SERVER_PORT, LECTERN_DATABASE_URL) and take precedence
// over file values. Returns a populated Config or an error if loading or
// validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults suffice.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("LECTERN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv does not register keys for Unmarshal, so bind explicitly.
	for _, key := range configKeys() {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %q: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)
	v.SetDefault("transcription.model", "whisper-1")
	v.SetDefault("processor.max_concurrent_jobs", 4)
	v.SetDefault("media.ytdlp_path", "yt-dlp")
	v.SetDefault("media.max_video_length_minutes", 120)
	v.SetDefault("media.max_content_chars", 1000000)
	v.SetDefault("media.upload_dir", "./uploads")
}

func configKeys() []string {
	return []string{
		"server.port",
		"server.log_level",
		"database.url",
		"auth.jwt_secret",
		"llm.gemini_api_key",
		"llm.model_name",
		"llm.max_retries",
		"llm.retry_delay_seconds",
		"transcription.openai_api_key",
		"transcription.model",
		"processor.max_concurrent_jobs",
		"media.ytdlp_path",
		"media.max_video_length_minutes",
		"media.max_content_chars",
		"media.upload_dir",
	}
}
