package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server        ServerConfig        `mapstructure:"server" validate:"required"`
	Database      DatabaseConfig      `mapstructure:"database" validate:"required"`
	Auth          AuthConfig          `mapstructure:"auth"`
	LLM           LLMConfig           `mapstructure:"llm" validate:"required"`
	Transcription TranscriptionConfig `mapstructure:"transcription" validate:"required"`
	Processor     ProcessorConfig     `mapstructure:"processor"`
	Media         MediaConfig         `mapstructure:"media"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains token verification settings. The secret is optional:
// without it every submission is treated as anonymous, which is a supported
// mode rather than an error.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName         string `mapstructure:"model_name" validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0,lte=60"`
}

// TranscriptionConfig contains speech-to-text settings.
type TranscriptionConfig struct {
	OpenAIAPIKey string `mapstructure:"openai_api_key" validate:"required"`
	Model        string `mapstructure:"model" validate:"required"`
}

// ProcessorConfig bounds the background execution pool.
type ProcessorConfig struct {
	MaxConcurrentJobs int `mapstructure:"max_concurrent_jobs" validate:"gte=1,lte=64"`
}

// MediaConfig contains content acquisition limits and paths.
type MediaConfig struct {
	YtDlpPath             string `mapstructure:"ytdlp_path"`
	MaxVideoLengthMinutes int    `mapstructure:"max_video_length_minutes" validate:"gte=1"`
	MaxContentChars       int    `mapstructure:"max_content_chars" validate:"gte=1"`
	UploadDir             string `mapstructure:"upload_dir" validate:"required"`
}
