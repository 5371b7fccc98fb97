package cmd

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/spigell/job-assistant/internal/listings"
	"github.com/spigell/job-assistant/internal/roles"
)

type Config struct {
	AI        AIConfig        `mapstructure:"ai"`
	Adzuna    AdzunaConfig    `mapstructure:"adzuna"`
	Store     StoreConfig     `mapstructure:"store"`
	Assistant AssistantConfig `mapstructure:"assistant"`
}

type AIConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Provider    string        `mapstructure:"provider" validate:"omitempty,oneof=gemini"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gte=0"`
	Temperature float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	Gemini      GeminiConfig  `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries" validate:"gte=0"`
	MaxLogLength int    `mapstructure:"max-log-length" validate:"gte=0"`
}

type AdzunaConfig struct {
	AppID             string        `mapstructure:"app-id" validate:"required"`
	AppKeyFile        string        `mapstructure:"app-key-file"`
	Country           string        `mapstructure:"country" validate:"omitempty,len=2,alpha"`
	ResultsPerPage    int           `mapstructure:"results-per-page" validate:"gte=0,lte=50"`
	MaxRetries        int           `mapstructure:"max-retries" validate:"gte=0"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gte=0"`
	RequestsPerSecond float64       `mapstructure:"requests-per-second" validate:"gte=0"`
	CacheTTL          time.Duration `mapstructure:"cache-ttl" validate:"gte=0,lte=5m"`
}

type StoreConfig struct {
	Backend string      `mapstructure:"backend" validate:"oneof=memory redis"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr" json:"addr"`
	Password string        `mapstructure:"password" json:"-"`
	DB       int           `mapstructure:"db" json:"db" validate:"gte=0"`
	TTL      time.Duration `mapstructure:"ttl" json:"ttl" validate:"gte=0"`
}

type AssistantConfig struct {
	DeckSize         int            `mapstructure:"deck-size" validate:"gte=0,lte=50"`
	TurnTimeout      time.Duration  `mapstructure:"turn-timeout" validate:"gte=0"`
	HistorySize      int            `mapstructure:"history-size" validate:"gte=0"`
	MaxMessageLength int            `mapstructure:"max-message-length" validate:"gte=0"`
	Dataset          string         `mapstructure:"dataset"`
	Cities           []string       `mapstructure:"cities" validate:"dive,required"`
	Families         roles.Families `mapstructure:"families" validate:"dive"`
	Exclude          ExcludeConfig  `mapstructure:"exclude"`
}

type ExcludeConfig struct {
	Employers []string `mapstructure:"employers"`
}

func setDefaults() {
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.timeout", 15*time.Second)
	viper.SetDefault("adzuna.country", "gb")
	viper.SetDefault("adzuna.cache-ttl", listings.DefaultCacheTTL)
	viper.SetDefault("store.backend", "memory")
	viper.SetDefault("assistant.deck-size", 8)
	viper.SetDefault("assistant.history-size", 20)
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}

	if err := validateConfig(config); err != nil {
		return config, err
	}

	return config, nil
}

func validateConfig(config *Config) error {
	validate := validator.New()
	validate.RegisterStructValidation(validateStore, StoreConfig{})
	validate.RegisterStructValidation(validateFamily, roles.Family{})

	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func validateStore(sl validator.StructLevel) {
	store := sl.Current().Interface().(StoreConfig)
	if store.Backend == "redis" && store.Redis.Addr == "" {
		sl.ReportError(store.Redis.Addr, "Redis.Addr", "addr", "required_with_redis", "")
	}
}

func validateFamily(sl validator.StructLevel) {
	family := sl.Current().Interface().(roles.Family)
	if family.Name == "" {
		sl.ReportError(family.Name, "Name", "name", "required", "")
	}
	if len(family.Keys) == 0 {
		sl.ReportError(family.Keys, "Keys", "keys", "required", "")
	}
}
