package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-assistant/internal/adzuna"
	"github.com/spigell/job-assistant/internal/ai"
	"github.com/spigell/job-assistant/internal/ai/gemini"
	"github.com/spigell/job-assistant/internal/assistant"
	"github.com/spigell/job-assistant/internal/conversation"
	"github.com/spigell/job-assistant/internal/dialog"
	"github.com/spigell/job-assistant/internal/extraction"
	"github.com/spigell/job-assistant/internal/filtering"
	"github.com/spigell/job-assistant/internal/listings"
	"github.com/spigell/job-assistant/internal/logger"
	"github.com/spigell/job-assistant/internal/ranking"
	"github.com/spigell/job-assistant/internal/roles"
	"github.com/spigell/job-assistant/internal/search"
	"github.com/spigell/job-assistant/internal/secrets"
)

const (
	PromptLike        = "Like"
	PromptPass        = "Pass"
	PromptStop        = "Stop swiping"
	PromptNotNow      = "Not now"
	PromptTypeInstead = "Type something else"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive job search conversation",
	Run: func(cmd *cobra.Command, _ []string) {
		chat(cmd)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address, e.g. :9090. Default is unset.")
	chatCmd.Flags().String("conversation", "", "conversation id to continue. Default is a new conversation.")
	chatCmd.Flags().String("user", "local", "user id the conversation belongs to")
}

// chat is the main command for the cli.
func chat(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the job-assistant", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		srv := serveMetrics(addr, logger)
		defer srv.Close()
	}

	provider, err := newProvider(config.Adzuna, logger)
	if err != nil {
		logger.Fatal(
			"building listing provider",
			zap.Error(err),
			zap.String("hint", "set ADZUNA_APP_KEY_FILE environment variable or the 'adzuna.app-key-file' key in the configuration file"),
		)
	}

	filters := filtering.Default()
	if err := filtering.Validate(&filtering.Config{Employers: config.Assistant.Exclude.Employers}, filters); err != nil {
		logger.Fatal("validating filters", zap.Error(err))
	}

	families := config.Assistant.Families
	if len(families) == 0 {
		families = roles.DefaultFamilies
	}

	completer, err := newCompleter(ctx, config.AI, logger)
	if err != nil {
		logger.Warn("continuing without ai", zap.Error(err))
	}

	var model *extraction.ModelStage
	if completer != nil {
		model = &extraction.ModelStage{
			Completer: completer,
			Model:     config.AI.Gemini.Model,
			Timeout:   config.AI.Timeout,
		}
	}

	extractor := extraction.New(extraction.Options{
		Model:    model,
		Dataset:  roles.NewDataset(config.Assistant.Dataset, logger),
		Families: families,
		Cities:   config.Assistant.Cities,
		Logger:   logger,
	})

	pipeline := search.New(search.Options{
		Provider: provider,
		Filters:  filters,
		Ranker:   ranking.New(families),
		PerPage:  config.Adzuna.ResultsPerPage,
		Logger:   logger,
	})

	machine := dialog.New(dialog.Options{
		Extractor:    extractor,
		Searcher:     pipeline,
		Completer:    completer,
		Model:        config.AI.Gemini.Model,
		Temperature:  config.AI.Temperature,
		DeckSize:     config.Assistant.DeckSize,
		ReplyTimeout: config.AI.Timeout,
		Logger:       logger,
	})

	store, closeStore, err := newStore(ctx, config.Store)
	if err != nil {
		logger.Fatal("opening conversation store", zap.Error(err))
	}
	defer closeStore()

	a := assistant.New(machine, store, assistant.Options{
		TurnTimeout:      config.Assistant.TurnTimeout,
		HistorySize:      config.Assistant.HistorySize,
		MaxMessageLength: config.Assistant.MaxMessageLength,
		Logger:           logger,
	})

	conversationID, _ := cmd.Flags().GetString("conversation")
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	userID, _ := cmd.Flags().GetString("user")

	logger.Info("starting the conversation",
		zap.String("conversation", conversationID),
		zap.String("store", config.Store.Backend),
		zap.Bool("ai", completer != nil),
	)

	s := &session{assistant: a, conversationID: conversationID, userID: userID}
	if err := s.run(ctx); err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}
}

func newProvider(cfg AdzunaConfig, logger *zap.Logger) (listings.Provider, error) {
	appKey, err := secrets.Load(secrets.Source{
		Name: "adzuna app key",
		File: cfg.AppKeyFile,
		Env:  "ADZUNA_APP_KEY",
	})
	if err != nil {
		return nil, err
	}

	client := adzuna.New(logger, adzuna.Options{
		AppID:             cfg.AppID,
		AppKey:            appKey,
		Country:           cfg.Country,
		ResultsPerPage:    cfg.ResultsPerPage,
		MaxRetries:        cfg.MaxRetries,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})

	return listings.NewCache(client, cfg.CacheTTL, logger), nil
}

// newCompleter returns a nil Completer when ai is disabled.
func newCompleter(ctx context.Context, cfg AIConfig, logger *zap.Logger) (ai.Completer, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, gemini.Options{
		Model:        cfg.Gemini.Model,
		MaxRetries:   cfg.Gemini.MaxRetries,
		MaxLogLength: cfg.Gemini.MaxLogLength,
	}, logger)
	if err != nil {
		return nil, err
	}

	return generator, nil
}

func newStore(ctx context.Context, cfg StoreConfig) (conversation.Store, func(), error) {
	if cfg.Backend != "redis" {
		return conversation.NewMemoryStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
	}

	return conversation.NewRedisStore(client, cfg.Redis.TTL), func() { _ = client.Close() }, nil
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}
