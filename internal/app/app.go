// Package app builds the process-wide object graph from configuration.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/shweta09111/autostream-agent/internal/config"
	"github.com/shweta09111/autostream-agent/internal/conversation"
	"github.com/shweta09111/autostream-agent/internal/intent"
	"github.com/shweta09111/autostream-agent/internal/knowledge"
	"github.com/shweta09111/autostream-agent/internal/lead"
	"github.com/shweta09111/autostream-agent/internal/llm"
	"github.com/shweta09111/autostream-agent/internal/store"
	"github.com/tmc/langchaingo/llms"
)

// App holds the long-lived collaborators shared by every command.
type App struct {
	Config     *config.Config
	Repo       store.Repository
	Knowledge  *knowledge.Base
	Controller *conversation.Controller
	Logger     *slog.Logger
}

// New wires storage, knowledge, model clients and the conversation controller.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	repo, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	kb, err := knowledge.Load(cfg.KnowledgeBasePath)
	if err != nil {
		return nil, errors.Join(err, repo.Close())
	}

	classifier, completer, err := newModels(cfg, logger)
	if err != nil {
		return nil, errors.Join(err, repo.Close())
	}

	ctrl := conversation.NewController(conversation.Deps{
		Store:         repo,
		Classifier:    classifier,
		Retriever:     kb,
		Completer:     completer,
		Sink:          lead.NewStoreSink(repo, logger),
		Logger:        logger,
		HistoryWindow: cfg.Conversation.HistoryWindow,
		RetrievalTopK: cfg.Conversation.RetrievalTopK,
	})

	logger.Info("Application initialized",
		"store", cfg.StoreDriver,
		"provider", providerName(cfg),
		"model", cfg.LLM.Model,
		"snippets", kb.Len(),
	)

	return &App{
		Config:     cfg,
		Repo:       repo,
		Knowledge:  kb,
		Controller: ctrl,
		Logger:     logger,
	}, nil
}

// Close releases storage resources.
func (a *App) Close() error {
	return a.Repo.Close()
}

func openStore(cfg *config.Config) (store.Repository, error) {
	switch cfg.StoreDriver {
	case "memory":
		return store.NewMemory(), nil
	case "sqlite", "":
		repo, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func providerName(cfg *config.Config) string {
	if cfg.IsMock() {
		return llm.ProviderMock
	}
	return cfg.LLM.Provider
}

// newModels builds the intent classifier and reply completer. MOCK mode uses
// the offline model and the keyword classifier.
func newModels(cfg *config.Config, logger *slog.Logger) (conversation.Classifier, *llm.Completer, error) {
	llmCfg := llm.Config{
		Provider:    providerName(cfg),
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}

	model, err := llm.NewModel(llmCfg)
	if err != nil {
		return nil, nil, err
	}
	completer := llm.NewCompleter(model, llmCfg)

	if cfg.IsMock() {
		return intent.NewKeywordClassifier(), completer, nil
	}

	classifierModel := model
	if cfg.LLM.ClassifierModel != "" && cfg.LLM.ClassifierModel != cfg.LLM.Model {
		classifierCfg := llmCfg
		classifierCfg.Model = cfg.LLM.ClassifierModel
		var m llms.Model
		if m, err = llm.NewModel(classifierCfg); err != nil {
			return nil, nil, err
		}
		classifierModel = m
	}
	return intent.NewLLMClassifier(classifierModel, logger), completer, nil
}
