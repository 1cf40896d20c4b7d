// Package service implements the bot builder operations on top of the store,
// the scenario engine and the text-generation client.
package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/larasedova/alpina-gpt-builder/internal/adapter/llm"
	"github.com/larasedova/alpina-gpt-builder/internal/config"
	"github.com/larasedova/alpina-gpt-builder/internal/engine"
	"github.com/larasedova/alpina-gpt-builder/internal/lock"
	"github.com/larasedova/alpina-gpt-builder/internal/log"
	"github.com/larasedova/alpina-gpt-builder/internal/policy"
	"github.com/larasedova/alpina-gpt-builder/internal/repository"
)

type Service struct {
	store        repository.Store
	llmClient    llm.LLMClient
	locker       lock.Locker
	policyEngine *policy.Engine
	engine       *engine.Engine
	config       *config.Config
	logger       *zap.Logger
	now          func() time.Time
}

func New(store repository.Store, llmClient llm.LLMClient, locker lock.Locker, policyEngine *policy.Engine, cfg *config.Config) *Service {
	return &Service{
		store:        store,
		llmClient:    llmClient,
		locker:       locker,
		policyEngine: policyEngine,
		engine:       engine.New(nil),
		config:       cfg,
		logger:       log.Component("BotService"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}
