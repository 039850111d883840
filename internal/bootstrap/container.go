package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-companion-be/internal/config"
	"ai-companion-be/internal/pkg/logger"
	"ai-companion-be/internal/repository/implementation"
	"ai-companion-be/internal/service"
	"ai-companion-be/internal/websocket"
	"ai-companion-be/pkg/cache"
	"ai-companion-be/pkg/flow/decision"
	"ai-companion-be/pkg/flow/output"
	"ai-companion-be/pkg/flow/parser"
	"ai-companion-be/pkg/flow/pipeline"
	"ai-companion-be/pkg/flow/state"
	"ai-companion-be/pkg/llm/factory"

	pktNats "ai-companion-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const responsePersistedTopic = "flow.response_persisted"

type Container struct {
	// WebSocket entry points for the server layer.
	Manager *websocket.Manager

	// Background services (exposed for main.go to run).
	ConsumerService service.IConsumerService

	NatsPublisher *pktNats.Publisher
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	flowLogger := log.Default()

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. LLM provider
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.BaseURL,
		cfg.Ai.APIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. State cache backend
	var stateCache cache.Store
	if cfg.Flow.CacheBackend == "redis" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		stateCache = cache.NewRedis(rdb, flowLogger)
		log.Printf("[INFO] Using state cache backend: REDIS")
	} else {
		stateCache = cache.NewMemory(10*time.Minute, 5*time.Minute)
		log.Printf("[INFO] Using state cache backend: MEMORY")
	}

	// 5. Repositories
	messageRepo := implementation.NewMessageRepository(db)
	conversationRepo := implementation.NewConversationRepository(db)
	characterRepo := implementation.NewAICharacterRepository(db)
	preferenceRepo := implementation.NewUserPreferenceRepository(db)

	// 6. Flow engine
	profiles := service.NewProfileSource(characterRepo, conversationRepo, preferenceRepo)
	stateStore := state.NewStore(stateCache, profiles, state.DefaultTTLConfig(), flowLogger)
	inputParser := parser.New()
	decider := decision.NewEngine(decision.DefaultRules(), flowLogger)
	outputAdapter := output.NewAdapter(llmProvider, flowLogger).
		WithChunkSize(cfg.Flow.StreamChunkSize)
	processor := pipeline.NewProcessor(inputParser, stateStore, decider, outputAdapter, flowLogger).
		WithGraphMode(cfg.Flow.GraphMode).
		WithStatsCache(stateCache, 10*time.Minute)

	// 7. NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// 8. WebSocket manager
	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	manager := websocket.NewManager(wsLogger, cfg.Flow.IdleTimeout, cfg.Flow.IdleSweepInterval)

	// 9. Services
	chatService := service.NewChatService(
		messageRepo,
		conversationRepo,
		characterRepo,
		stateStore,
		processor,
		manager,
		pubSub,
		responsePersistedTopic,
		natsPub,
		sysLogger,
		cfg.Flow.GenerationTimeout,
	)
	characterService := service.NewCharacterService(characterRepo, conversationRepo, stateStore, manager, sysLogger)
	stateService := service.NewStateService(preferenceRepo, stateStore, manager, sysLogger)
	historyService := service.NewHistoryService(messageRepo, conversationRepo, manager, sysLogger)

	dispatcher := service.NewDispatcher(chatService, characterService, stateService, historyService, manager, sysLogger)
	manager.SetDispatcher(dispatcher)

	consumerService := service.NewConsumerService(pubSub, responsePersistedTopic, stateStore, sysLogger)

	return &Container{
		Manager:         manager,
		ConsumerService: consumerService,
		NatsPublisher:   natsPub,
	}
}
