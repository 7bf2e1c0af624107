package container

import (
	"context"
	"fmt"
	"log"

	"github.com/gdugdh24/nearmatch-backend/internal/config"
	"github.com/gdugdh24/nearmatch-backend/internal/delivery/http"
	"github.com/gdugdh24/nearmatch-backend/internal/delivery/http/handler"
	"github.com/gdugdh24/nearmatch-backend/internal/delivery/http/middleware"
	"github.com/gdugdh24/nearmatch-backend/internal/infrastructure/database"
	"github.com/gdugdh24/nearmatch-backend/internal/infrastructure/notify"
	"github.com/gdugdh24/nearmatch-backend/internal/infrastructure/server"
	"github.com/gdugdh24/nearmatch-backend/internal/repository"
	"github.com/gdugdh24/nearmatch-backend/internal/repository/memory"
	mongorepo "github.com/gdugdh24/nearmatch-backend/internal/repository/mongo"
	"github.com/gdugdh24/nearmatch-backend/internal/repository/postgres"
	"github.com/gdugdh24/nearmatch-backend/internal/usecase/auth"
	"github.com/gdugdh24/nearmatch-backend/internal/usecase/conversation"
	"github.com/gdugdh24/nearmatch-backend/internal/usecase/discovery"
	"github.com/gdugdh24/nearmatch-backend/internal/usecase/matching"
	"github.com/gdugdh24/nearmatch-backend/internal/usecase/profile"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	DB     *sqlx.DB
	Mongo  *mongo.Client
	Redis  *redis.Client
	Server *server.Server
}

// Repositories is the storage backend selected by STORAGE_TYPE.
type Repositories struct {
	Tx       repository.Transactor
	Profiles repository.ProfileRepository
	Matches  repository.MatchRepository
	Messages repository.MessageRepository
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	repos, err := c.initStorage()
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	// Redis is optional: without it match events are only logged.
	var notifier matching.MatchNotifier = notify.LogNotifier{}
	if cfg.Redis.Enabled() {
		redisClient, err := database.NewRedisClient(context.Background(), &cfg.Redis)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		c.Redis = redisClient
		notifier = notify.NewRedisNotifier(redisClient, cfg.Redis.MatchChannel)
	}

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := NewRouter(cfg, repos, notifier)
	c.Server = server.NewServer(&cfg.Server, router.Setup())

	return c, nil
}

// NewRouter wires use cases and handlers on top of repos.
func NewRouter(cfg *config.Config, repos *Repositories, notifier matching.MatchNotifier) *http.Router {
	// Initialize use cases
	authUseCase := auth.NewAuthUseCase(repos.Profiles, cfg.JWT.AccessSecret, cfg.JWT.AccessTTL())
	profileUseCase := profile.NewProfileUseCase(repos.Tx, repos.Profiles, repos.Matches)
	discoveryUseCase := discovery.NewDiscoveryUseCase(repos.Profiles)
	matchingUseCase := matching.NewMatchingUseCase(repos.Tx, repos.Profiles, repos.Matches, notifier)
	conversationUseCase := conversation.NewConversationUseCase(repos.Tx, repos.Matches, repos.Messages)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authUseCase, profileUseCase)
	profileHandler := handler.NewProfileHandler(profileUseCase)
	discoveryHandler := handler.NewDiscoveryHandler(discoveryUseCase)
	swipeHandler := handler.NewSwipeHandler(matchingUseCase)
	matchHandler := handler.NewMatchHandler(matchingUseCase)
	messageHandler := handler.NewMessageHandler(conversationUseCase)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(authUseCase)

	return http.NewRouter(
		authHandler,
		profileHandler,
		discoveryHandler,
		swipeHandler,
		matchHandler,
		messageHandler,
		authMiddleware,
		cfg.CORS.AllowedOrigins,
	)
}

func (c *Container) initStorage() (*Repositories, error) {
	cfg := c.Config
	switch cfg.Storage.Type {
	case config.StoragePostgres:
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.DB = db
		return &Repositories{
			Tx:       postgres.NewTransactor(db),
			Profiles: postgres.NewProfileRepository(db),
			Matches:  postgres.NewMatchRepository(db),
			Messages: postgres.NewMessageRepository(db),
		}, nil

	case config.StorageMongo:
		client, db, err := database.NewMongoDB(&cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mongo: %w", err)
		}
		c.Mongo = client
		return &Repositories{
			Tx:       mongorepo.NewTransactor(client),
			Profiles: mongorepo.NewProfileRepository(db),
			Matches:  mongorepo.NewMatchRepository(db),
			Messages: mongorepo.NewMessageRepository(db),
		}, nil

	case config.StorageMemory:
		log.Println("[Container] using in-memory storage, data is lost on restart")
		return NewMemoryRepositories(), nil
	}
	return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
}

// NewMemoryRepositories returns repositories sharing one in-process store.
func NewMemoryRepositories() *Repositories {
	store := memory.NewStore()
	return &Repositories{
		Tx:       memory.NewTransactor(store),
		Profiles: memory.NewProfileRepository(store),
		Matches:  memory.NewMatchRepository(store),
		Messages: memory.NewMessageRepository(store),
	}
}

// Close closes all connections
func (c *Container) Close() error {
	// Close Redis
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Printf("[Container] error closing redis: %v", err)
		}
	}

	if c.Mongo != nil {
		if err := database.DisconnectMongo(c.Mongo); err != nil {
			log.Printf("[Container] error closing mongo: %v", err)
		}
	}

	// Close database
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}

	return nil
}
