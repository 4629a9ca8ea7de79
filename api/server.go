package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	db "github.com/SwiftFiat/SwiftFiat-Cards/db/sqlc"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/common/execution"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/adapters"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/handler"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/repository"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/service"
	"github.com/SwiftFiat/SwiftFiat-Cards/models"
	"github.com/SwiftFiat/SwiftFiat-Cards/services"
	"github.com/SwiftFiat/SwiftFiat-Cards/services/monitoring/logging"
	"github.com/SwiftFiat/SwiftFiat-Cards/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type Server struct {
	router *gin.Engine
	config *utils.Config
	logger *logging.Logger
	store  *db.Store
	redis  *services.RedisService
	cards  *service.CardService
}

func NewServer(c *utils.Config, l *logging.Logger) (*Server, error) {
	s := &Server{
		config: c,
		logger: l,
	}

	repo, txManager, err := s.cardRepository()
	if err != nil {
		s.Close()
		return nil, err
	}
	if ttl := c.CardCacheTTL(); ttl > 0 {
		repo = repository.NewCachedCardRepository(repo, ttl)
	}

	generator, err := s.cardNumberGenerator(repo, txManager)
	if err != nil {
		s.Close()
		return nil, err
	}

	publisher, err := s.eventPublisher()
	if err != nil {
		s.Close()
		return nil, err
	}

	var retryable func(error) bool
	if s.store != nil {
		retryable = db.ShouldRetry
	}

	unit, err := execution.ParseTimeUnit(c.TimerUnit)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.cards = service.NewCardService(repo, generator, adapters.SystemDateTimeProvider{}, publisher, l, service.Options{
		TxManager:           txManager,
		TxTimeout:           c.TxTimeout(),
		RetryAttempts:       c.RetryAttempts,
		Locks:               execution.DefaultLockRegistry,
		TimingSink:          execution.LogSink{Logger: l},
		TimerUnit:           unit,
		MinCardNumberLength: c.CardNumberLength,
		Retryable:           retryable,
	})

	if c.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	g := gin.New()
	g.Use(gin.Recovery())
	g.Use(CORSMiddleware())
	g.Use(l.LoggingMiddleWare())
	s.router = g

	l.WithFields(logrus.Fields{
		"repository": c.CardRepository,
		"generator":  c.CardNumberGenerator,
		"publisher":  c.EventPublisher,
		"cache_ttl":  c.CardCacheTTL().String(),
	}).Info("cards service configured")

	return s, nil
}

func (s *Server) cardRepository() (repository.CardRepository, execution.TransactionManager, error) {
	switch s.config.CardRepository {
	case utils.RepositoryPostgres:
		store, err := s.postgres()
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLCardRepository(store), store, nil
	case utils.RepositoryRedis:
		r, err := s.redisService()
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisCardRepository(r.Client()), execution.NoopTransactionManager{}, nil
	default:
		return repository.NewMemoryCardRepository(), execution.NoopTransactionManager{}, nil
	}
}

func (s *Server) postgres() (*db.Store, error) {
	c := s.config
	conn, err := sql.Open(c.DBDriver, utils.GetDBSource(c, c.DBName))
	if err != nil {
		return nil, fmt.Errorf("could not load DB: %w", err)
	}

	m, err := migrate.New(c.MigrationsPath, utils.GetDBSource(c, c.DBName))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to instantiate the database schema migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		conn.Close()
		return nil, fmt.Errorf("unable to migrate up to the latest database schema: %w", err)
	}

	s.store = db.NewStore(conn)
	return s.store, nil
}

func (s *Server) redisService() (*services.RedisService, error) {
	if s.redis != nil {
		return s.redis, nil
	}
	r, err := services.NewRedisService(services.RedisConfigFrom(s.config))
	if err != nil {
		return nil, err
	}
	s.redis = r
	return r, nil
}

func (s *Server) cardNumberGenerator(repo repository.CardRepository, txManager execution.TransactionManager) (service.CardNumberGenerator, error) {
	c := s.config
	generator, err := adapters.NewCardNumberGenerator(c.CardNumberGenerator, c.CardNumberLength, c.CardNumberSalt)
	if err != nil {
		return nil, err
	}

	// counters restart on boot, skip what the store already holds
	if err := service.ResumeNumbering(context.Background(), generator, repo, txManager, c.TxTimeout()); err != nil {
		return nil, err
	}
	return generator, nil
}

func (s *Server) eventPublisher() (service.TransactionEventPublisher, error) {
	logPublisher := adapters.NewLogEventPublisher(s.logger)
	if s.config.EventPublisher != utils.PublisherRedis {
		return logPublisher, nil
	}
	r, err := s.redisService()
	if err != nil {
		return nil, err
	}
	return adapters.FanOutPublisher{
		logPublisher,
		adapters.NewRedisEventPublisher(r.Client(), s.config.EventChannel, s.logger),
	}, nil
}

func (s *Server) Start() error {
	dr := models.SuccessResponse{
		Status:  "success",
		Message: "Welcome to SwiftFiat Cards!",
		Version: utils.REVISION,
	}

	s.router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, dr)
	})

	/// Register Object Routers Below
	handler.NewCardHandler(&handler.CardDependencies{
		Router:  s.router,
		Logger:  s.logger,
		Service: s.cards,
	}).RegisterRoutes()

	return s.router.Run(fmt.Sprintf(":%v", s.config.ServerPort))
}

func (s *Server) Close() {
	if s.store != nil {
		if err := s.store.DB.Close(); err != nil {
			s.logger.Error(fmt.Sprintf("closing database: %v", err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error(fmt.Sprintf("closing redis: %v", err))
		}
	}
}
