// Package app connects storage and assembles the Narsus services.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"narsus/internal/cache"
	"narsus/internal/config"
	"narsus/internal/metrics"
	"narsus/internal/repository"
	"narsus/internal/service"
	"narsus/internal/transport/rest"
	"narsus/internal/transport/rest/middleware"
	"narsus/internal/transport/ws"
)

type App struct {
	Mongo *mongo.Client
	Redis *redis.Client

	UserRepo     repository.UserRepo
	CourseRepo   repository.CourseRepo
	QuestionRepo repository.QuestionRepo
	QCARepo      repository.QCARepo
	SurveyRepo   repository.SurveyRepo
	AttemptRepo  repository.AttemptRepo
	AnswerRepo   repository.AnswerRepo

	SurveyCache cache.SurveyCache
	ResultCache cache.ResultCache
	SubmitLock  cache.SubmitLock

	AuthService     *service.AuthService
	CourseService   *service.CourseService
	QuestionService *service.QuestionService
	QCAService      *service.QCAService
	SurveyService   *service.SurveyService
	AttemptService  *service.AttemptService

	Hub     *ws.Hub
	Metrics *metrics.Metrics

	cfg *config.Config
	log *zap.Logger
}

// New connects to MongoDB and Redis, ensures indexes and wires every service
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	mongoClient, err := connectMongo(ctx, cfg.Mongo.URI)
	if err != nil {
		return nil, err
	}
	log.Info("connected to MongoDB", zap.String("database", cfg.Mongo.Database))

	db := mongoClient.Database(cfg.Mongo.Database)
	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := repository.EnsureIndexes(indexCtx, db); err != nil {
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	defer cancelPing()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unavailable, caching degraded", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	} else {
		log.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	a := &App{
		Mongo:        mongoClient,
		Redis:        rdb,
		UserRepo:     repository.NewUserRepo(db),
		CourseRepo:   repository.NewCourseRepo(db),
		QuestionRepo: repository.NewQuestionRepo(db),
		QCARepo:      repository.NewQCARepo(db),
		SurveyRepo:   repository.NewSurveyRepo(db),
		AttemptRepo:  repository.NewAttemptRepo(db),
		AnswerRepo:   repository.NewAnswerRepo(db),
		SurveyCache:  cache.NewSurveyCache(rdb, cfg.Cache.SurveyTTL()),
		ResultCache:  cache.NewResultCache(rdb, cfg.Cache.ResultTTL()),
		SubmitLock:   cache.NewSubmitLock(rdb),
		Hub:          ws.NewHub(log),
		Metrics:      metrics.New(),
		cfg:          cfg,
		log:          log,
	}
	a.wireServices()
	return a, nil
}

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func (a *App) wireServices() {
	upkeep := service.NewSurveyUpkeep(a.SurveyRepo, a.QCARepo, a.SurveyCache, a.log)

	a.AuthService = service.NewAuthService(a.UserRepo, a.cfg.JWT.Secret, a.cfg.JWT.Expiry(), a.log)
	a.CourseService = service.NewCourseService(a.CourseRepo, a.QCARepo, a.SurveyRepo, upkeep, a.log)
	a.QuestionService = service.NewQuestionService(a.QuestionRepo, a.QCARepo, upkeep, a.log)
	a.QCAService = service.NewQCAService(a.QCARepo, a.QuestionRepo, a.CourseRepo, upkeep, a.log)
	a.SurveyService = service.NewSurveyService(
		a.SurveyRepo, a.CourseRepo, a.QuestionRepo, a.QCARepo,
		a.AttemptRepo, a.AnswerRepo, a.SurveyCache, upkeep, a.log,
	)
	a.AttemptService = service.NewAttemptService(service.AttemptDeps{
		Attempts:          a.AttemptRepo,
		Answers:           a.AnswerRepo,
		Surveys:           a.SurveyRepo,
		QCAs:              a.QCARepo,
		Questions:         a.QuestionRepo,
		Courses:           a.CourseRepo,
		Users:             a.UserRepo,
		Results:           a.ResultCache,
		Lock:              a.SubmitLock,
		Broadcaster:       a.Hub,
		Recorder:          a.Metrics,
		CompletionMessage: a.cfg.Scoring.CompletionMessage,
		Log:               a.log,
	})
}

// Container exposes the services to the REST router
func (a *App) Container(limiter *middleware.RateLimiter) *rest.Container {
	return &rest.Container{
		AuthService:     a.AuthService,
		CourseService:   a.CourseService,
		QuestionService: a.QuestionService,
		QCAService:      a.QCAService,
		SurveyService:   a.SurveyService,
		AttemptService:  a.AttemptService,
		WSHub:           a.Hub,
		Metrics:         a.Metrics,
		RateLimiter:     limiter,
		AllowedOrigins:  a.cfg.CORS.AllowedOrigins,
		Log:             a.log,
	}
}

// Close stops the hub and releases the storage clients
func (a *App) Close(ctx context.Context) {
	a.Hub.Close()
	if err := a.Redis.Close(); err != nil {
		a.log.Warn("close redis", zap.Error(err))
	}
	if err := a.Mongo.Disconnect(ctx); err != nil {
		a.log.Warn("disconnect mongo", zap.Error(err))
	}
}
