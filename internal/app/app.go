package app

import (
	"context"
	"fmt"
	"net/http"

	"family-lists-go/internal/config"
	"family-lists-go/internal/db"
	listsdomain "family-lists-go/internal/domain/lists"
	"family-lists-go/internal/policy"
	"family-lists-go/internal/realtime"
	"family-lists-go/internal/repository/inmemory"
	postgreslists "family-lists-go/internal/repository/postgres/lists"
	"family-lists-go/internal/transport/httpserver"
	"family-lists-go/internal/transport/httpserver/handler"
	commonhandler "family-lists-go/internal/transport/httpserver/handler/common"
	listshandler "family-lists-go/internal/transport/httpserver/handler/lists"
	realtimehandler "family-lists-go/internal/transport/httpserver/handler/realtime"
	uploadshandler "family-lists-go/internal/transport/httpserver/handler/uploads"
	authmw "family-lists-go/internal/transport/httpserver/middleware"
	"family-lists-go/pkg/logger"
	"gorm.io/gorm"
)

type App struct {
	cfg        config.Config
	httpServer *http.Server
	db         *gorm.DB
	stopHub    context.CancelFunc
}

// Server is the wired HTTP surface of the lists service.
type Server struct {
	Handler http.Handler
	Hub     *realtime.Hub
	Lists   *listsdomain.Service
	Auth    *authmw.JWTAuth
}

func New(log logger.Logger) (*App, error) {
	log = logger.OrNop(log)

	log.Info("app: loading config")
	cfg, err := config.Load(log)
	if err != nil {
		return nil, err
	}

	var (
		repo   listsdomain.Repository
		dbConn *gorm.DB
	)
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("app: using in-memory storage, data is lost on restart")
		repo = inmemory.NewListsRepository()
	default:
		log.Info("app: initializing database")
		dbConn, err = db.NewPostgres(cfg.DB, log)
		if err != nil {
			return nil, err
		}
		log.Info("app: applying migrations")
		if err := db.Migrate(dbConn); err != nil {
			closeDB(dbConn)
			return nil, fmt.Errorf("migrate: %w", err)
		}
		repo = postgreslists.NewPostgres(dbConn)
	}

	log.Info("app: initializing router")
	server := NewServer(cfg, repo, log)

	hubCtx, stopHub := context.WithCancel(context.Background())
	go server.Hub.Run(hubCtx)

	log.Info("app: initializing http server")
	srv := httpserver.New(cfg, server.Handler)

	return &App{
		cfg:        cfg,
		httpServer: srv,
		db:         dbConn,
		stopHub:    stopHub,
	}, nil
}

// NewServer wires the service, realtime hub and router over repo. The caller
// runs the hub.
func NewServer(cfg config.Config, repo listsdomain.Repository, log logger.Logger) *Server {
	log = logger.OrNop(log)

	var service *listsdomain.Service
	hub := realtime.NewHub(log.With("component", "realtime"), realtime.Options{
		AllowedOrigins: cfg.CORSOrigins,
		CanView: func(ctx context.Context, userID, listID string) bool {
			_, err := service.GetList(ctx, policy.Actor{ID: userID}, listID)
			return err == nil
		},
	})
	service = listsdomain.NewService(repo, listsdomain.Options{
		Cache:    inmemory.NewInMemoryPublicListsCache(),
		CacheTTL: cfg.PublicListsCacheTTL,
		Notifier: hub,
	})

	auth := authmw.NewJWTAuth(cfg.Auth, log)
	handlers := handler.New(
		commonhandler.New(log),
		listshandler.New(service, log),
		uploadshandler.New(cfg.Uploads.Dir, cfg.Uploads.MaxBytes, cfg.PublicURL, log),
		realtimehandler.New(hub, log),
	)

	return &Server{
		Handler: httpserver.NewRouter(cfg, handlers, auth),
		Hub:     hub,
		Lists:   service,
		Auth:    auth,
	}
}

func (a *App) HTTPServer() *http.Server {
	return a.httpServer
}

func (a *App) Close() error {
	if a.stopHub != nil {
		a.stopHub()
	}
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func closeDB(conn *gorm.DB) {
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
