package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/kmccann/secblog/blog/application"
	"github.com/kmccann/secblog/blog/contentapi"
	"github.com/kmccann/secblog/blog/domain"
	"github.com/kmccann/secblog/blog/persistence"
	"github.com/kmccann/secblog/internal/auth"
	"github.com/kmccann/secblog/internal/config"
	"github.com/kmccann/secblog/internal/middleware"
	"github.com/kmccann/secblog/internal/rest"
	"github.com/kmccann/secblog/newsletter"
	"github.com/kmccann/secblog/shared/db/sqlite"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	posts, categories, tags, cleanup, err := buildRepositories(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage backend")
	}
	defer cleanup()

	blogService := application.NewBlogService(posts, categories, tags)

	var mailer newsletter.Mailer = newsletter.LogMailer{}
	if cfg.SMTP.Configured() {
		mailer = newsletter.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	}
	newsletterService := newsletter.NewService(newsletter.NewMemoryStore(), mailer)
	defer func() {
		if err := newsletterService.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to gracefully close newsletter service")
		}
	}()

	verifier, err := auth.NewStaticVerifier(cfg.Auth.Tokens)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build token verifier")
	}

	router := gin.New()
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.CustomRecovery(middleware.HandlePanics()))

	rest.NewAPI(router, blogService, newsletterService, verifier)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("backend", cfg.Storage.Backend).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to shutdown server")
	}

	log.Info().Msg("Server stopped")
}

// buildRepositories wires the storage backend selected in config. Both
// backends satisfy the same repository interfaces, so everything above this
// point is identical either way.
func buildRepositories(cfg *config.Config) (domain.PostRepository, domain.CategoryRepository, domain.TagRepository, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendContentAPI:
		client := contentapi.NewClient(cfg.ContentAPI.BaseURL, cfg.ContentAPI.Token)
		repo := contentapi.NewRepository(client)
		return repo, repo, repo, func() {}, nil

	default:
		database := sqlite.NewSQLiteDB(&sqlite.Config{Path: cfg.Storage.SQLitePath})
		if err := database.Connect(); err != nil {
			return nil, nil, nil, nil, err
		}
		cleanup := func() {
			if err := database.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close database")
			}
		}
		conn := database.DB()
		return persistence.NewPostRepository(conn),
			persistence.NewCategoryRepository(conn),
			persistence.NewTagRepository(conn),
			cleanup, nil
	}
}
