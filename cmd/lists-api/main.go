package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"family-lists-go/internal/app"
	"family-lists-go/internal/config"
	authmw "family-lists-go/internal/transport/httpserver/middleware"
	"family-lists-go/pkg/logger"
)

func main() {
	log := logger.NewFromEnv()

	if len(os.Args) > 1 && os.Args[1] == "token" {
		os.Exit(issueToken(log, os.Args[2:]))
	}

	log.Info("lists-api: starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(log)
	if err != nil {
		log.Critical("lists-api: init failed", "err", err)
		os.Exit(1)
	}

	srv := application.HTTPServer()
	log.Info("http: listening", "addr", srv.Addr)

	serverErrCh := make(chan error, 1)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("lists-api: shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			log.Critical("http: server failed", "addr", srv.Addr, "err", err)
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("http: graceful shutdown failed", "err", err)
		exitCode = 1
	}

	if err := application.Close(); err != nil {
		log.Error("lists-api: close failed", "err", err)
		exitCode = 1
	}

	if exitCode == 0 {
		log.Info("lists-api: stopped")
		return
	}

	os.Exit(exitCode)
}

// issueToken prints a bearer token for local development:
//
//	lists-api token <user-id> [name]
func issueToken(log logger.Logger, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: lists-api token <user-id> [name]")
		return 2
	}
	cfg, err := config.Load(log)
	if err != nil {
		log.Critical("lists-api: load config failed", "err", err)
		return 1
	}

	user := authmw.User{ID: args[0]}
	if len(args) > 1 {
		user.Name = args[1]
	}
	token, err := authmw.NewJWTAuth(cfg.Auth, log).IssueToken(user)
	if err != nil {
		log.Critical("lists-api: issue token failed", "err", err)
		return 1
	}
	fmt.Println(token)
	return 0
}
