// Package main запускает HTTP-сервер книжного магазина.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Ilyatxt/bookshop/internal/config"
	"github.com/Ilyatxt/bookshop/internal/facade"
	"github.com/Ilyatxt/bookshop/internal/handler"
	"github.com/Ilyatxt/bookshop/internal/middleware"
	"github.com/Ilyatxt/bookshop/internal/pool"
	"github.com/Ilyatxt/bookshop/internal/repository"
	"github.com/Ilyatxt/bookshop/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := repository.Migrate(ctx, cfg.DatabaseURI); err != nil {
		sugar.Fatalw("database migration error", "error", err.Error())
	}

	factory, err := pool.PgxFactory(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database configuration error", "error", err.Error())
	}

	connPool, err := pool.New(ctx, factory, cfg.PoolSize, cfg.PoolAcquireTimeout, logger)
	if err != nil {
		sugar.Fatalw("connection pool initialization error", "error", err.Error())
	}

	db := repository.NewDB(connPool)

	orderService := service.NewOrderService(repository.NewOrderStore(), repository.NewEntryStore())
	entryService := service.NewEntryService(repository.NewEntryStore())
	bookService := service.NewBookService(repository.NewBookStore())
	userService := service.NewUserService(db, repository.NewUserStore())

	orderFacade := facade.NewOrderFacade(db, orderService, entryService, bookService, userService, logger)

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(orderFacade, userService, logger, authMiddleware)

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: h.SetupRouter(),
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting bookshop server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		connPool.CloseAll(shutdownCtx)
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
