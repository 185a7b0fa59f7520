package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/weijianfa/ApolloOracle/internal/config"
	"github.com/weijianfa/ApolloOracle/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewOrderFacade,
		newHTTPServer,
		newFulfillmentProcessor,
	),
	fx.Invoke(
		bindQueue,
		registerLifecycle,
	),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type workerParams struct {
	fx.In

	Facade *OrderFacade
	Config *config.Config
	Logger *slog.Logger
}

func newFulfillmentProcessor(p workerParams) *worker.FulfillmentProcessor {
	return worker.NewFulfillmentProcessor(
		p.Facade,
		p.Config.RecoveryInterval,
		p.Config.RecoveryBatch,
		p.Config.WorkerPoolSize,
		p.Logger,
	)
}

func bindQueue(facade *OrderFacade, processor *worker.FulfillmentProcessor) {
	facade.AttachQueue(processor)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Worker     *worker.FulfillmentProcessor
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting apollo", slog.String("addr", p.Server.Addr))
			p.Worker.Start(ctx)
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			// The server goes first so no webhook can enqueue into a
			// worker that is already draining.
			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Worker.Stop()
			p.Logger.Info("apollo stopped")
			return nil
		},
	})
}
