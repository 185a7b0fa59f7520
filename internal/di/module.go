package di

import (
	"go.uber.org/fx"

	"github.com/weijianfa/ApolloOracle/internal/adapter/cache"
	"github.com/weijianfa/ApolloOracle/internal/adapter/enrichment"
	"github.com/weijianfa/ApolloOracle/internal/adapter/generation"
	"github.com/weijianfa/ApolloOracle/internal/adapter/notifier"
	"github.com/weijianfa/ApolloOracle/internal/adapter/payment"
	"github.com/weijianfa/ApolloOracle/internal/app"
	"github.com/weijianfa/ApolloOracle/internal/config"
	"github.com/weijianfa/ApolloOracle/internal/logger"
	"github.com/weijianfa/ApolloOracle/internal/pkg/signature"
	"github.com/weijianfa/ApolloOracle/internal/server/http/handlers"
	"github.com/weijianfa/ApolloOracle/internal/server/http/router"
	"github.com/weijianfa/ApolloOracle/internal/storage/postgres"
	"github.com/weijianfa/ApolloOracle/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		signature.Module,
		postgres.Module,
		cache.Module,
		payment.Module,
		enrichment.Module,
		generation.Module,
		notifier.Module,
		usecase.Module,
		fx.Provide(func(c *cache.EventCache) usecase.DedupCache { return c }),
		fx.Provide(func(facade *app.OrderFacade) handlers.Facade { return facade }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
