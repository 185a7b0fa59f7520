package notifier

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/weijianfa/ApolloOracle/internal/config"
)

// Module exposes notifier client implementation to fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	return NewHTTPClient(p.Config.NotifierAddress, p.Config.NotifierToken, p.Logger)
}
