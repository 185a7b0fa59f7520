package generation

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/weijianfa/ApolloOracle/internal/config"
)

// Module exposes generation client implementation to fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	return NewHTTPClient(p.Config.GenerationAddress, p.Config.GenerationAPIKey, p.Config.GenerationModel, p.Logger)
}
