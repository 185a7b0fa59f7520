package payment

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/weijianfa/ApolloOracle/internal/config"
	"github.com/weijianfa/ApolloOracle/internal/pkg/signature"
)

// Module exposes payment client implementation to fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config   *config.Config
	Verifier *signature.Verifier
	Logger   *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	return NewHTTPClient(p.Config.PaymentAPIAddress, p.Config.PaymentAPIKey, p.Config.PaymentMerchantID, p.Verifier, p.Logger)
}
