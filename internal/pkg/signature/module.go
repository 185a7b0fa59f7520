package signature

import (
	"go.uber.org/fx"

	"github.com/weijianfa/ApolloOracle/internal/config"
)

// Module wires the webhook signature verifier.
var Module = fx.Provide(newVerifier)

func newVerifier(cfg *config.Config) *Verifier {
	return NewVerifier(cfg.WebhookSecret)
}
