package usecase

import (
	"go.uber.org/fx"

	"github.com/weijianfa/ApolloOracle/internal/config"
)

// Module provides core business use cases to the fx container.
var Module = fx.Options(
	fx.Provide(
		NewOrderUseCase,
		NewWebhookUseCase,
		NewFulfillmentUseCase,
		newFulfillmentConfig,
	),
)

func newFulfillmentConfig(cfg *config.Config) FulfillmentConfig {
	return FulfillmentConfig{
		RetryAttempts:  cfg.RetryAttempts,
		RetryBaseDelay: cfg.RetryBaseDelay,
		CallTimeout:    cfg.CallTimeout,
		NotifyAttempts: cfg.NotifyAttempts,
		StuckThreshold: cfg.StuckThreshold,
		PaymentTimeout: cfg.PaymentTimeout,
	}
}
