//go:build wireinject
// +build wireinject

package di

import (
	"FinCast/pkg/config"
	"FinCast/pkg/server"

	"github.com/google/wire"
)

var serviceSet = wire.NewSet(
	ProvideLogger,
	ProvideRegistry,
	ProvideMetrics,

	// Infrastructure clients
	ProvideFetcher,
	ProvideStore,
	ProvideRedis,
	ProvideResultCache,
	ProvideKafkaProducer,
	ProvideEmitter,
	ProvideHub,

	// Use cases
	ProvidePipeline,
	ProvideBatch,
	ProvideAnalysis,
)

// InitializeServices wires the forecasting use cases for the CLI.
func InitializeServices(cfg *config.Config) (*Services, func(), error) {
	wire.Build(serviceSet, ProvideServices)
	return nil, nil, nil
}

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		serviceSet,
		ProvideQueue,
		ProvideJobs,
		ProvideScheduler,
		ProvideHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
