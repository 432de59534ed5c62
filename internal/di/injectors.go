//go:build wireinject
// +build wireinject

package di

import (
	"chathelper/internal"
	"chathelper/internal/controllers"
	"chathelper/internal/persist"
	"chathelper/internal/providers"
	"chathelper/internal/structures"

	wire "github.com/google/wire"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		persist.NewZstdCompressor,
		persist.NewFileStore,
		persist.NewScheduler,
		controllers.NewApiController,
		controllers.NewWSController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,

		wire.Bind(new(providers.StoreStats), new(persist.FileStoreInterface)),
		wire.Bind(new(controllers.ClientCounter), new(*controllers.WSController)),
	)

	return nil, nil
}
