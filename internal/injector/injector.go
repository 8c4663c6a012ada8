//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/ironcore/internal/config"
	"github.com/zeusync/ironcore/internal/core/observability/log"
	"github.com/zeusync/ironcore/internal/engine"
)

func ProvideLogger(level log.Level) *log.Logger {
	wire.Build(log.New)
	return nil
}

func InitializeEngine(cfg config.Config, level log.Level) (*engine.Engine, func(), error) {
	wire.Build(
		log.New,
		wire.Bind(new(log.Log), new(*log.Logger)),
		engine.ProviderSet,
	)
	return nil, nil, nil
}
