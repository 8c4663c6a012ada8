package engine

import (
	"github.com/google/wire"

	"github.com/zeusync/ironcore/internal/config"
	"github.com/zeusync/ironcore/internal/core/observability/log"
)

// ProviderSet builds an Engine for wire injectors.
var ProviderSet = wire.NewSet(Provide)

// Provide builds an engine and a cleanup func that closes it.
func Provide(cfg config.Config, logger log.Log) (*Engine, func(), error) {
	e, err := New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return e, func() { _ = e.Close() }, nil
}
