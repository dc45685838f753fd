//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"bookgraph/infrastructure/config"
)

// InitializeContainer wires the full application
func InitializeContainer(cfg *config.Config) (*Container, error) {
	wire.Build(
		ProvideLogger,
		ProvideFS,
		ProvideKeyValue,
		ProvideSnapshotStore,
		ProvideWorkspace,
		ProvideGraphBuilder,
		ProvideGateway,
		ProvideExporter,
		ProvideImporter,
		ProvideRouter,
		wire.Struct(new(Container), "*"),
	)
	return nil, nil
}
