// Package di assembles the application object graph with google/wire.
package di

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"
	"go.uber.org/zap"

	"bookgraph/application/services"
	"bookgraph/application/sync"
	"bookgraph/application/transfer"
	"bookgraph/infrastructure/config"
	"bookgraph/infrastructure/persistence/abstractions"
	"bookgraph/infrastructure/persistence/blob"
	"bookgraph/infrastructure/persistence/snapshot"
	"bookgraph/interfaces/http/rest"
	"bookgraph/interfaces/http/rest/handlers"
)

// Container holds the wired application
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Workspace *services.Workspace
	Snapshots *snapshot.Store
	Gateway   *sync.Gateway
	Router    http.Handler
}

// ProvideLogger creates a zap logger for the configured environment
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideFS returns the OS-backed filesystem
func ProvideFS() hackpadfs.FS {
	return osfs.NewFS()
}

// fsPath converts a possibly relative OS path to a path valid on the
// root-mounted filesystem.
func fsPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(filepath.ToSlash(abs), "/"), nil
}

// ProvideKeyValue creates the record store under the data directory
func ProvideKeyValue(cfg *config.Config, fsys hackpadfs.FS) (abstractions.KeyValue, error) {
	dir, err := fsPath(filepath.Join(cfg.DataDir, "records"))
	if err != nil {
		return nil, err
	}
	return blob.NewKV(fsys, dir)
}

// ProvideSnapshotStore creates the server-side dataset store
func ProvideSnapshotStore(cfg *config.Config, fsys hackpadfs.FS) (*snapshot.Store, error) {
	dataDir, err := fsPath(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	backupsDir, err := fsPath(cfg.BackupsDir)
	if err != nil {
		return nil, err
	}
	return snapshot.NewStore(fsys, dataDir, backupsDir)
}

// ProvideWorkspace creates the workspace over the record store
func ProvideWorkspace(kv abstractions.KeyValue, logger *zap.Logger) (*services.Workspace, error) {
	return services.NewWorkspace(kv, logger)
}

// ProvideGraphBuilder creates the graph view builder
func ProvideGraphBuilder(workspace *services.Workspace, logger *zap.Logger) *services.GraphBuilder {
	return services.NewGraphBuilder(workspace, logger)
}

// ProvideGateway creates the remote sync gateway; it is nil when no
// endpoint is configured.
func ProvideGateway(cfg *config.Config, workspace *services.Workspace, logger *zap.Logger) *sync.Gateway {
	if cfg.SyncEndpoint == "" {
		return nil
	}
	return sync.NewGateway(cfg.SyncEndpoint, cfg.SyncTimeout, workspace, nil, logger)
}

// ProvideExporter creates the dataset exporter
func ProvideExporter(workspace *services.Workspace, logger *zap.Logger) *transfer.Exporter {
	return transfer.NewExporter(workspace, logger)
}

// ProvideImporter creates the dataset importer
func ProvideImporter(workspace *services.Workspace, logger *zap.Logger) *transfer.Importer {
	return transfer.NewImporter(workspace, logger)
}

// ProvideRouter builds the HTTP router
func ProvideRouter(
	cfg *config.Config,
	workspace *services.Workspace,
	builder *services.GraphBuilder,
	snapshots *snapshot.Store,
	exporter *transfer.Exporter,
	importer *transfer.Importer,
	logger *zap.Logger,
) http.Handler {
	dataset := handlers.NewDatasetHandler(workspace, snapshots, exporter, importer, logger)
	graph := handlers.NewGraphHandler(workspace, builder, snapshots, logger)
	imports := handlers.NewImportHandler(workspace, snapshots, importer, logger)
	return rest.NewRouter(cfg, dataset, graph, imports, logger)
}
