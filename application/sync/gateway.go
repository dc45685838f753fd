// Package sync pushes the workspace dataset to a remote gateway and
// restores it back. All remote calls run through a circuit breaker so
// a dead gateway degrades to local-only operation instead of hanging
// every save.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"bookgraph/application/services"
	"bookgraph/domain/core/entities"
	apperrors "bookgraph/pkg/errors"
)

// Notifier receives user-facing outcomes of sync operations.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Success(string) {}
func (NopNotifier) Error(string)   {}

// SyncResult is the gateway's answer to a successful upload.
type SyncResult struct {
	Status string   `json:"status"`
	Saved  []string `json:"saved"`
}

type graphPayload struct {
	BooksMeta        map[string]entities.BookMeta     `json:"booksMeta,omitempty"`
	GraphConnections map[string][]entities.Connection `json:"graphConnections"`
}

// Gateway syncs a workspace against a remote endpoint.
type Gateway struct {
	endpoint  string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker
	workspace *services.Workspace
	notifier  Notifier
	logger    *zap.Logger
}

// NewGateway creates a gateway for the given endpoint. A nil notifier
// falls back to NopNotifier.
func NewGateway(endpoint string, timeout time.Duration, workspace *services.Workspace, notifier Notifier, logger *zap.Logger) *Gateway {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sync-gateway",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("sync breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &Gateway{
		endpoint:  endpoint,
		client:    &http.Client{Timeout: timeout},
		breaker:   breaker,
		workspace: workspace,
		notifier:  notifier,
		logger:    logger,
	}
}

func (g *Gateway) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	body, err := g.breaker.Execute(func() (interface{}, error) {
		var reqBody io.Reader
		if payload != nil {
			data, err := json.Marshal(payload)
			if err != nil {
				return nil, apperrors.Wrap(err, "encoding request")
			}
			reqBody = bytes.NewReader(data)
		}
		req, err := http.NewRequestWithContext(ctx, method, g.endpoint+path, reqBody)
		if err != nil {
			return nil, apperrors.Wrap(err, "building request")
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := g.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(data))
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return body.([]byte), nil
}

// SyncUp uploads the full dataset and notifies the user either way.
func (g *Gateway) SyncUp(ctx context.Context) (*SyncResult, error) {
	result, err := g.push(ctx)
	if err != nil {
		g.notifier.Error("sync failed")
		return nil, err
	}
	g.notifier.Success(fmt.Sprintf("synced %d files", len(result.Saved)))
	return result, nil
}

// SilentSyncUp uploads the dataset without user notifications, as on
// an autosave. Failures are logged and returned but never surfaced.
func (g *Gateway) SilentSyncUp(ctx context.Context) (*SyncResult, error) {
	result, err := g.push(ctx)
	if err != nil {
		g.logger.Debug("silent sync failed", zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (g *Gateway) push(ctx context.Context) (*SyncResult, error) {
	ds := g.workspace.Snapshot()
	payload := entities.Dataset{
		EntriesByTopic: ds.EntriesByTopic,
		CurrentTopic:   ds.CurrentTopic,
		OrderCounters:  ds.OrderCounters,
		BooksMeta:      ds.BooksMeta,
	}

	data, err := g.do(ctx, http.MethodPost, "/sync", payload)
	if err != nil {
		return nil, apperrors.NewSyncError("uploading dataset", err)
	}
	var result SyncResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, apperrors.NewSyncError("decoding sync response", err)
	}
	g.logger.Info("dataset synced", zap.Int("files", len(result.Saved)))
	return &result, nil
}

// RestoreDown downloads the remote dataset and replaces local state.
// The response is fully parsed before anything local is overwritten,
// so a malformed payload leaves the workspace untouched.
func (g *Gateway) RestoreDown(ctx context.Context) error {
	data, err := g.do(ctx, http.MethodGet, "/restore", nil)
	if err != nil {
		g.notifier.Error("restore failed")
		return apperrors.NewRestoreError("downloading dataset", err)
	}

	var ds entities.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		g.notifier.Error("restore failed")
		return apperrors.NewRestoreError("decoding dataset", err)
	}
	if ds.EntriesByTopic == nil {
		g.notifier.Error("restore failed")
		return apperrors.NewRestoreError("dataset has no entries", nil)
	}

	if err := g.workspace.ApplyDataset(&ds); err != nil {
		g.notifier.Error("restore failed")
		return err
	}
	g.notifier.Success("restore complete")
	g.logger.Info("dataset restored", zap.Int("topics", len(ds.EntriesByTopic)))
	return nil
}

// SyncGraph uploads the full connection map along with the book
// metadata it references.
func (g *Gateway) SyncGraph(ctx context.Context) error {
	payload := graphPayload{
		BooksMeta:        g.workspace.Books(),
		GraphConnections: g.workspace.AllConnections(),
	}
	if _, err := g.do(ctx, http.MethodPost, "/sync_graph", payload); err != nil {
		return apperrors.NewSyncError("uploading graph", err)
	}
	return nil
}

// RestoreGraph downloads the remote connection map and replaces the
// local one.
func (g *Gateway) RestoreGraph(ctx context.Context) error {
	data, err := g.do(ctx, http.MethodGet, "/restore_graph", nil)
	if err != nil {
		return apperrors.NewRestoreError("downloading graph", err)
	}
	var payload graphPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return apperrors.NewRestoreError("decoding graph", err)
	}
	if payload.GraphConnections == nil {
		payload.GraphConnections = map[string][]entities.Connection{}
	}
	return g.workspace.ReplaceConnections(payload.GraphConnections)
}
