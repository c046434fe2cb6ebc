// Package sync keeps the local cache and the server consistent. Every
// mutation runs through a single FIFO worker, server round-trip included,
// so exactly one operation is in flight at a time: local edits and server
// pushes apply in submission order and the cache never sees interleaved
// partial writes.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/mapsync/internal/client/cache"
	"github.com/iudanet/mapsync/internal/geo"
	"github.com/iudanet/mapsync/internal/models"
	"github.com/iudanet/mapsync/pkg/api"
)

//go:generate moq -out transport_mock.go . Transport

// Transport is the subset of the websocket client the manager needs.
type Transport interface {
	Connected() bool
	Emit(event string, v any) error
	Request(ctx context.Context, event string, v any) (json.RawMessage, error)
	On(event string, fn func(json.RawMessage))
	OnDisconnect(fn func(error))
}

// State is the sync lifecycle of the manager.
type State string

const (
	// StateIdle: no initial sync attempted yet.
	StateIdle State = "idle"
	// StateSyncing: connected (or reconnected) but the dataset is not
	// confirmed current.
	StateSyncing State = "syncing"
	// StateSynced: cache seeded from the server.
	StateSynced State = "synced"
)

const (
	initialSyncTimeout = 10 * time.Second
	opQueueSize        = 256
)

type operation struct {
	name string
	run  func(ctx context.Context)
}

// syncAttempt is one shared InitialSync round. Waiters block on done and
// then read err; the closing goroutine writes err first, so the channel
// close publishes it.
type syncAttempt struct {
	done chan struct{}
	err  error
}

// Manager coordinates the cache, the transport and the operation queue.
type Manager struct {
	store  cache.Store
	conn   Transport
	logger *slog.Logger

	ops  chan operation
	stop chan struct{}
	wg   sync.WaitGroup

	mu       sync.Mutex
	state    State
	inflight *syncAttempt
}

func NewManager(store cache.Store, conn Transport, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		conn:   conn,
		logger: logger,
		ops:    make(chan operation, opQueueSize),
		stop:   make(chan struct{}),
		state:  StateIdle,
	}
}

// Start subscribes to server pushes and launches the worker. Call once.
func (m *Manager) Start(ctx context.Context) {
	m.registerPushHandlers()

	m.conn.OnDisconnect(func(err error) {
		m.mu.Lock()
		if m.state == StateSynced {
			m.state = StateSyncing
		}
		m.mu.Unlock()
		if err != nil {
			m.logger.Warn("connection lost", "error", err)
		}
	})

	m.wg.Add(1)
	go m.worker(ctx)
}

// Stop drains the worker. In-flight operations finish; queued ones are
// discarded.
func (m *Manager) Stop() {
	close(m.stop)
	m.wg.Wait()
}

// State returns the current sync state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		case op := <-m.ops:
			op.run(ctx)
		}
	}
}

// submit enqueues an operation and waits for it to settle. The worker runs
// one operation at a time, so a slow server round-trip in an earlier
// operation delays everything submitted after it; that is what keeps the
// cache in submission order.
func (m *Manager) submit(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	errc := make(chan error, 1)
	op := operation{name: name, run: func(ctx context.Context) { errc <- fn(ctx) }}

	select {
	case m.ops <- op:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stop:
		return fmt.Errorf("sync manager stopped")
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post enqueues a fire-and-forget operation. Used by push handlers running
// on the transport read loop; a full queue drops the event rather than
// stalling the socket.
func (m *Manager) post(name string, fn func(ctx context.Context) error) {
	op := operation{name: name, run: func(ctx context.Context) {
		if err := fn(ctx); err != nil {
			m.logger.Warn("failed to apply server push", "op", name, "error", err)
		}
	}}

	select {
	case m.ops <- op:
	default:
		m.logger.Warn("operation queue full, dropping server push", "op", name)
	}
}

// InitialSync pulls the full dataset and replaces the cache with it.
// Concurrent callers share one in-flight request and its outcome. When the
// server does not answer within the timeout the cache is left as is and the
// state stays syncing; offline reads keep working from the stale cache.
func (m *Manager) InitialSync(ctx context.Context) error {
	m.mu.Lock()
	if m.inflight != nil {
		attempt := m.inflight
		m.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	attempt := &syncAttempt{done: make(chan struct{})}
	m.inflight = attempt
	m.state = StateSyncing
	m.mu.Unlock()

	attempt.err = m.runInitialSync(ctx)

	m.mu.Lock()
	m.inflight = nil
	m.mu.Unlock()
	close(attempt.done)

	return attempt.err
}

func (m *Manager) runInitialSync(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, initialSyncTimeout)
	defer cancel()

	data, err := m.conn.Request(reqCtx, api.EventRequestInitialData, struct{}{})
	if err != nil {
		m.logger.Warn("initial sync failed, keeping cached data", "error", err)
		return fmt.Errorf("initial sync: %w", err)
	}

	var initial api.InitialData
	if err := json.Unmarshal(data, &initial); err != nil {
		return fmt.Errorf("failed to decode initial data: %w", err)
	}

	err = m.submit(ctx, "initial-sync", func(ctx context.Context) error {
		return m.store.ReplaceAll(ctx, initial.Layers, initial.Polygons)
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.state = StateSynced
	m.mu.Unlock()

	m.logger.Info("initial sync completed",
		"layers", len(initial.Layers), "polygons", len(initial.Polygons))
	return nil
}

// registerPushHandlers reconciles server broadcasts into the cache.
// Everything is an upsert or delete by id, so replays and out-of-order
// arrivals converge.
func (m *Manager) registerPushHandlers() {
	upsertLayer := func(data json.RawMessage) {
		var layer models.Layer
		if err := json.Unmarshal(data, &layer); err != nil {
			m.logger.Warn("malformed layer push", "error", err)
			return
		}
		m.post("upsert-layer", func(ctx context.Context) error {
			return m.store.UpsertLayer(ctx, layer)
		})
	}
	m.conn.On(api.EventLayerCreated, upsertLayer)
	m.conn.On(api.EventLayerUpdated, upsertLayer)

	m.conn.On(api.EventLayerDeleted, func(data json.RawMessage) {
		var id int64
		if err := json.Unmarshal(data, &id); err != nil {
			m.logger.Warn("malformed layer delete push", "error", err)
			return
		}
		m.post("delete-layer", func(ctx context.Context) error {
			return m.store.DeleteLayer(ctx, id)
		})
	})

	upsertPolygon := func(data json.RawMessage) {
		var polygon models.Polygon
		if err := json.Unmarshal(data, &polygon); err != nil {
			m.logger.Warn("malformed polygon push", "error", err)
			return
		}
		m.post("upsert-polygon", func(ctx context.Context) error {
			return m.store.UpsertPolygon(ctx, polygon)
		})
	}
	m.conn.On(api.EventPolygonSaved, upsertPolygon)
	m.conn.On(api.EventPolygonUpdated, upsertPolygon)

	m.conn.On(api.EventPolygonDeleted, func(data json.RawMessage) {
		var id int64
		if err := json.Unmarshal(data, &id); err != nil {
			m.logger.Warn("malformed polygon delete push", "error", err)
			return
		}
		m.post("delete-polygon", func(ctx context.Context) error {
			return m.store.DeletePolygon(ctx, id)
		})
	})
}

// Layers reads from the cache; it never touches the network.
func (m *Manager) Layers(ctx context.Context) ([]models.Layer, error) {
	return m.store.Layers(ctx)
}

// Polygons reads from the cache.
func (m *Manager) Polygons(ctx context.Context) ([]models.Polygon, error) {
	return m.store.Polygons(ctx)
}

// PolygonsByLayer reads from the cache.
func (m *Manager) PolygonsByLayer(ctx context.Context, layerID int64) ([]models.Polygon, error) {
	return m.store.PolygonsByLayer(ctx, layerID)
}

// CreateLayer creates a layer on the server when online, or a provisional
// local layer with a negative id when offline. Offline creations live only
// in this cache; they are not replayed to the server on reconnect. The
// online/offline choice is made inside the queued operation, when it
// actually runs.
func (m *Manager) CreateLayer(ctx context.Context, name string) (*models.Layer, error) {
	if name == "" {
		return nil, fmt.Errorf("layer name is required")
	}

	var layer models.Layer
	err := m.submit(ctx, "create-layer", func(ctx context.Context) error {
		if m.conn.Connected() {
			data, err := m.conn.Request(ctx, api.EventCreateLayer, api.LayerInput{Name: name})
			if err != nil {
				return err
			}
			var resp api.LayerResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				return fmt.Errorf("failed to decode layer: %w", err)
			}
			if resp.Layer == nil {
				return fmt.Errorf("server returned no layer")
			}
			layer = *resp.Layer
			return m.store.UpsertLayer(ctx, layer)
		}

		id, err := m.store.NextLocalID(ctx)
		if err != nil {
			return fmt.Errorf("failed to allocate local id: %w", err)
		}
		now := time.Now()
		layer = models.Layer{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}
		return m.store.UpsertLayer(ctx, layer)
	})
	if err != nil {
		return nil, err
	}
	return &layer, nil
}

// RenameLayer renames a layer, on the server when online or locally when
// offline.
func (m *Manager) RenameLayer(ctx context.Context, id int64, name string) (*models.Layer, error) {
	if name == "" {
		return nil, fmt.Errorf("layer name is required")
	}

	var renamed models.Layer
	err := m.submit(ctx, "rename-layer", func(ctx context.Context) error {
		if m.conn.Connected() {
			req := api.UpdateLayerRequest{LayerID: id}
			req.Updates.Name = name

			data, err := m.conn.Request(ctx, api.EventUpdateLayer, req)
			if err != nil {
				return err
			}
			var resp api.LayerResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				return fmt.Errorf("failed to decode layer: %w", err)
			}
			if resp.Layer == nil {
				return fmt.Errorf("server returned no layer")
			}
			renamed = *resp.Layer
			return m.store.UpsertLayer(ctx, renamed)
		}

		layer, err := m.store.Layer(ctx, id)
		if err != nil {
			return err
		}
		layer.Name = name
		layer.UpdatedAt = time.Now()
		renamed = *layer
		return m.store.UpsertLayer(ctx, renamed)
	})
	if err != nil {
		return nil, err
	}
	return &renamed, nil
}

// DeleteLayer removes a layer and its polygons. Online the server is asked
// first; the local cascade runs only after it agrees.
func (m *Manager) DeleteLayer(ctx context.Context, id int64) error {
	return m.submit(ctx, "delete-layer", func(ctx context.Context) error {
		if m.conn.Connected() {
			if _, err := m.conn.Request(ctx, api.EventDeleteLayer, api.DeleteLayerRequest{LayerID: id}); err != nil {
				return err
			}
		}
		return m.store.DeleteLayer(ctx, id)
	})
}

// CreatePolygon saves a polygon on the server when online. Offline it is
// cached under a negative id with a locally computed area; like offline
// layers, it is not replayed to the server later.
func (m *Manager) CreatePolygon(ctx context.Context, input models.PolygonInput) (*models.Polygon, error) {
	var polygon models.Polygon
	err := m.submit(ctx, "create-polygon", func(ctx context.Context) error {
		if m.conn.Connected() {
			req := api.SavePolygonRequest{
				LayerID: input.LayerID,
				Name:    input.Name,
				Color:   input.Color,
				Points:  input.Coordinates,
				SizeKm2: input.SizeKm2,
			}
			data, err := m.conn.Request(ctx, api.EventSavePolygon, req)
			if err != nil {
				return err
			}
			var resp api.PolygonResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				return fmt.Errorf("failed to decode polygon: %w", err)
			}
			if resp.Polygon == nil {
				return fmt.Errorf("server returned no polygon")
			}
			polygon = *resp.Polygon
			return m.store.UpsertPolygon(ctx, polygon)
		}

		sizeKm2 := geo.SizeKm2(input.Coordinates)
		if input.SizeKm2 != nil {
			sizeKm2 = *input.SizeKm2
		}

		id, err := m.store.NextLocalID(ctx)
		if err != nil {
			return fmt.Errorf("failed to allocate local id: %w", err)
		}
		now := time.Now()
		polygon = models.Polygon{
			ID:          id,
			LayerID:     input.LayerID,
			Name:        input.Name,
			Color:       input.Color,
			Coordinates: input.Coordinates,
			SizeKm2:     sizeKm2,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return m.store.UpsertPolygon(ctx, polygon)
	})
	if err != nil {
		return nil, err
	}
	return &polygon, nil
}

// UpdatePolygon applies a partial update, on the server when online or to
// the cached copy when offline. An offline coordinate change without an
// explicit size recomputes the area locally, like the server would.
func (m *Manager) UpdatePolygon(ctx context.Context, id int64, updates models.PolygonUpdates) (*models.Polygon, error) {
	var polygon models.Polygon
	err := m.submit(ctx, "update-polygon", func(ctx context.Context) error {
		if m.conn.Connected() {
			req := api.UpdatePolygonRequest{PolygonID: id, Updates: updates}
			data, err := m.conn.Request(ctx, api.EventUpdatePolygon, req)
			if err != nil {
				return err
			}
			var resp api.PolygonResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				return fmt.Errorf("failed to decode polygon: %w", err)
			}
			if resp.Polygon == nil {
				return fmt.Errorf("server returned no polygon")
			}
			polygon = *resp.Polygon
			return m.store.UpsertPolygon(ctx, polygon)
		}

		cached, err := m.store.Polygon(ctx, id)
		if err != nil {
			return err
		}
		polygon = *cached
		if updates.LayerID != nil {
			polygon.LayerID = *updates.LayerID
		}
		if updates.Name != nil {
			polygon.Name = *updates.Name
		}
		if updates.Color != nil {
			polygon.Color = *updates.Color
		}
		if len(updates.Coordinates) > 0 {
			polygon.Coordinates = updates.Coordinates
			if updates.SizeKm2 == nil {
				polygon.SizeKm2 = geo.SizeKm2(updates.Coordinates)
			}
		}
		if updates.SizeKm2 != nil {
			polygon.SizeKm2 = *updates.SizeKm2
		}
		polygon.UpdatedAt = time.Now()
		return m.store.UpsertPolygon(ctx, polygon)
	})
	if err != nil {
		return nil, err
	}
	return &polygon, nil
}

// DeletePolygon removes a polygon.
func (m *Manager) DeletePolygon(ctx context.Context, id int64) error {
	return m.submit(ctx, "delete-polygon", func(ctx context.Context) error {
		if m.conn.Connected() {
			req := api.DeletePolygonRequest{PolygonID: api.FlexID(id)}
			if _, err := m.conn.Request(ctx, api.EventDeletePolygon, req); err != nil {
				return err
			}
		}
		return m.store.DeletePolygon(ctx, id)
	})
}

// CalculateArea asks the server for a ring's area when online and computes
// it locally otherwise. Both paths use the same geodesic model, so the
// numbers agree. Pure computation, no cache write: it does not go through
// the operation queue.
func (m *Manager) CalculateArea(ctx context.Context, coords models.Coordinates) (*api.AreaResponse, error) {
	if m.conn.Connected() {
		data, err := m.conn.Request(ctx, api.EventCalculateArea, api.CalculateAreaRequest{Coordinates: coords})
		if err != nil {
			return nil, err
		}
		var resp api.AreaResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode area: %w", err)
		}
		return &resp, nil
	}

	result, err := geo.PolygonArea(coords)
	if err != nil {
		return nil, err
	}
	return &api.AreaResponse{
		AreaValue: result.Value,
		AreaUnit:  result.Unit,
		SizeKm2:   result.SizeKm2(),
	}, nil
}
