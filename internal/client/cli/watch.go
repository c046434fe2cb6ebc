package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iudanet/mapsync/internal/models"
	"github.com/iudanet/mapsync/pkg/api"
)

// RunWatch streams live map activity to the terminal until the context is
// cancelled. It only subscribes; the sync manager keeps reconciling the
// cache in the background as usual.
func (c *Cli) RunWatch(ctx context.Context) error {
	if !c.conn.Connected() {
		return fmt.Errorf("watch requires a server connection")
	}

	c.io.Println("Watching live map activity. Press Ctrl+C to stop.")
	c.io.Println()

	c.conn.On(api.EventUsersUpdated, func(data json.RawMessage) {
		var users []api.PresenceEntry
		if err := json.Unmarshal(data, &users); err != nil {
			return
		}
		c.io.Printf("[presence] %d user(s) online:", len(users))
		for _, u := range users {
			suffix := ""
			if u.Activity != nil {
				suffix = fmt.Sprintf(" (%s)", u.Activity.Type)
			}
			c.io.Printf(" %s%s", u.Username, suffix)
		}
		c.io.Println()
	})

	c.conn.On(api.EventDrawingUpdate, func(data json.RawMessage) {
		var update api.DrawingUpdate
		if err := json.Unmarshal(data, &update); err != nil {
			return
		}
		state := "drawing"
		if update.IsCompleted {
			state = "completed a drawing with"
		}
		c.io.Printf("[drawing] %s %s %d point(s)\n", update.Username, state, len(update.Points))
	})

	c.conn.On(api.EventDrawingEnded, func(data json.RawMessage) {
		var ended api.DrawingEnded
		if err := json.Unmarshal(data, &ended); err != nil {
			return
		}
		c.io.Printf("[drawing] user %s stopped drawing\n", ended.UserID)
	})

	c.conn.On(api.EventPolygonEditing, func(data json.RawMessage) {
		var editing api.PolygonEditing
		if err := json.Unmarshal(data, &editing); err != nil {
			return
		}
		c.io.Printf("[editing] %s %sed editing polygon %d\n",
			editing.Username, editing.Action, editing.PolygonID)
	})

	c.conn.On(api.EventPolygonSaved, func(data json.RawMessage) {
		var polygon models.Polygon
		if err := json.Unmarshal(data, &polygon); err != nil {
			return
		}
		c.io.Printf("[polygon] saved %d: %s (%.2f km²)\n", polygon.ID, polygon.Name, polygon.SizeKm2)
	})

	c.conn.On(api.EventPolygonDeleted, func(data json.RawMessage) {
		var id int64
		if err := json.Unmarshal(data, &id); err != nil {
			return
		}
		c.io.Printf("[polygon] deleted %d\n", id)
	})

	c.conn.On(api.EventLayerCreated, func(data json.RawMessage) {
		var layer models.Layer
		if err := json.Unmarshal(data, &layer); err != nil {
			return
		}
		c.io.Printf("[layer] created %d: %s\n", layer.ID, layer.Name)
	})

	c.conn.On(api.EventLayerDeleted, func(data json.RawMessage) {
		var id int64
		if err := json.Unmarshal(data, &id); err != nil {
			return
		}
		c.io.Printf("[layer] deleted %d\n", id)
	})

	<-ctx.Done()
	c.io.Println()
	c.io.Println("Stopped watching.")
	return nil
}
