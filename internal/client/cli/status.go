package cli

import (
	"context"
	"fmt"
)

func (c *Cli) RunStatus(ctx context.Context) error {
	c.io.Println("=== MapSync Status ===")
	c.io.Println()

	if c.conn.Connected() {
		c.io.Println("Connection: online")
	} else {
		c.io.Println("Connection: offline")
	}
	c.io.Printf("Sync state: %s\n", c.manager.State())

	layers, err := c.manager.Layers(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}
	polygons, err := c.manager.Polygons(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}

	localOnly := 0
	for _, p := range polygons {
		if p.ID < 0 {
			localOnly++
		}
	}
	for _, l := range layers {
		if l.ID < 0 {
			localOnly++
		}
	}

	c.io.Println()
	c.io.Printf("Cached layers:   %d\n", len(layers))
	c.io.Printf("Cached polygons: %d\n", len(polygons))
	if localOnly > 0 {
		c.io.Printf("Local-only entities (offline creations): %d\n", localOnly)
	}
	return nil
}
