package cli

import (
	"context"
	"fmt"
)

func (c *Cli) RunLayers(ctx context.Context) error {
	layers, err := c.manager.Layers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list layers: %w", err)
	}

	if len(layers) == 0 {
		c.io.Println("No layers found.")
		c.io.Println()
		c.io.Println("Use 'mapsync create-layer <name>' to create one.")
		return nil
	}

	c.io.Printf("Found %d layer(s):\n\n", len(layers))
	for _, layer := range layers {
		c.io.Printf("  %d. %s%s\n", layer.ID, layer.Name, localIDNote(layer.ID))
		c.io.Printf("     Created: %s\n", layer.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func (c *Cli) RunCreateLayer(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing layer name. Usage: mapsync create-layer <name>")
	}

	layer, err := c.manager.CreateLayer(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to create layer: %w", err)
	}

	c.io.Printf("Created layer %d: %s%s\n", layer.ID, layer.Name, localIDNote(layer.ID))
	if layer.ID < 0 {
		c.io.Println("Offline: the layer exists only in the local cache.")
	}
	return nil
}

func (c *Cli) RunRenameLayer(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: mapsync rename-layer <id> <name>")
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	layer, err := c.manager.RenameLayer(ctx, id, args[1])
	if err != nil {
		return fmt.Errorf("failed to rename layer: %w", err)
	}

	c.io.Printf("Renamed layer %d to %s\n", layer.ID, layer.Name)
	return nil
}

func (c *Cli) RunDeleteLayer(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing layer id. Usage: mapsync delete-layer <id>")
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	ok, err := c.confirm(fmt.Sprintf("Delete layer %d and all of its polygons?", id))
	if err != nil {
		return err
	}
	if !ok {
		c.io.Println("Aborted.")
		return nil
	}

	if err := c.manager.DeleteLayer(ctx, id); err != nil {
		return fmt.Errorf("failed to delete layer: %w", err)
	}

	c.io.Printf("Deleted layer %d\n", id)
	return nil
}
