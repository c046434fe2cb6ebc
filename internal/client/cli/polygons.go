package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/mapsync/internal/models"
)

func (c *Cli) RunPolygons(ctx context.Context, args []string) error {
	var (
		polygons []models.Polygon
		err      error
	)

	if len(args) > 0 {
		layerID, parseErr := parseID(args[0])
		if parseErr != nil {
			return parseErr
		}
		polygons, err = c.manager.PolygonsByLayer(ctx, layerID)
	} else {
		polygons, err = c.manager.Polygons(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to list polygons: %w", err)
	}

	if len(polygons) == 0 {
		c.io.Println("No polygons found.")
		return nil
	}

	c.io.Printf("Found %d polygon(s):\n\n", len(polygons))
	for _, polygon := range polygons {
		c.io.Printf("  %d. %s%s\n", polygon.ID, polygon.Name, localIDNote(polygon.ID))
		c.io.Printf("     Layer:  %d\n", polygon.LayerID)
		c.io.Printf("     Color:  %s\n", polygon.Color)
		c.io.Printf("     Area:   %.2f km²\n", polygon.SizeKm2)
		c.io.Printf("     Points: %d\n", len(polygon.Coordinates))
	}
	return nil
}

func (c *Cli) RunCreatePolygon(ctx context.Context, args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("usage: mapsync create-polygon <layerId> <name> <color> <coords>")
	}

	layerID, err := parseID(args[0])
	if err != nil {
		return err
	}
	coords, err := parseCoordinates(args[3])
	if err != nil {
		return err
	}

	polygon, err := c.manager.CreatePolygon(ctx, models.PolygonInput{
		LayerID:     layerID,
		Name:        args[1],
		Color:       args[2],
		Coordinates: coords,
	})
	if err != nil {
		return fmt.Errorf("failed to create polygon: %w", err)
	}

	c.io.Printf("Created polygon %d: %s (%.2f km²)%s\n",
		polygon.ID, polygon.Name, polygon.SizeKm2, localIDNote(polygon.ID))
	if polygon.ID < 0 {
		c.io.Println("Offline: the polygon exists only in the local cache.")
	}
	return nil
}

func (c *Cli) RunUpdatePolygon(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: mapsync update-polygon <id> <name> [color] [coords]")
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	updates := models.PolygonUpdates{Name: &args[1]}
	if len(args) > 2 {
		updates.Color = &args[2]
	}
	if len(args) > 3 {
		coords, err := parseCoordinates(args[3])
		if err != nil {
			return err
		}
		updates.Coordinates = coords
	}

	polygon, err := c.manager.UpdatePolygon(ctx, id, updates)
	if err != nil {
		return fmt.Errorf("failed to update polygon: %w", err)
	}

	c.io.Printf("Updated polygon %d: %s (%.2f km²)%s\n",
		polygon.ID, polygon.Name, polygon.SizeKm2, localIDNote(polygon.ID))
	return nil
}

func (c *Cli) RunDeletePolygon(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing polygon id. Usage: mapsync delete-polygon <id>")
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	if err := c.manager.DeletePolygon(ctx, id); err != nil {
		return fmt.Errorf("failed to delete polygon: %w", err)
	}

	c.io.Printf("Deleted polygon %d\n", id)
	return nil
}

func (c *Cli) RunArea(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing coordinates. Usage: mapsync area <coords>")
	}

	coords, err := parseCoordinates(args[0])
	if err != nil {
		return err
	}

	result, err := c.manager.CalculateArea(ctx, coords)
	if err != nil {
		return fmt.Errorf("failed to calculate area: %w", err)
	}

	c.io.Printf("Area: %.2f %s (%.4f km²)\n", result.AreaValue, result.AreaUnit, result.SizeKm2)
	return nil
}
