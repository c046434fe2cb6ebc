package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/iudanet/mapsync/internal/models"
)

// parseID parses a decimal entity id argument. Negative ids are accepted;
// they name offline-created entities.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// parseCoordinates decodes a JSON array of [lng, lat] pairs.
func parseCoordinates(arg string) (models.Coordinates, error) {
	var coords models.Coordinates
	if err := json.Unmarshal([]byte(arg), &coords); err != nil {
		return nil, fmt.Errorf("invalid coordinates, expected JSON like [[lng,lat],...]: %w", err)
	}
	return coords, nil
}

// confirm asks a yes/no question when stdin is a terminal. Non-interactive
// runs proceed without asking.
func (c *Cli) confirm(prompt string) (bool, error) {
	if !c.io.IsInteractive() {
		return true, nil
	}
	answer, err := c.io.ReadInput(prompt + " [y/N]: ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

// localIDNote marks provisional offline ids in listings.
func localIDNote(id int64) string {
	if id < 0 {
		return " (local only)"
	}
	return ""
}
