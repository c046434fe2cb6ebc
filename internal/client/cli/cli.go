// Package cli implements the map client commands. Commands read from the
// local cache through the sync manager, so every one of them works offline;
// mutations go to the server first whenever the connection is up.
package cli

import (
	"fmt"

	"github.com/iudanet/mapsync/internal/client/iocli"
	"github.com/iudanet/mapsync/internal/client/sync"
)

// Cli bundles the dependencies the commands share.
type Cli struct {
	manager *sync.Manager
	conn    sync.Transport
	io      iocli.IO
}

func New(manager *sync.Manager, conn sync.Transport, io iocli.IO) *Cli {
	return &Cli{
		manager: manager,
		conn:    conn,
		io:      io,
	}
}

func PrintUsage() {
	fmt.Println("MapSync Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mapsync [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version          Show version information")
	fmt.Println("  --server URL       Server websocket URL (default: ws://localhost:8080/ws)")
	fmt.Println("  --db PATH          Path to local cache database (default: mapsync-client.db)")
	fmt.Println("  --username NAME    Display name announced to other users")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  status                                        Show connection and sync status")
	fmt.Println("  layers                                        List layers")
	fmt.Println("  create-layer <name>                           Create a layer")
	fmt.Println("  rename-layer <id> <name>                      Rename a layer")
	fmt.Println("  delete-layer <id>                             Delete a layer and its polygons")
	fmt.Println("  polygons [layerId]                            List polygons, optionally by layer")
	fmt.Println("  create-polygon <layerId> <name> <color> <coords>  Create a polygon")
	fmt.Println("  update-polygon <id> <name> [color] [coords]   Update a polygon")
	fmt.Println("  delete-polygon <id>                           Delete a polygon")
	fmt.Println("  area <coords>                                 Calculate the area of a ring")
	fmt.Println("  watch                                         Stream live map activity")
	fmt.Println()
	fmt.Println("Coordinates are a JSON array of [lng, lat] pairs:")
	fmt.Println(`  '[[37.6,55.7],[37.7,55.7],[37.7,55.8]]'`)
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  mapsync --username alice status")
	fmt.Println("  mapsync create-layer Districts")
	fmt.Println(`  mapsync create-polygon 1 "Park" "#00ff00" '[[37.6,55.7],[37.7,55.7],[37.7,55.8]]'`)
	fmt.Println("  mapsync area '[[0,0],[1,0],[1,1],[0,1]]'")
	fmt.Println()
	fmt.Println("Offline behavior:")
	fmt.Println("  Reads come from the local cache. Creates made while offline get")
	fmt.Println("  temporary negative ids and stay local until recreated online.")
}
