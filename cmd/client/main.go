package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/mapsync/internal/client/cache/boltdb"
	"github.com/iudanet/mapsync/internal/client/cli"
	"github.com/iudanet/mapsync/internal/client/iocli"
	"github.com/iudanet/mapsync/internal/client/sync"
	"github.com/iudanet/mapsync/internal/client/transport"
	"github.com/iudanet/mapsync/pkg/api"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "ws://localhost:8080/ws", "Server websocket URL")
	dbPath := flag.String("db", "mapsync-client.db", "Path to local cache database")
	username := flag.String("username", "", "Display name announced to other users")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}
	command := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	store, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open cache: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close cache", "error", err)
		}
	}()

	conn := transport.New(*serverURL, logger)
	manager := sync.NewManager(store, conn, logger)
	manager.Start(ctx)
	defer manager.Stop()

	// A dead server is not fatal: commands fall back to the cache.
	if err := conn.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Offline: %v\n", err)
	} else {
		defer func() { _ = conn.Close() }()
		if err := conn.Emit(api.EventJoin, api.JoinRequest{Username: *username}); err != nil {
			logger.Warn("failed to join", "error", err)
		}
		if err := manager.InitialSync(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	app := cli.New(manager, conn, iocli.NewStdio())

	if err := runCommand(ctx, app, command, args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, app *cli.Cli, command string, args []string) error {
	switch command {
	case "status":
		return app.RunStatus(ctx)
	case "layers":
		return app.RunLayers(ctx)
	case "create-layer":
		return app.RunCreateLayer(ctx, args)
	case "rename-layer":
		return app.RunRenameLayer(ctx, args)
	case "delete-layer":
		return app.RunDeleteLayer(ctx, args)
	case "polygons":
		return app.RunPolygons(ctx, args)
	case "create-polygon":
		return app.RunCreatePolygon(ctx, args)
	case "update-polygon":
		return app.RunUpdatePolygon(ctx, args)
	case "delete-polygon":
		return app.RunDeletePolygon(ctx, args)
	case "area":
		return app.RunArea(ctx, args)
	case "watch":
		return app.RunWatch(ctx)
	default:
		cli.PrintUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printVersion() {
	fmt.Printf("MapSync Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
