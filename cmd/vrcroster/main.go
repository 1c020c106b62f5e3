package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pawkat/vrcroster/internal/app"
	"github.com/pawkat/vrcroster/internal/cli"
	"github.com/pawkat/vrcroster/internal/clients"
	"github.com/pawkat/vrcroster/internal/config"
	"github.com/pawkat/vrcroster/internal/logger"
	"github.com/pawkat/vrcroster/internal/snapshot"
	"github.com/pawkat/vrcroster/internal/storage"
)

func main() {
	if err := run(); err != nil {
		logrus.Errorf("run failed: %v", err)
		os.Exit(2)
	}
	logrus.Info("Run finished successfully")
}

func run() error {
	if err := godotenv.Load(config.DefaultEnvFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load env: %w", err)
	}

	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		return err
	}

	if err := logger.Setup(args.LogLevel, args.LogFile); err != nil {
		return err
	}

	if args.Query != "" && !storage.KnownQuery(args.Query) {
		return fmt.Errorf("query %s not found", args.Query)
	}

	for _, env := range []string{"VRC_USERNAME", "VRC_PASSWORD", "DISCORD_BOT_TOKEN"} {
		if os.Getenv(env) == "" {
			return fmt.Errorf("%s is not set", env)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logrus.Infof("Received signal: %s. Shutting down...", sig)
		cancel()
	}()

	vrcClient := clients.NewVRChatClient(
		os.Getenv("VRC_USERNAME"),
		os.Getenv("VRC_PASSWORD"),
		os.Getenv("VRC_TOTP_SECRET"),
	)
	discordClient, err := clients.NewDiscordClient(os.Getenv("DISCORD_BOT_TOKEN"))
	if err != nil {
		return err
	}

	var graph app.GraphStore
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		neo4jStorage, err := storage.NewNeo4jStorage(
			uri,
			os.Getenv("NEO4J_USER"),
			os.Getenv("NEO4J_PASSWORD"),
		)
		if err != nil {
			return err
		}
		if err := neo4jStorage.Ping(ctx); err != nil {
			return fmt.Errorf("neo4j ping: %w", err)
		}
		logrus.Info("Connected to Neo4j")
		defer func(ctx context.Context) {
			if err := neo4jStorage.Close(ctx); err != nil {
				logrus.Warningf("close neo4j storage: %v", err)
			}
		}(ctx)
		graph = neo4jStorage
	}

	sink := snapshot.NewFileSink(filepath.Join(args.Workspace, args.OutDir))
	myApp := app.NewApp(vrcClient, discordClient, sink, graph)

	if args.Query != "" {
		return myApp.Report(ctx, args.Query)
	}

	return myApp.Run(ctx, app.RunConfig{
		GroupIDs:   args.GroupIDs,
		WorldIDs:   args.WorldIDs,
		ServerIDs:  args.ServerIDs,
		ChannelIDs: args.ChannelIDs,
	})
}
