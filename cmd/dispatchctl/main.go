package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuongbtq/derivative-dispatcher/internal/app"
	"github.com/cuongbtq/derivative-dispatcher/internal/config"
	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch"
	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
	"github.com/joho/godotenv"
)

var errNotPublished = errors.New("action was not published")

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("DISPATCH_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/dispatch-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	action := flag.String("action", "", "Name of the action to execute")
	entityType := flag.String("entity-type", string(domain.EntityTypeNode), "Subject entity type (node, media, file, taxonomy_term)")
	entityID := flag.Int64("entity-id", 0, "Subject entity id")
	userID := flag.Int64("user-id", 1, "Id of the user the token is issued for")
	selfTest := flag.Bool("selftest", false, "Subscribe to and unsubscribe from the self-test queue, then exit")
	listActions := flag.Bool("list", false, "List configured actions, then exit")
	publicKey := flag.Bool("public-key", false, "Print the PEM public key workers verify tokens with, then exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if *listActions {
		for _, a := range cfg.Actions {
			fmt.Printf("%s\t%s\t%s\n", a.Name, a.Kind, a.QueueName)
		}
		return nil
	}

	appLogger, err := app.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	if *publicKey {
		pem, err := app.PublicKeyPEM(&cfg.Auth, appLogger.Logger)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(pem)
		return err
	}

	if !*selfTest && (*action == "" || *entityID <= 0) {
		flag.Usage()
		return errors.New("-action and -entity-id are required unless -selftest, -list or -public-key is given")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, appLogger.Logger, false)
	if err != nil {
		return err
	}
	defer components.Close()

	if *selfTest {
		if err := components.Dispatcher.SelfTest(ctx, cfg.RabbitMQ.SelfTestQueue); err != nil {
			return fmt.Errorf("broker self-test failed: %w", err)
		}
		fmt.Println("Broker self-test passed")
		return nil
	}

	result, err := components.Service.ExecuteAction(ctx, *action, domain.EntityType(*entityType), *entityID, *userID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	for _, outcome := range result.Outcomes {
		if outcome.Kind != dispatch.OutcomePublished && outcome.Kind != dispatch.OutcomeSkipped {
			return fmt.Errorf("%w: %s", errNotPublished, outcome.Kind)
		}
	}
	return nil
}
