package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/jogardn/orders-client/internal/backend"
	"github.com/jogardn/orders-client/internal/config"
	"github.com/jogardn/orders-client/internal/orders"
)

const usage = `usage: orders [-config path] <command> [flags]

commands:
  create   create an order
  get      retrieve an order
  update   update an order
  list     list orders
  pay      pay an order
  return   return items of an order
  watch    stream order events
`

type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	client *orders.Client
	out    io.Writer
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a config file (env, yaml or json)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger, logCloser, err := config.NewLogger(cfg.Logger)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create logger")
	}
	defer logCloser.Close()
	// Results go to stdout; keep logs on stderr unless a file is configured.
	if cfg.Logger.File == "" {
		logger.SetOutput(os.Stderr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, logger: logger, out: os.Stdout}
	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		logger.WithError(err).WithField("kind", backend.Kind(err)).Error("Command failed")
		stop()
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	if command == "watch" {
		return a.watch(ctx, args)
	}

	if a.client == nil {
		bc, err := a.cfg.Backend(a.logger, nil)
		if err != nil {
			return err
		}
		b, err := backend.New(bc)
		if err != nil {
			return fmt.Errorf("failed to create backend: %w", err)
		}
		a.client = orders.NewClient(b, a.logger)
		defer func() {
			a.logger.WithField("circuit_breakers", b.Breakers().AllMetrics()).Debug("Circuit breaker state")
		}()
	}

	switch command {
	case "create":
		return a.create(ctx, args)
	case "get":
		return a.get(ctx, args)
	case "update":
		return a.update(ctx, args)
	case "list":
		return a.list(ctx, args)
	case "pay":
		return a.pay(ctx, args)
	case "return":
		return a.returnOrder(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseWithID parses flags that follow a leading order id.
func parseWithID(fs *flag.FlagSet, args []string) (string, error) {
	if len(args) == 0 || args[0] == "" || args[0][0] == '-' {
		return "", errors.New(fs.Name() + ": an order id is required")
	}
	if err := fs.Parse(args[1:]); err != nil {
		return "", err
	}
	return args[0], nil
}
