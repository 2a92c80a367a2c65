package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/forecastnet/roundcast/internal/blackboard"
	"github.com/forecastnet/roundcast/internal/config"
	"github.com/forecastnet/roundcast/internal/core"
	"github.com/forecastnet/roundcast/internal/eventbus"
	"github.com/forecastnet/roundcast/internal/printer"
)

const pingTimeout = 5 * time.Second

// session is the per-process runtime every subcommand starts from.
type session struct {
	cfg       *config.Config
	runID     string
	logger    *log.Logger
	observer  core.Observer
	redisOpts *redis.Options
	logFile   *os.File
}

func openSession() (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{"Check the --config file and ROUNDCAST_* environment variables"},
		)
	}
	opts, err := cfg.RedisOptions()
	if err != nil {
		return nil, printer.Error("invalid Redis settings", err.Error(), nil)
	}

	s := &session{cfg: cfg, runID: uuid.NewString(), redisOpts: opts}
	var w io.Writer = os.Stderr
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		s.logFile = f
		w = io.MultiWriter(os.Stderr, f)
	}
	s.logger = log.New(w, "", log.LstdFlags)
	s.observer = core.NewLogObserver(s.logger, s.runID, cfg.Log.Debug)
	return s, nil
}

func (s *session) close() {
	if s.logFile != nil {
		_ = s.logFile.Close()
	}
}

// signalContext ends on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// ping fails fast when Redis is unreachable at startup.
func (s *session) ping(ctx context.Context, component string, p pinger) error {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := p.Ping(pctx); err != nil {
		s.observer.Observe(core.Observation{Component: component, Round: core.NoRound, Level: core.LevelError, Step: "connect", Message: "Redis connection failed", Err: err})
		return printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", s.redisOpts.Addr),
			[][2]string{{"Error", err.Error()}, {"Run", s.runID}},
			[]string{"Start Redis or point REDIS_URL at a running instance"},
		)
	}
	return nil
}

func (s *session) connectBus(ctx context.Context, component string) (*eventbus.RedisBus, error) {
	bus := eventbus.NewRedisBus(s.redisOpts, s.logger)
	if err := s.ping(ctx, component, bus); err != nil {
		_ = bus.Close()
		return nil, err
	}
	return bus, nil
}

func (s *session) connectStore(ctx context.Context, component string) (*blackboard.RedisStore, error) {
	store := blackboard.NewRedisStore(s.redisOpts, s.logger)
	if err := s.ping(ctx, component, store); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// interrupted reports whether err only reflects a requested shutdown.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
