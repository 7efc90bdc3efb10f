package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/l1jgo/simcore/internal/config"
	"github.com/l1jgo/simcore/internal/data"
	"github.com/l1jgo/simcore/internal/sim"
	"github.com/l1jgo/simcore/internal/view"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "config/simcore.toml"
	if p := os.Getenv("SIMCORE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The terminal belongs to the view, so logs go to a file.
	logPath := "simview.log"
	if p := os.Getenv("SIMVIEW_LOG"); p != "" {
		logPath = p
	}
	log, err := newLogger(cfg.Logging, logPath)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	scene, err := data.LoadScene(cfg.Simulation.Scene)
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s, err := sim.New(ctx, cfg, scene, log)
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	defer s.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("screen init: %w", err)
	}
	defer screen.Fini()
	screen.HideCursor()

	return loop(s, screen, view.NewRenderer(screen, scene.Bounds()), cfg.Simulation.TickRate, log)
}

// loop ticks and redraws until q, Esc or a signal. Space pauses, n steps
// one tick while paused, s writes a snapshot.
func loop(s *sim.Sim, screen tcell.Screen, r *view.Renderer, tickRate time.Duration, log *zap.Logger) error {
	eventCh := make(chan tcell.Event, 32)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				close(eventCh)
				return
			}
			eventCh <- ev
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	paused := false
	r.Draw(s)
	for {
		select {
		case ev, ok := <-eventCh:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
				r.Draw(s)
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape, ev.Rune() == 'q':
					return save(s, log)
				case ev.Rune() == ' ':
					paused = !paused
				case ev.Rune() == 'n' && paused:
					s.Tick()
					r.Draw(s)
				case ev.Rune() == 's':
					if err := save(s, log); err != nil {
						log.Error("snapshot failed", zap.Error(err))
					}
				}
			}
		case <-ticker.C:
			if paused {
				continue
			}
			s.Tick()
			r.Draw(s)
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			return save(s, log)
		}
	}
}

func save(s *sim.Sim, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Save(ctx); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	log.Info("view closed", s.Stats().Fields()...)
	return nil
}

func newLogger(cfg config.LoggingConfig, path string) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.OutputPaths = []string{path}
	zapCfg.ErrorOutputPaths = []string{path}

	return zapCfg.Build()
}
