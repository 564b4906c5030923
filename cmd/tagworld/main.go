package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/riftforge/tagworld/internal/config"
	"github.com/riftforge/tagworld/internal/core/event"
	"github.com/riftforge/tagworld/internal/core/loop"
	"github.com/riftforge/tagworld/internal/core/registry"
	"github.com/riftforge/tagworld/internal/prototype"
	"github.com/riftforge/tagworld/internal/scripting"
)

// defaultBehavior keeps the demo alive when no script directory is present.
const defaultBehavior = `
drifter = {
  update = function(self, dt)
    self.x = (self.x or 0) + dt
    self.hp = (self.hp or 3) - dt
    if self.hp <= 0 then
      set_state(self.id, "dead")
    end
  end,
  render = function(self)
    self.frames = (self.frames or 0) + 1
  end,
}
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "config/tagworld.toml"
	if p := os.Getenv("TAGWORLD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Defaults()
	} else if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	reg := registry.NewWith[*scripting.Actor](registry.Config{
		IDPrefix: cfg.Registry.IDPrefix,
		Seed:     cfg.Registry.Seed,
	})
	bus := event.NewBus()
	reg.SetBus(bus)
	event.Subscribe(bus, func(ev event.EntityDeleted) {
		log.Info("entity culled", zap.String("id", ev.ID))
	})
	event.Subscribe(bus, func(ev event.StateChanged) {
		log.Debug("state changed",
			zap.String("id", ev.ID), zap.String("old", ev.Old), zap.String("new", ev.New))
	})

	eng, err := scripting.NewEngine(cfg.Scripts.Dir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer eng.Close()
	eng.Bind(reg)
	if err := eng.DoString(defaultBehavior); err != nil {
		return fmt.Errorf("default behavior: %w", err)
	}

	if err := spawnScene(eng, log); err != nil {
		return err
	}
	log.Info("scene ready", zap.Int("entities", reg.Size()))

	runner := loop.NewRunner(bus, log)
	runner.Register(loop.Func("behavior", loop.PhaseUpdate, func(dt time.Duration) {
		reg.Query("mobile").Update(dt.Seconds())
	}))
	runner.Register(loop.Func("render", loop.PhaseUpdate, func(dt time.Duration) {
		reg.Query("visible -@dead").Render()
	}))
	runner.Register(loop.Func("cull", loop.PhaseCleanup, func(dt time.Duration) {
		reg.Query("@dead").Delete()
	}))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Loop.TickRate)
	defer ticker.Stop()
	last := time.Now()
	ticks := 0
	for reg.Size() > 0 {
		select {
		case <-stop:
			log.Info("interrupted")
			return nil
		case now := <-ticker.C:
			runner.Tick(now.Sub(last))
			last = now
			ticks++
			if cfg.Loop.Ticks > 0 && ticks >= cfg.Loop.Ticks {
				log.Info("tick budget reached", zap.Int("ticks", ticks))
				return nil
			}
		}
	}
	log.Info("scene empty", zap.Int("ticks", ticks))
	return nil
}

// spawnScene registers a handful of scripted drifters, through the archetype
// table when one is on disk and directly otherwise.
func spawnScene(eng *scripting.Engine, log *zap.Logger) error {
	defaults := "mobile visible"
	table, err := prototype.Load("data/archetypes.yaml")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("archetypes: %w", err)
	}
	if err == nil {
		log.Info("archetypes loaded", zap.Int("count", table.Count()))
		if p, ok := table.Get("drifter"); ok {
			defaults = p.Query()
		}
	}
	for i := 0; i < 5; i++ {
		eng.Spawn("drifter", defaults)
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
