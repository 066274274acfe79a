package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sweeney/greenhouse/internal/config"
	"github.com/sweeney/greenhouse/internal/gpio"
	"github.com/sweeney/greenhouse/internal/instance"
	"github.com/sweeney/greenhouse/internal/logger"
	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/status"
)

func runDaemon(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	level := zap.NewAtomicLevel()
	log := newLeveledLogger(cfg, level)
	defer func() { _ = log.Sync() }()

	if err := instance.NewGuard().Check(); err != nil {
		return err
	}

	chip, err := gpio.OpenChip(cfg.GPIOChip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer closeChip(chip, log)

	sys, err := buildSystem(chipOpener(chip, cfg.ActiveLow), cfg, log)
	if err != nil {
		return err
	}
	sensors := buildSensors(cfg, log)

	// The relays may have been left in any position by a previous run.
	if _, err := closeUp(sys.ventilation, log); err != nil {
		log.Errorw("startup close up failed", "err", err)
	}

	band := new(atomic.Pointer[logic.Band])
	b := cfg.Thresholds.Band()
	band.Store(&b)
	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(reloader(v, band, level, log))
		v.WatchConfig()
	}

	c := &controller{
		ventilation: sys.ventilation,
		systems:     sys.all(),
		sensors:     sensors,
		watchdog:    status.NewWatchdog(time.Now(), cfg.SensorMaxDowntime, locations(sensors)...),
		band:        band,
		control:     cfg.ControlSensor,
		closeOnExit: cfg.CloseOnExit,
		log:         log,
	}

	log.Infow("started",
		"poll", cfg.PollInterval, "band_low", b.Low, "band_high", b.High,
		"control_sensor", cfg.ControlSensor, "config", v.ConfigFileUsed())

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(cmd.Context(), c, time.Now, ticker.C, sigCh)
}

// reloader applies the parts of a changed config file that are safe to
// change while running: the threshold band and the log level. Everything
// else needs a restart.
func reloader(v *viper.Viper, band *atomic.Pointer[logic.Band], level zap.AtomicLevel, log *zap.SugaredLogger) func(fsnotify.Event) {
	return func(e fsnotify.Event) {
		cfg, err := config.Load(v)
		if err != nil {
			log.Errorw("ignoring config change", "file", e.Name, "err", err)
			return
		}
		b := cfg.Thresholds.Band()
		band.Store(&b)
		if lvl, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
			level.SetLevel(lvl)
		}
		log.Infow("config reloaded", "file", e.Name, "band_low", b.Low, "band_high", b.High, "log_level", cfg.LogLevel)
	}
}
