package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sweeney/greenhouse/internal/config"
	"github.com/sweeney/greenhouse/internal/gpio"
	"github.com/sweeney/greenhouse/internal/instance"
	"github.com/sweeney/greenhouse/internal/sensor"
)

var (
	configCmd = cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			return cfg.Dump(cmd.OutOrStdout())
		},
	}

	readCmd = cobra.Command{
		Use:   "read",
		Short: "Read every sensor once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			sensors := buildSensors(cfg, log)
			vals := sensor.ReadAll(cmd.Context(), sensors, nil, nil, time.Now)
			printReadings(cmd, sensors, vals)
			return nil
		},
	}

	closeUpCmd = cobra.Command{
		Use:   "close-up",
		Short: "Stop the fan, close the window and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			log := newLogger(cfg)
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
			if _, err := closeUp(sys.ventilation, log); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", sys.ventilation.Name(), sys.ventilation.State())
			return nil
		},
	}
)

func printReadings(cmd *cobra.Command, sensors []sensor.Sensor, vals map[string]sensor.Reading) {
	for _, s := range sensors {
		if r, ok := vals[s.Location()]; ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", s.Location(), r)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: no reading\n", s.Location())
	}
}

// closeUp forces the ventilation to a known resting state.
func closeUp(v closer, log *zap.SugaredLogger) (bool, error) {
	ok, err := v.CloseUp()
	if err != nil {
		return false, fmt.Errorf("close up: %w", err)
	}
	log.Infow("close up finished", "ok", ok, "state", v.State())
	return ok, nil
}
