// Command greenhouse keeps a greenhouse inside its temperature band by
// opening a motorised window and running a fan.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/clambin/go-common/charmer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sweeney/greenhouse/internal/config"
	"github.com/sweeney/greenhouse/internal/gpio"
)

var (
	configFilename string
	rootCmd        = cobra.Command{
		Use:          "greenhouse",
		Short:        "Greenhouse ventilation controller",
		SilenceUsage: true,
		RunE:         runDaemon,
	}
)

var args = charmer.Arguments{
	"log_level":           {Default: "info", Help: "Log level (debug, info, warn, error)"},
	"poll_interval":       {Default: 10 * time.Second, Help: "Sensor polling interval"},
	"sensor_max_downtime": {Default: 2 * time.Minute, Help: "Shut down equipment after a sensor is silent this long"},
	"gpio_chip":           {Default: gpio.DefaultChip, Help: "GPIO character device"},
	"active_low":          {Default: false, Help: "Relay board is active-low"},
	"control_sensor":      {Default: "front", Help: "Sensor location the thresholds apply to"},
	"close_on_exit":       {Default: true, Help: "Deactivate the ventilation on shutdown"},
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file")
	if err := charmer.SetPersistentFlags(&rootCmd, viper.GetViper(), args); err != nil {
		panic("failed to set flags: " + err.Error())
	}
	rootCmd.AddCommand(&configCmd, &readCmd, &closeUpCmd)
}

func initConfig() {
	if configFilename != "" {
		viper.SetConfigFile(configFilename)
	} else {
		viper.AddConfigPath("/etc/greenhouse/")
		viper.AddConfigPath("$HOME/.greenhouse")
		viper.AddConfigPath(".")
		viper.SetConfigName("greenhouse")
	}

	config.SetDefaults(viper.GetViper())

	viper.SetEnvPrefix("GREENHOUSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFilename != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "failed to read config file: %v\n", err)
			os.Exit(1)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
