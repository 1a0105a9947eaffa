package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gosuda.org/shmcam"
	"gosuda.org/shmcam/internal/config"
	"gosuda.org/shmcam/internal/registry"
)

var (
	// Global flags
	cfgFile  string
	device   string
	channel  int
	dir      string
	logLevel string

	// Shared state set during PersistentPreRun
	cfg    *config.Config
	logger *logrus.Logger
)

// rootCmd is the base command for shmcam.
var rootCmd = &cobra.Command{
	Use:   "shmcam",
	Short: "Shared memory virtual camera producer and consumer",
	Long: `shmcam feeds frames to virtual camera consumers over named shared memory
channels, and can act as a consumer itself for testing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Override config with flags
		if cmd.Flags().Changed("device") {
			cfg.Device = device
		}
		if cmd.Flags().Changed("channel") {
			cfg.Channel = channel
			cfg.Device = ""
		}
		if dir != "" {
			cfg.Dir = dir
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}

		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = logrus.New()
		logger.Level = level
		shmcam.SetLogger(logger.WithField("logger", "shmcam"))
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.shmcam/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&device, "device", "d", "", "device name to resolve through the registry")
	rootCmd.PersistentFlags().IntVarP(&channel, "channel", "c", 0, "channel id, overrides --device")
	rootCmd.PersistentFlags().StringVar(&dir, "dir", "", "directory of named objects on unix hosts (default /dev/shm)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(registerCmd)
}

// deviceRegistry returns the registry devices are resolved through.
func deviceRegistry() shmcam.Registry {
	if cfg.Registry != "" {
		return registry.File{Path: cfg.Registry}
	}
	return shmcam.DefaultRegistry()
}

// channelID resolves the configured device, or falls back to the configured id.
func channelID() (int, error) {
	if cfg.Device == "" {
		return cfg.Channel, nil
	}
	return shmcam.NewLocator(deviceRegistry()).Find(cfg.Device)
}

// channelConfig translates the CLI configuration into a channel configuration.
func channelConfig() shmcam.Config {
	c := shmcam.DefaultConfig()
	if cfg.Backend == "ring" {
		c.Backend = shmcam.BackendRing
	}
	c.Dir = cfg.Dir
	c.Prefix = cfg.Prefix
	c.MaxPayload = cfg.MaxPayload
	if cfg.RingName != "" {
		c.RingName = cfg.RingName
	}
	c.RingWidth = uint32(cfg.Width)
	c.RingHeight = uint32(cfg.Height)
	c.RingInterval = cfg.Interval
	return c
}
