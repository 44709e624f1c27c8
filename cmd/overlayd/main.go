// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command overlayd runs the overlay framebuffer server and renders
// composited test frames without a window.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/gogpu/wgpu/hal"
	"github.com/spf13/cobra"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
	"github.com/gogpu/overlay/internal/config"

	// Device backends.
	_ "github.com/gogpu/overlay/d3d/d3d11"
	_ "github.com/gogpu/overlay/d3d/halctx"
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

var (
	version  = "dev"
	cfgFile  string
	logLevel string

	// cfg is loaded before every command runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "overlayd",
	Short:         "Overlay compositor daemon",
	Long:          `overlayd serves overlay frames to hooked Direct3D 11 applications and renders composited frames headlessly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the usable device backends",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("overlayd %s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)
		fmt.Printf("backends: %s\n", strings.Join(d3d.AvailableBackends(), ", "))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is overlayd.yaml in "+config.Dir()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "overlayd:", err)
		os.Exit(1)
	}
}

// setup loads the configuration and installs the logger shared by the
// overlay packages and the HAL.
func setup() error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	level, err := c.Level()
	if err != nil {
		return err
	}
	cfg = c

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	overlay.SetLogger(logger)
	hal.SetLogger(logger.With("component", "hal"))
	return nil
}

// openDevice opens the named backend, or the best available one when name
// is empty.
func openDevice(name, label string) (d3d.Device, error) {
	opts := d3d.Options{Label: label, AdapterIndex: -1}
	if name == "" {
		return d3d.NewDevice(opts)
	}
	return d3d.NewDeviceByName(name, opts)
}
