// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/overlay"
)

var configWrite string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configWrite != "" {
			if err := cfg.Save(configWrite); err != nil {
				return err
			}
			overlay.Logger().Info("overlayd: config written", "path", configWrite)
			return nil
		}
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

func init() {
	configCmd.Flags().StringVarP(&configWrite, "write", "w", "", "write the configuration to this file instead")
}
