package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Nat1anWasTaken/paperly/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the paperly home directory",
	Long: `Initialize the paperly home directory.

Creates ~/.paperly with its subdirectories and writes a default
config.yaml. Fails if a config file already exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		if err := config.WriteDefault(h.ConfigPath()); err != nil {
			return err
		}

		fmt.Printf("Initialized %s\n", h.Path())
		fmt.Printf("Config written to %s\n", h.ConfigPath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
