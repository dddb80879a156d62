package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/doctag/internal/action"
	"github.com/jackzampolin/doctag/internal/config"
)

var configOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the action manifest describing available generators",
	Long: `Print the JSON action manifest that external integrations use to
discover doctag's generators, their arguments, and their defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configOutput != "" {
			return action.WriteFile(configOutput)
		}
		return action.Write(os.Stdout)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.yaml to the given path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configOutput
		if path == "" {
			path = "config.yaml"
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

func init() {
	configCmd.PersistentFlags().StringVarP(&configOutput, "output", "o", "", "write to file instead of stdout")
	configCmd.AddCommand(configInitCmd)
}
