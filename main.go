package main

import (
	"os"

	"github.com/spf13/cobra"

	"sphere-survey/internal/config"
	"sphere-survey/internal/logger"
)

var version = "dev"

var (
	cfgFile  string
	settings *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "sphere-survey",
	Short: "Sphere survey route planner for star systems",
	Long: `sphere-survey finds every known star system inside a sphere around
your current position and walks you through visiting all of them. It keeps
its progress on disk, so an interrupted survey resumes where it stopped.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		settings = s
		logger.SetDebug(s.Debug)
		return nil
	},
}

func main() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
	if err := rootCmd.Execute(); err != nil {
		logger.Error("MAIN", err.Error())
		os.Exit(1)
	}
}
