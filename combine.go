package main

import (
	"github.com/spf13/cobra"

	"sphere-survey/internal/combine"
	"sphere-survey/internal/logger"
)

var combineOut string

var combineCmd = &cobra.Command{
	Use:   "combine file...",
	Short: "Merge system export files into one neareststars.json",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := combine.Run(args, combineOut)
		if err != nil {
			return err
		}
		logger.Section("Combined")
		for _, f := range res.Files {
			logger.Stats(f.Path, f.Added)
		}
		logger.Stats("total unique", res.Total)
		return nil
	},
}

func init() {
	combineCmd.Flags().StringVarP(&combineOut, "output", "o", "neareststars.json", "output file")
	rootCmd.AddCommand(combineCmd)
}
