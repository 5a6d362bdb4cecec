package main

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"sphere-survey/internal/logger"
	"sphere-survey/internal/survey"
)

var statusDir string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted survey session",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := survey.NewStore(filepath.Join(statusDir, survey.StateFileName)).Load()
		if err != nil {
			return err
		}
		if st == nil {
			logger.Info("STATUS", "no survey session on disk")
			return nil
		}

		logger.Section("Survey session")
		logger.Stats("active", st.Active)
		logger.Stats("start system", st.StartSystem)
		logger.Stats("radius (ly)", st.RadiusLY)
		if st.MaxJumpLY > 0 {
			logger.Stats("max jump (ly)", st.MaxJumpLY)
		}
		logger.Stats("tie-break", st.TieBreak)
		logger.Stats("visited", len(st.VisitedNames))
		logger.Stats("pending", len(st.Pending))
		logger.Stats("discovered", len(st.AllSystems))
		if st.SourceUsed != "" {
			logger.Stats("source", st.SourceUsed)
		}
		if st.StartedAt > 0 {
			logger.Stats("started", time.Unix(int64(st.StartedAt), 0).Format(time.RFC1123))
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusDir, "dir", ".", "directory holding the state file")
	rootCmd.AddCommand(statusCmd)
}
