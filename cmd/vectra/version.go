package main

import (
	"github.com/spf13/cobra"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/api"
	"github.com/playandogamer150-commits/vectra-ai-sub000/version"
)

type versionInfo struct {
	Release string `json:"release"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), versionInfo{
			Release: version.GitRelease,
			Commit:  version.GitCommit,
			Date:    version.GitCommitDate,
			Go:      version.GoInfo,
		})
	},
}
