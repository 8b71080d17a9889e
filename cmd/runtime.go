package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/officeloom/internal/ai"
	"github.com/KaramelBytes/officeloom/internal/sysprobe"
	"github.com/KaramelBytes/officeloom/internal/utils"
)

var runtimeCmd = &cobra.Command{
	Use:   "runtime",
	Short: "Print the detected compute profile (CPU budget, device, embedding model)",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := struct {
			sysprobe.Profile
			Providers []string `json:"embedding_providers"`
		}{newProber().Profile(), ai.Providers()}
		b, err := utils.PrettyJSON(out)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runtimeCmd)
}
