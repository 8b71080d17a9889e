package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/officeloom/internal/pipeline"
)

var deckOutputPath string

var deckCmd = &cobra.Command{
	Use:   "deck <file>",
	Short: "Summarize a TXT/MD/DOCX/PDF document into a PPTX slide deck",
	Args:  cobra.ExactArgs(1),
	RunE:  runSingle(pipeline.KindDocument, &deckOutputPath),
}

func init() {
	rootCmd.AddCommand(deckCmd)
	deckCmd.Flags().StringVarP(&deckOutputPath, "output", "o", "", "deck path (default <name>_deck.pptx next to the input)")
}
