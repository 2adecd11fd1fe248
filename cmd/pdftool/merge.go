package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdftoolkit/internal/services"
)

var mergeCmd = &cobra.Command{
	Use:   "merge -o OUTPUT INPUT.pdf...",
	Short: "Merge PDFs into one document",
	Long: `Merge concatenates the pages of every input in the order given. Every
input is validated first; if any is unreadable nothing is written.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		return withToolkit(cmd.Context(), func(ctx context.Context, tk *services.Toolkit) error {
			res, err := tk.MergeFiles(ctx, args, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %d files (%d pages) into %s\n", len(args), res.PageCount, res.OutputPath)
			return nil
		})
	},
}

func init() {
	mergeCmd.Flags().StringP("output", "o", "merged.pdf", "path of the merged PDF")
	rootCmd.AddCommand(mergeCmd)
}
