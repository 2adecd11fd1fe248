package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdftoolkit/internal/models"
	"github.com/Lllllllleong/pdftoolkit/internal/services"
)

var extractCmd = &cobra.Command{
	Use:   "extract INPUT.pdf",
	Short: "Extract the text of a PDF",
	Long: `Extract prints the text of every page in page order. Pages are
concatenated without markers; a newline is added only where the last word of
one page would otherwise run into the first word of the next. Scanned pages
without a text layer yield no text.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		out, _ := cmd.Flags().GetString("output")
		return withToolkit(cmd.Context(), func(ctx context.Context, tk *services.Toolkit) error {
			res, err := tk.ExtractFile(ctx, args[0])
			if err != nil {
				return err
			}
			if out != "" {
				if err := os.WriteFile(out, []byte(res.Text), 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", out, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d pages of text to %s\n", res.PageCount, out)
				return nil
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(models.ExtractResponse{PageCount: res.PageCount, Text: res.Text})
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return nil
		})
	},
}

func init() {
	extractCmd.Flags().Bool("json", false, "print the result as JSON")
	extractCmd.Flags().StringP("output", "o", "", "write the text to a file instead of stdout")
	rootCmd.AddCommand(extractCmd)
}
