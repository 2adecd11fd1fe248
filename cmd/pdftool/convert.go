package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdftoolkit/internal/services"
)

var pdf2docxCmd = &cobra.Command{
	Use:   "pdf2docx INPUT.pdf",
	Short: "Convert a PDF into an editable Word document",
	Long: `pdf2docx extracts the text of every page and writes it as paragraphs
of a .docx file, with a page break between source pages. Layout, images and
fonts are not preserved.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := outputFor(cmd, args[0], ".docx")
		return withToolkit(cmd.Context(), func(ctx context.Context, tk *services.Toolkit) error {
			res, err := tk.PDFToWordFile(ctx, args[0], out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d pages, %d paragraphs)\n", res.OutputPath, res.PageCount, res.Paragraphs)
			return nil
		})
	},
}

var docx2pdfCmd = &cobra.Command{
	Use:   "docx2pdf INPUT.docx",
	Short: "Render a Word document as a PDF",
	Long: `docx2pdf renders a .docx with the configured renderer. The canvas
renderer lays out plain text in-process; the office renderer shells out to
a headless office suite and keeps the document's formatting.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := outputFor(cmd, args[0], ".pdf")
		return withToolkit(cmd.Context(), func(ctx context.Context, tk *services.Toolkit) error {
			res, err := tk.WordToPDFFile(ctx, args[0], out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d pages, renderer %s)\n", res.OutputPath, res.PageCount, tk.Renderer())
			return nil
		})
	},
}

// outputFor returns the -o flag, or in with its extension replaced by ext.
func outputFor(cmd *cobra.Command, in, ext string) string {
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		return out
	}
	return strings.TrimSuffix(in, filepath.Ext(in)) + ext
}

func init() {
	pdf2docxCmd.Flags().StringP("output", "o", "", "output path (default: input with .docx extension)")
	docx2pdfCmd.Flags().StringP("output", "o", "", "output path (default: input with .pdf extension)")
	rootCmd.AddCommand(pdf2docxCmd, docx2pdfCmd)
}
