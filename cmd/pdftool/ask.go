package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdftoolkit/internal/models"
	"github.com/Lllllllleong/pdftoolkit/internal/qa"
	"github.com/Lllllllleong/pdftoolkit/internal/services"
)

var askCmd = &cobra.Command{
	Use:   "ask INPUT.pdf QUESTION",
	Short: "Answer a question from the text of a PDF",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withToolkit(cmd.Context(), func(ctx context.Context, tk *services.Toolkit) error {
			ans, err := tk.AskFile(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printAnswer(cmd, ans)
		})
	},
}

var answerCmd = &cobra.Command{
	Use:   "answer QUESTION",
	Short: "Answer a question from a passage of text",
	Long: `Answer reads the passage from --context, from --context-file, or from
stdin when neither is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		passage, err := readPassage(cmd)
		if err != nil {
			return err
		}
		return withToolkit(cmd.Context(), func(ctx context.Context, tk *services.Toolkit) error {
			ans, err := tk.Answer(ctx, passage, args[0])
			if err != nil {
				return err
			}
			return printAnswer(cmd, ans)
		})
	},
}

func readPassage(cmd *cobra.Command) (string, error) {
	passage, _ := cmd.Flags().GetString("context")
	file, _ := cmd.Flags().GetString("context-file")
	switch {
	case passage != "" && file != "":
		return "", errors.New("use only one of --context and --context-file")
	case passage != "":
		return passage, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading context: %w", err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading context from stdin: %w", err)
		}
		return string(data), nil
	}
}

func printAnswer(cmd *cobra.Command, ans *qa.Answer) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		score := ans.Score
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(models.AnswerResponse{
			Answer: ans.Text,
			Score:  &score,
			Start:  ans.Start,
			End:    ans.End,
			Model:  ans.Model,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), ans.Text)
	fmt.Fprintf(cmd.ErrOrStderr(), "score %.4f (model %s)\n", ans.Score, ans.Model)
	return nil
}

func init() {
	askCmd.Flags().Bool("json", false, "print the answer as JSON")
	answerCmd.Flags().Bool("json", false, "print the answer as JSON")
	answerCmd.Flags().String("context", "", "passage to answer from")
	answerCmd.Flags().String("context-file", "", "file holding the passage to answer from")
	rootCmd.AddCommand(askCmd, answerCmd)
}
