package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	infralogger "github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/classifier"
	"github.com/jonesrussell/civic-triage/internal/lexicon"
)

type classifyOptions struct {
	lexiconPath string
	language    string
	fallback    string
}

func newClassifyCommand() *cobra.Command {
	opts := &classifyOptions{}

	cmd := &cobra.Command{
		Use:   `classify "<description>"`,
		Short: "Show how a description would be classified",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := strings.TrimSpace(strings.Join(args, " "))
			if description == "" {
				return errors.New("description is required")
			}

			lex := lexicon.Load(opts.lexiconPath, infralogger.NewNop())
			c := classifier.New(lex, classifier.WithFallbackLanguage(opts.fallback))
			exp := c.Explain(description, opts.language)

			renderExplanation(cmd, exp)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.lexiconPath, "lexicon", "data/lexicon.json", "keyword lexicon file")
	cmd.Flags().StringVarP(&opts.language, "language", "l", lexicon.English, "language of the description")
	cmd.Flags().StringVar(&opts.fallback, "fallback", lexicon.English, "language used when --language is not in the lexicon")
	return cmd
}

func renderExplanation(cmd *cobra.Command, exp classifier.Explanation) {
	out := cmd.OutOrStdout()

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Category", "Score", "Matched keywords"})
	for _, s := range exp.Scores {
		t.AppendRow(table.Row{s.Category, s.Score, strings.Join(s.Matched, ", ")})
	}
	t.Render()

	if exp.Matched {
		fmt.Fprintf(out, "Language: %s\nCategory: %s\n", exp.Language, exp.Category)
		return
	}
	fmt.Fprintf(out, "Language: %s\nCategory: (none, falls back to the default category)\n", exp.Language)
}
