package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nadzzz/ransom/internal/score"
	"github.com/nadzzz/ransom/internal/session"
)

var (
	scoreInput  string
	scoreDryRun bool
)

var scoreCmd = &cobra.Command{
	Use:   "score [TEXT...]",
	Short: "Print the csound score without rendering it",
	Long: "Score runs the voice registry and synthesis like render does, then prints the\n" +
		"score instead of running csound. Clip paths in the score are relative to the\n" +
		"session work dir, which is removed on exit. With --dry-run nothing is\n" +
		"synthesized and every word becomes a tone.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		text, err := readText(args, scoreInput, cmd.InOrStdin())
		if err != nil {
			return err
		}

		if scoreDryRun {
			sc, err := score.Sketch(score.Tokenize(text)).Render()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), sc.String())
			return err
		}

		res, err := session.FromConfig(cfg).Score(cmd.Context(), text)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), res.Score)
		return err
	},
}

func init() {
	scoreCmd.Flags().StringVarP(&scoreInput, "input", "i", "", `read the text from a file ("-" for stdin)`)
	scoreCmd.Flags().BoolVar(&scoreDryRun, "dry-run", false, "skip voices and synthesis; every word becomes a tone")
}
