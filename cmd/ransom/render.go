package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nadzzz/ransom/internal/session"
)

var renderInput string

var renderCmd = &cobra.Command{
	Use:   "render [TEXT...]",
	Short: "Render text to a WAV collage",
	Long: "Render speaks every distinct word of TEXT with a voice picked from the registry\n" +
		"and renders the collage with csound. Without TEXT the input is read from --input\n" +
		"or stdin.",
	Example: `  ransom render "a a b" -o abc.wav
  fortune | ransom render -o fortune.wav`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, map[string]string{"session.output": "output"})
		if err != nil {
			return err
		}
		text, err := readText(args, renderInput, cmd.InOrStdin())
		if err != nil {
			return err
		}

		res, err := session.FromConfig(cfg).Run(cmd.Context(), text, cfg.Session.Output)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d words (%d distinct, %d as tones), %s of audio from %d voices\n",
			res.Output, res.Occurrences, res.Words, res.Fallbacks,
			humanize.FtoaWithDigits(res.Seconds, 2)+"s", res.Voices)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderInput, "input", "i", "", `read the text from a file ("-" for stdin)`)
	renderCmd.Flags().StringP("output", "o", "output.wav", "rendered WAV path")
}
