package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nadzzz/ransom/internal/dispatch"
	"github.com/nadzzz/ransom/internal/message"
	"github.com/nadzzz/ransom/internal/session"
)

var voicesFormat string

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the voice registry",
	Long: "Voices enumerates the enabled backends in configured order and prints every\n" +
		"voice found. The index is what a word's code point sum is reduced to.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		vs, err := session.FromConfig(cfg).Voices(cmd.Context())
		if err != nil {
			return err
		}
		return writeVoices(cmd.OutOrStdout(), voicesFormat, dispatch.VoiceList(vs))
	},
}

func writeVoices(w io.Writer, format string, list *message.VoiceList) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(list); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "INDEX\tBACKEND\tVOICE")
		for i, v := range list.Voices {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", i, v.Backend, v.ID)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q: want text, json or yaml", format)
	}
}

func init() {
	voicesCmd.Flags().StringVarP(&voicesFormat, "format", "f", "text", "output format: text, json, yaml")
}
