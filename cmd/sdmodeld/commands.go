package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sdmodeld/internal/prompt"
	"sdmodeld/pkg/types"
)

func newModelsCmd(o *options) *cobra.Command {
	var kind, impl string
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "models",
		Short:   "List the models usable by the configured backend",
		Example: "  sdmodeld models --kind vae\n  sdmodeld models --implementation diffusers-onnx --json",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := types.ParseKind(kind)
			if err != nil {
				return err
			}
			sess, err := o.newSession()
			if err != nil {
				return err
			}
			models, err := sess.ModelsFor(k, impl)
			if err != nil {
				return err
			}
			return printModels(cmd.OutOrStdout(), models, asJSON)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "normal", "Model kind: normal|vae|embedding (embeddings below the model size threshold are listed by the embeddings command)")
	cmd.Flags().StringVar(&impl, "implementation", "", "Override the backend filter for this listing (\"any\" disables it)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newEmbeddingsCmd(o *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "embeddings",
		Short: "List every file in the Embeddings directories, regardless of size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := o.newSession()
			if err != nil {
				return err
			}
			return printModels(cmd.OutOrStdout(), sess.Embeddings(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func printModels(w io.Writer, models []types.Model, asJSON bool) error {
	if !asJSON {
		return writeModelTable(w, models)
	}
	if models == nil {
		models = []types.Model{}
	}
	return writeJSON(w, types.ModelsResponse{Models: models})
}

func newNormalizeCmd(o *options) *cobra.Command {
	var negative string
	cmd := &cobra.Command{
		Use:     "normalize <prompt>",
		Short:   "Rewrite legacy attention syntax into the canonical form",
		Example: "  sdmodeld normalize 'a (cat) on a {mat}'\n  sdmodeld normalize 'a castle' --negative '((blurry))'",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := prompt.Normalize(strings.Join(args, " "))
			if negative != "" {
				p = prompt.Combine(p, prompt.Normalize(negative))
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		},
	}
	cmd.Flags().StringVar(&negative, "negative", "", "Negative prompt to append in brackets")
	return cmd
}

func newHashCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "hash",
		Short: "Print the fingerprint of the current model set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := o.newSession()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sess.ModelsHash())
			return err
		},
	}
}

func newIngestCmd(o *options) *cobra.Command {
	var asJSON bool
	var promptText, negative string
	cmd := &cobra.Command{
		Use:     "ingest",
		Short:   "Read backend output from stdin and print the embedding trigger table",
		Example: "  invokeai 2>&1 | sdmodeld ingest --prompt 'a photo in <my-style>'",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := o.newSession()
			if err != nil {
				return err
			}
			n, err := sess.IngestLog(cmd.Context(), cmd.InOrStdin())
			if err != nil {
				return err
			}
			o.log.Debug().Int("triggers", n).Msg("backend output consumed")
			out := cmd.OutOrStdout()
			if promptText != "" {
				p := sess.Prepare(promptText, negative)
				if asJSON {
					return writeJSON(out, types.PrepareResponse{Prompt: p.Prompt, Incompatible: p.Incompatible})
				}
				_, err := fmt.Fprintln(out, p.Prompt)
				return err
			}
			triggers := sess.Triggers()
			if asJSON {
				return writeJSON(out, types.TriggersResponse{Triggers: triggers})
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, file := range slices.Sorted(maps.Keys(triggers)) {
				fmt.Fprintf(tw, "%s\t<%s>\n", file, triggers[file])
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().StringVar(&promptText, "prompt", "", "Prepare this prompt with the ingested triggers instead of printing the table")
	cmd.Flags().StringVar(&negative, "negative", "", "Negative prompt used with --prompt")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeModelTable(w io.Writer, models []types.Model) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFORMAT\tKIND\tARCH\tPATH")
	for _, m := range models {
		arch := string(m.Architecture)
		if arch == "" {
			arch = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.Name, m.Format, m.Kind, arch, m.Path)
	}
	return tw.Flush()
}
