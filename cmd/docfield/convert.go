package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/benjaminschreck/go-docfield/pkg/docfield"
	"github.com/benjaminschreck/go-docfield/pkg/docfield/markdown"
	"github.com/benjaminschreck/go-docfield/pkg/docfield/walk"
	"github.com/benjaminschreck/go-docfield/pkg/docfield/wordml"
)

var convertCmd = &cobra.Command{
	Use:   "convert <document.docx>",
	Short: "Convert a document to Markdown",
	Long: `Walks a .docx document, evaluating its fields (or keeping their cached results with
--mode cache), and writes the result as Markdown.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
			a.cfg.Mode = docfield.Mode(mode)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("record") {
			n, _ := cmd.Flags().GetInt("record")
			if err := a.selectRecord(cmd.Context(), n); err != nil {
				return err
			}
		}

		md, err := convertFile(cmd.Context(), a, args[0], terminalPrompter())
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		if output != "" {
			if err := os.WriteFile(output, []byte(md), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			a.logger.Info("wrote %s", output)
			return nil
		}

		pretty, _ := cmd.Flags().GetBool("pretty")
		return writeMarkdown(cmd.OutOrStdout(), md, pretty && term.IsTerminal(int(os.Stdout.Fd())))
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringP("output", "o", "", "Write Markdown to this file instead of stdout")
	convertCmd.Flags().String("mode", "", "Field mode: evaluate or cache (default from config)")
	convertCmd.Flags().Int("record", 0, "Row of the sqlite merge sources to use")
	convertCmd.Flags().Bool("pretty", false, "Render the Markdown for the terminal")
}

// convertFile runs the whole pipeline on one document.
func convertFile(ctx context.Context, a *app, path string, prompter docfield.Prompter) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	pkg, err := wordml.OpenFile(path)
	if err != nil {
		return "", err
	}
	defer pkg.Close()

	doc, err := pkg.Document()
	if err != nil {
		return "", err
	}
	targets, err := pkg.HyperlinkTargets()
	if err != nil {
		a.logger.Warn("reading hyperlink targets of %s: %v", path, err)
	}

	var opts []docfield.Option
	if prompter != nil {
		opts = append(opts, docfield.WithPrompter(prompter))
	}
	ec := a.newContext(nil, opts...)
	if err := walk.Prepopulate(ctx, ec, pkg, doc); err != nil {
		a.logger.Warn("reading document data of %s: %v", path, err)
	}

	r := markdown.NewRenderer()
	mw := docfield.NewMiddleware(r, docfield.NewEvaluator(ec))
	err = walk.Walk(ctx, doc, mw, walk.WithHyperlinkTargets(targets), walk.WithLogger(a.logger))
	if err != nil {
		return "", docfield.WithContext(err, "convert", docfield.Fields{"file": path})
	}
	return r.Markdown(), nil
}

func writeMarkdown(w io.Writer, md string, pretty bool) error {
	if pretty {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
		if err == nil {
			if out, err := r.Render(md); err == nil {
				md = out
			}
		}
	}
	_, err := io.WriteString(w, md)
	return err
}
