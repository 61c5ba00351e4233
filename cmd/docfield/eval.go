package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-docfield/pkg/docfield"
)

var evalCmd = &cobra.Command{
	Use:   "eval [instruction...]",
	Short: "Evaluate field instructions",
	Long: `Evaluates each instruction against the configured data and prints its result.
Without arguments one instruction is read per line from stdin. Instructions share one
context, so a SET is visible to later REF fields.`,
	Example: `  docfield eval 'MERGEFIELD Name \* Upper'
  docfield eval 'SET total 12' 'REF total \# "0.00"'
  docfield eval --if 'IF { MERGEFIELD Country } = "DE" "yes" "no"'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		opts := evalOptions{}
		opts.condition, _ = cmd.Flags().GetBool("if")
		opts.status, _ = cmd.Flags().GetBool("status")

		instructions := args
		var prompter docfield.Prompter
		if len(args) == 0 {
			instructions, err = readInstructions(cmd.InOrStdin())
			if err != nil {
				return err
			}
		} else {
			prompter = terminalPrompter()
		}
		return runEval(cmd.Context(), a, instructions, prompter, opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().Bool("if", false, "Print only the truth value of IF conditions")
	evalCmd.Flags().Bool("status", false, "Prefix each result with its evaluation status")
}

type evalOptions struct {
	condition bool
	status    bool
}

func readInstructions(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading instructions: %w", err)
	}
	return out, nil
}

func runEval(ctx context.Context, a *app, instructions []string, prompter docfield.Prompter, opts evalOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var extra []docfield.Option
	if prompter != nil {
		extra = append(extra, docfield.WithPrompter(prompter))
	}
	ev := docfield.NewEvaluator(a.newContext(nil, extra...))

	for _, text := range instructions {
		if opts.condition {
			cond, ok, err := ev.EvaluateIfCondition(ctx, text)
			if err != nil {
				return err
			}
			switch {
			case !ok:
				fmt.Fprintln(out, errStyle.Render("invalid"))
			case cond:
				fmt.Fprintln(out, okStyle.Render("true"))
			default:
				fmt.Fprintln(out, warnStyle.Render("false"))
			}
			continue
		}

		res, err := ev.Eval(ctx, docfield.NewFieldInstruction(text))
		if err != nil {
			return err
		}
		display := res.DisplayText(docfield.Parse(text).FieldType)
		if opts.status {
			fmt.Fprintf(out, "%s\t%s\n", statusLabel(res.Status), display)
			if res.Err != nil {
				fmt.Fprintln(os.Stderr, faintStyle.Render(res.Err.Error()))
			}
			continue
		}
		fmt.Fprintln(out, display)
	}
	return nil
}
