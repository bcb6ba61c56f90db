package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export [flags] <path>",
		Short: "Process a document and substitute {{name}} references in the prose",
		Long:  "Export processes the document, then replaces each {{name}} or {{name | unit}}\noutside math and code with the value of that name. The source document is\nnever modified; the result goes to stdout or to --output.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := a.setup()
			if err != nil {
				return err
			}
			rep, err := a.reporter()
			if err != nil {
				return err
			}

			var data []byte
			if args[0] == stdinPath {
				data, err = io.ReadAll(a.stdin)
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			res, err := engine.Export(cmd.Context(), string(data))
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			name := args[0]
			if name == stdinPath {
				name = displayPath(stdinPath)
			}
			rep.diagnostics(name, res.Diagnostics)
			rep.stats(name, res.Stats, "")

			if output == "" {
				_, err = io.WriteString(a.stdout, res.Text)
				return err
			}
			if err := os.WriteFile(output, []byte(res.Text), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the exported document to this file")
	return cmd
}
