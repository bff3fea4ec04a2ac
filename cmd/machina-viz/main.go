// Command machina-viz renders a YAML machine definition as Graphviz DOT.
//
//	machina-viz traffic-light.yaml -o traffic-light.dot
//	dot -Tsvg traffic-light.dot > traffic-light.svg
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petrijr/machina"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:          "machina-viz <definition.yaml>",
		Short:        "Render a machina definition as Graphviz DOT",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := machina.LoadDefinitionFile(args[0])
			if err != nil {
				return err
			}

			dot := renderDOT(def)
			if output == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), dot)
				return err
			}
			return os.WriteFile(output, []byte(dot), 0o644)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
