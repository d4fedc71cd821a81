package main

import (
	"fmt"

	"github.com/aixgo-dev/therapist/pkg/persona"
	"github.com/spf13/cobra"
)

func newModesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List the available personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, mode := range persona.Modes() {
				fmt.Fprintf(out, "%-7s %s\n", mode, persona.Describe(mode))
				fmt.Fprintf(out, "        opens with: %q\n", persona.OpeningLine(persona.Resolve(string(mode))))
			}
			return nil
		},
	}
}
