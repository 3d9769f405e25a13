package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kilnstack/kiln/pkg/template"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <template>...",
		Short: "Validate templates against the dialect schema",
		Long: `Validate template documents against the native dialect's JSON
Schema: required version declaration, section shapes, and parameter
definitions. Section contents beyond the schema are checked during
translation.`,
		Example: `  # Validate one template
  kiln validate stack.yaml

  # Validate several
  kiln validate base.yaml network.yaml compute.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				tmpl, err := template.ParseFile(path)
				if err == nil {
					err = tmpl.Validate()
				}
				if err != nil {
					failed++
					log.Error().Err(err).Str("template", path).Msg("Template is invalid")
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d templates failed validation", failed, len(args))
			}
			return nil
		},
	}

	return cmd
}
