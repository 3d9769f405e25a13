package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kilnstack/kiln/pkg/template"
)

func newTranslateCommand() *cobra.Command {
	var (
		skipValidate bool
		section      string
		params       []string
	)

	cmd := &cobra.Command{
		Use:   "translate <template>",
		Short: "Translate a native template into the canonical representation",
		Long: `Translate a template authored in the native dialect into the
canonical engine representation: capitalized section names, expanded
parameter constraints, and respelled attribute keys.

Parameter references ({"get_param": "name"}) are substituted when values
are supplied via --param; a reference without a supplied value fails.`,
		Example: `  # Translate a template to canonical YAML
  kiln translate stack.yaml

  # Translate and substitute parameters
  kiln translate stack.yaml --param instance_type=m1.small --param count=3

  # Translate a single section
  kiln translate stack.yaml --section Resources`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := template.ParseFile(args[0])
			if err != nil {
				return err
			}

			if !skipValidate {
				if err := tmpl.Validate(); err != nil {
					return err
				}
			}

			log.Info().Str("template", args[0]).Msg("Translating template")

			if section != "" {
				value, err := tmpl.Section(section)
				if err != nil {
					return err
				}
				if len(params) > 0 {
					supplied, err := parseParams(params)
					if err != nil {
						return err
					}
					if value, err = template.ResolveParams(value, supplied); err != nil {
						return err
					}
				}
				return printDocument(cmd, value)
			}

			doc := map[string]interface{}{}
			for _, section := range []string{
				template.SectionFormatVersion,
				template.SectionDescription,
				template.SectionParameters,
				template.SectionMappings,
				template.SectionResources,
				template.SectionOutputs,
			} {
				value, err := tmpl.Section(section)
				if err != nil {
					return err
				}
				doc[section] = value
			}

			if len(params) > 0 {
				supplied, err := parseParams(params)
				if err != nil {
					return err
				}
				resolved, err := template.ResolveParams(doc, supplied)
				if err != nil {
					return err
				}
				doc = resolved.(map[string]interface{})
			}

			return printDocument(cmd, doc)
		},
	}

	cmd.Flags().BoolVar(&skipValidate, "skip-validate", false, "skip schema validation before translating")
	cmd.Flags().StringVar(&section, "section", "", "translate a single section instead of the whole template")
	cmd.Flags().StringArrayVar(&params, "param", nil, "parameter value as name=value (repeatable)")

	return cmd
}

// parseParams converts name=value flags into a parameter map.
func parseParams(pairs []string) (map[string]interface{}, error) {
	params := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected name=value", pair)
		}
		params[name] = value
	}
	return params, nil
}

// printDocument writes a document to stdout as YAML, or JSON with --json.
func printDocument(cmd *cobra.Command, doc interface{}) error {
	if jsonOutput {
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}
