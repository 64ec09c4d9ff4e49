package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/traffic-sign-mcp/internal/pipeline"
)

func newExplainCmd(a *app) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:     "explain LABEL...",
		Short:   "Explain what sign labels mean for the driver",
		Example: `  sign-mcp explain "Speed Limit 80" stop_sign`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.newService(nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			explanations := make([]pipeline.Explanation, len(args))
			for i, label := range args {
				explanations[i] = svc.Explain(label)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(explanations)
			}
			for _, e := range explanations {
				fmt.Fprintf(out, "%s [%s]\n  %s\n", e.Label, e.Rule, e.Explanation)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print explanations as JSON")
	return cmd
}

func newLabelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List the labels accepted by the manual override",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.newService(nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			for _, label := range svc.Labels() {
				fmt.Fprintln(cmd.OutOrStdout(), label)
			}
			return nil
		},
	}
}

func newRulesCmd(a *app) *cobra.Command {
	var yamlOut bool

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the meaning rules in evaluation order",
		Long: `Lists the active meaning rules. The first rule matching a label explains it;
the last rule matches every label. --yaml prints the table in the form accepted
by the meaning_rules configuration key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.newService(nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			out := cmd.OutOrStdout()
			rules := svc.Rules()
			if yamlOut {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(map[string]any{"meaning_rules": rules})
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tMATCH\tEXPLANATION")
			for _, r := range rules {
				match := r.Match.Kind
				if r.Match.Value != "" {
					match += " " + r.Match.Value
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, match, r.Explanation)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&yamlOut, "yaml", false, "Print the rule table as YAML")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	var save string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Prints the configuration after defaults, the config file and environment
overrides are applied. --save writes it to a file as a starting point.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if save != "" {
				if err := a.cfg.Save(save); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", save)
				return nil
			}
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "Write the effective configuration to this file")
	return cmd
}
