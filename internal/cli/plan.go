package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Conceptual-Machines/bachgen/internal/planner"
)

func newPlanCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [goldberg|toccata]",
		Short: "Show the sections a run would render",
		Example: `  bachgen plan goldberg --scale medium
  bachgen plan toccata --archetype sectionalis --bars 32`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"goldberg", "toccata"},
		RunE: func(cmd *cobra.Command, args []string) error {
			format := v.GetString("format")
			if !cmd.Flags().Changed("format") && format == formatMIDI {
				format = formatText
			}
			if len(args) == 1 && args[0] == "toccata" {
				return planToccata(cmd, v, format)
			}
			if len(args) == 1 && args[0] != "goldberg" {
				return fmt.Errorf("unknown form %q", args[0])
			}
			return planGoldberg(cmd, v, format)
		},
	}

	f := cmd.Flags()
	f.String("scale", "short", "Goldberg duration scale")
	f.String("archetype", "dramaticus", "Toccata archetype")
	f.Int("bars", 24, "Toccata length in bars")
	return cmd
}

func planGoldberg(cmd *cobra.Command, v *viper.Viper, format string) error {
	scale, err := planner.ParseDurationScale(v.GetString("scale"))
	if err != nil {
		return err
	}
	vars := planner.SelectVariations(planner.GoldbergPlan(), scale)
	if format == formatJSON {
		return printJSON(cmd, vars)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NO\tNAME\tTYPE\tMETER\tTEMPO\tVOICES")
	for _, d := range vars {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d/%d\t%d\n", d.Number, d.Name(), d.Type, d.TimeSignature, d.Tempo.Num, d.Tempo.Den, d.Voices)
	}
	return w.Flush()
}

func planToccata(cmd *cobra.Command, v *viper.Viper, format string) error {
	a, err := planner.ParseArchetype(v.GetString("archetype"))
	if err != nil {
		return err
	}
	bars := v.GetInt("bars")
	if bars < 1 {
		return fmt.Errorf("bars must be positive, got %d", bars)
	}
	sections := planner.ToccataPlan(a, bars)
	if format == formatJSON {
		return printJSON(cmd, sections)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSECTION\tPHASE\tBARS\tSTART\tENERGY\tMANUAL")
	for _, s := range sections {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%.2f\t%s\n", s.Index, s.Name, s.Phase, s.Bars, s.StartBar, s.Energy, s.Manual)
	}
	return w.Flush()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
