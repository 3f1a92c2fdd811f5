package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Conceptual-Machines/bachgen/internal/generator"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/services"
)

func newGoldbergCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goldberg",
		Short: "Generate a Goldberg variation set",
		Long: `Generate an aria with variations over its ground bass.

Scales select how much of the plan is rendered:
  short   12 pieces
  medium  22 pieces
  long    all 32 pieces
  full    all 32 pieces, always with repeats`,
		Example: `  bachgen goldberg --seed 7 --scale full -o goldberg.mid
  bachgen goldberg --key "E minor" --format json -o -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repeats := v.GetBool("repeats")
			req := models.GenerationRequest{
				Form:            services.FormGoldberg,
				Key:             v.GetString("key"),
				Seed:            v.GetUint32("seed"),
				BPM:             v.GetInt("bpm"),
				Scale:           v.GetString("scale"),
				ApplyRepeats:    &repeats,
				OrnamentRepeats: v.GetBool("ornament-repeats"),
			}
			return generate(cmd, v, req)
		},
	}

	f := cmd.Flags()
	f.Uint32("seed", 0, "Random seed (0 picks one from the clock)")
	f.String("key", "G", `Tonic and mode, e.g. "G", "E minor", "Bbm"`)
	f.Int("bpm", int(generator.DefaultBPM), "Aria tempo")
	f.String("scale", "short", "Duration scale: short, medium, long, full")
	f.Bool("repeats", true, "Play each half twice")
	f.Bool("ornament-repeats", false, "Vary ornaments on repeated halves")
	return cmd
}

func newToccataCmd(v *viper.Viper) *cobra.Command {
	def := generator.DefaultToccataConfig()
	cmd := &cobra.Command{
		Use:   "toccata",
		Short: "Generate an organ toccata",
		Long: `Generate a multi-section organ toccata for manuals and pedal.

Archetypes:
  dramaticus   eight sections from opening gesture to final explosion
  perpetuus    ascent, plateau and climax in unbroken moto perpetuo
  concertato   allegro, adagio and vivace
  sectionalis  prelude, fugato, interlude, pedal cadenza and finale`,
		Example: `  bachgen toccata --archetype dramaticus --key "D minor" -o toccata.mid
  BACHGEN_SEED=3 bachgen toccata --bars 32`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			picardy := v.GetBool("picardy")
			req := models.GenerationRequest{
				Form:          services.FormToccata,
				Key:           v.GetString("key"),
				Seed:          v.GetUint32("seed"),
				BPM:           v.GetInt("bpm"),
				Archetype:     v.GetString("archetype"),
				NumVoices:     v.GetInt("voices"),
				TotalBars:     v.GetInt("bars"),
				EnablePicardy: &picardy,
			}
			return generate(cmd, v, req)
		},
	}

	f := cmd.Flags()
	f.Uint32("seed", 0, "Random seed (0 picks one from the clock)")
	f.String("key", def.Key.String(), "Tonic and mode")
	f.Int("bpm", int(def.BPM), "Tempo")
	f.String("archetype", def.Archetype.String(), "dramaticus, perpetuus, concertato, sectionalis")
	f.Int("voices", def.Voices, "Number of voices (2-5)")
	f.Int("bars", def.TotalBars, "Total length in bars")
	f.Bool("picardy", def.Picardy, "End a minor-key toccata on a major chord")
	return cmd
}

func generate(cmd *cobra.Command, v *viper.Viper, req models.GenerationRequest) error {
	comp, err := services.NewComposerService().Compose(cmd.Context(), req)
	if err != nil {
		return err
	}
	res := comp.Result
	if !res.Success {
		return fmt.Errorf("generation failed: %s", res.Error)
	}

	format := v.GetString("format")
	out := v.GetString("out")
	switch format {
	case formatMIDI:
		if out == "" {
			out = fmt.Sprintf("%s-%d.mid", req.Form, res.Seed)
		}
		err = writeOutput(cmd, out, func(w io.Writer) error {
			_, err := w.Write(comp.MIDI)
			return err
		})
	case formatJSON:
		if out == "" {
			out = "-"
		}
		err = writeOutput(cmd, out, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		})
	default:
		return fmt.Errorf("unknown format %q (want midi or json)", format)
	}
	if err != nil {
		return err
	}

	if out != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s: %s in %s, seed %d, %d notes on %d tracks\n",
			out, req.Form, res.Key, res.Seed, res.NoteCount(), len(res.Tracks))
	}
	return nil
}

func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
