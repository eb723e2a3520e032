package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/passes"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/propagation"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/tle"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/transform"
)

const deg = 180 / math.Pi

func newPropagateCmd(a *app) *cobra.Command {
	var (
		start  string
		step   time.Duration
		count  int
		asJSON bool
		scene  bool
	)
	cmd := &cobra.Command{
		Use:   "propagate",
		Short: "Print the simulated body's ephemeris",
		Long:  "Samples the configured model from --start (default: the element epoch) every --step and prints TEME positions.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 || count > 100000 {
				return fmt.Errorf("--count must be 1-100000, got %d", count)
			}
			ds, err := tle.Load(cmd.Context(), a.cfg.Elements, a.logger)
			if err != nil {
				return err
			}
			store := tle.NewStore()
			store.Set(ds)
			prop := propagation.NewPropagator(store, a.cfg.Propagation, a.logger)
			m, err := prop.Model()
			if err != nil {
				return err
			}

			t0 := m.Elements().Epoch
			if start != "" {
				if t0, err = time.Parse(time.RFC3339, start); err != nil {
					return fmt.Errorf("--start: %w", err)
				}
			}
			track, err := prop.Track(cmd.Context(), t0, step, count)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(track)
			}
			return printTrack(cmd.OutOrStdout(), track, step, a.cfg.Sim.ScaleKm, scene)
		},
	}
	f := cmd.Flags()
	f.StringVar(&start, "start", "", "first sample time, RFC3339")
	f.DurationVar(&step, "step", time.Minute, "time between samples")
	f.IntVar(&count, "count", 93, "number of samples")
	f.BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	f.BoolVar(&scene, "scene", false, "print scene coordinates instead of kilometres")
	return cmd
}

func printTrack(out io.Writer, track *propagation.Track, step time.Duration, scaleKm float64, scene bool) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	if scene {
		fmt.Fprintln(tw, "time\tminutes\tscene x\tscene y\tscene z\t")
	} else {
		fmt.Fprintln(tw, "time\tminutes\tx km\ty km\tz km\tspeed km/s\t")
	}
	for i, s := range track.Samples {
		at := track.Start.Add(time.Duration(i) * step).Format(time.RFC3339)
		if s.Err != nil {
			fmt.Fprintf(tw, "%s\t%.2f\t%s\t\n", at, s.Minutes, s.Err)
			continue
		}
		p := s.State.PositionKm
		if scene {
			v, err := transform.ToScene(p, scaleKm)
			if err != nil {
				fmt.Fprintf(tw, "%s\t%.2f\t%s\t\n", at, s.Minutes, err)
				continue
			}
			fmt.Fprintf(tw, "%s\t%.2f\t%.4f\t%.4f\t%.4f\t\n", at, s.Minutes, v.X, v.Y, v.Z)
			continue
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%.3f\t%.3f\t%.3f\t%.4f\t\n", at, s.Minutes, p.X, p.Y, p.Z, s.State.VelocityKmS.Norm())
	}
	if track.Errors > 0 {
		fmt.Fprintf(tw, "%d samples failed\t\n", track.Errors)
	}
	return tw.Flush()
}

func newElementsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "elements [file]",
		Short: "Parse element sets and print their fields",
		Long:  "Reads a catalog file (or the configured source), verifies each entry and prints the decoded elements.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lc := a.cfg.Elements
			if len(args) == 1 {
				lc = tle.LoadConfig{File: args[0]}
			}
			ds, err := tle.Load(cmd.Context(), lc, a.logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "source %s, %d entries, epochs %s to %s\n\n",
				ds.Source, len(ds.Satellites),
				ds.EpochRange.Min.Format(time.RFC3339), ds.EpochRange.Max.Format(time.RFC3339))

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "norad\tname\tepoch\tepoch jd\tincl\traan\tecc\targp\tmean anom\trev/day\tbstar\ta km\tperiod min")
			for _, e := range ds.Satellites {
				el := e.Elements
				// Semi-major axis and period use the recovered mean motion.
				axis, period := "-", "-"
				if m, err := propagation.New(el); err == nil {
					axis = fmt.Sprintf("%.1f", m.SemiMajorAxisKm())
					period = fmt.Sprintf("%.2f", m.PeriodMinutes())
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%.6f\t%.4f\t%.4f\t%.7f\t%.4f\t%.4f\t%.8f\t%.4e\t%s\t%s\n",
					e.NORADID, e.Name, e.Epoch.Format(time.RFC3339), el.EpochJD(),
					el.InclinationRad*deg, el.RAANRad*deg, el.Eccentricity,
					el.ArgPerigeeRad*deg, el.MeanAnomalyRad*deg,
					el.MeanMotionRevPerDay, el.BStar, axis, period)
			}
			return tw.Flush()
		},
	}
}

func newPassesCmd(a *app) *cobra.Command {
	var (
		hours     float64
		minEl     float64
		maxPasses int
		lat, lon  float64
		altM      float64
	)
	cmd := &cobra.Command{
		Use:   "passes",
		Short: "Predict passes of the simulated body over the observer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := tle.Load(cmd.Context(), a.cfg.Elements, a.logger)
			if err != nil {
				return err
			}
			entry, ok := ds.Find(a.cfg.Propagation.NORADID)
			if !ok {
				return fmt.Errorf("NORAD %d not in dataset %s", a.cfg.Propagation.NORADID, ds.Source)
			}

			obs := a.cfg.Observer
			if cmd.Flags().Changed("lat") {
				obs.LatDeg = lat
			}
			if cmd.Flags().Changed("lon") {
				obs.LonDeg = lon
			}
			if cmd.Flags().Changed("alt") {
				obs.AltM = altM
			}

			results := passes.Predict(cmd.Context(), passes.Request{
				Observer:     obs.Position(),
				Entries:      []tle.TLEEntry{entry},
				Model:        a.cfg.Propagation.Model,
				Start:        time.Now().UTC(),
				HorizonHours: hours,
				MinElevation: minEl,
				MaxPasses:    maxPasses,
			})

			out := cmd.OutOrStdout()
			for _, body := range results {
				fmt.Fprintf(out, "%s (NORAD %d, %s) from %.4f, %.4f\n", body.Name, body.NORADID, body.Model, obs.LatDeg, obs.LonDeg)
				if body.Error != "" {
					fmt.Fprintf(out, "  error: %s\n", body.Error)
					continue
				}
				if len(body.Passes) == 0 {
					fmt.Fprintf(out, "  no passes above %.0f degrees in the next %.0f hours\n", minEl, hours)
					continue
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "  rise\taz\tmax\tel\taz\tset\taz\tduration")
				for _, p := range body.Passes {
					fmt.Fprintf(tw, "  %s\t%.0f\t%s\t%.1f\t%.0f\t%s\t%.0f\t%s\n",
						p.StartTime.Format(time.RFC3339), p.StartAzimuth,
						p.MaxElevationTime.Format("15:04:05"), p.MaxElevation, p.AzimuthAtMax,
						p.EndTime.Format("15:04:05"), p.EndAzimuth,
						time.Duration(p.DurationSeconds*float64(time.Second)).Round(time.Second))
				}
				tw.Flush()
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.Float64Var(&hours, "hours", 24, "prediction window")
	f.Float64Var(&minEl, "min-el", 10, "minimum peak elevation, degrees")
	f.IntVar(&maxPasses, "max", 10, "maximum passes to list")
	f.Float64Var(&lat, "lat", 0, "observer latitude (default: configured observer)")
	f.Float64Var(&lon, "lon", 0, "observer longitude (default: configured observer)")
	f.Float64Var(&altM, "alt", 0, "observer altitude, metres")
	return cmd
}
