package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/banshee-data/flow.report/internal/config"
	"github.com/banshee-data/flow.report/internal/crossing"
	"github.com/banshee-data/flow.report/internal/db"
	"github.com/banshee-data/flow.report/internal/monitor"
	"github.com/banshee-data/flow.report/internal/monitoring"
	"github.com/banshee-data/flow.report/internal/pipeline"
	"github.com/banshee-data/flow.report/internal/render"
	"github.com/banshee-data/flow.report/internal/replay"
	"github.com/banshee-data/flow.report/internal/report"
	"github.com/banshee-data/flow.report/internal/tracking"
)

// runOptions are run flags that are not settings.
type runOptions struct {
	fps           float64
	stdinControls bool
	stdin         io.Reader
}

// flagKeys maps run flags to settings keys.
var flagKeys = map[string]string{
	"source":     "source",
	"directions": "directions",
	"tuning":     "tuning",
	"output-csv": "output.csv",
	"chart":      "output.chart",
	"timeline":   "output.timeline",
	"db":         "db.path",
	"window":     "ui.window",
	"terminal":   "ui.terminal",
	"render-hz":  "ui.render_hz",
	"monitor":    "ui.monitor_addr",
	"verbose":    "ui.verbose",
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Count crossings in a video, a camera or a detection log",
		Long: `Count crossings until the source ends or the user quits.

A source of digits opens that camera index, a .csv file is replayed as a
detection log, and anything else is opened as a video file. Camera and
video input need a build with -tags gocv.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := root.loadSettings(func(v *viper.Viper) error {
				for flag, key := range flagKeys {
					if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			opts.stdin = cmd.InOrStdin()
			_, err = runFlow(cmd.Context(), s, *opts, cmd.OutOrStdout())
			return err
		},
	}

	f := cmd.Flags()
	f.String("source", "0", "camera index, video file or .csv detection log")
	f.String("directions", "traffic_directions.json", "JSON document with the six direction lines")
	f.String("tuning", "", "optional JSON tuning document")
	f.String("output-csv", "traffic_counts.csv", "where to save the final counts")
	f.String("chart", "", "optional HTML bar chart of the final counts")
	f.String("timeline", "", "optional PNG plot of cumulative crossings")
	f.String("db", "", "optional SQLite run database")
	f.Bool("window", true, "show the video window (gocv builds)")
	f.Bool("terminal", false, "print a live count table")
	f.Float64("render-hz", 2, "terminal table refresh rate; 0 prints every frame")
	f.String("monitor", "", "serve live counts over HTTP on this address")
	f.BoolP("verbose", "v", false, "log track lifecycle events")
	f.Float64Var(&opts.fps, "fps", 0, "pace detection-log replay to this frame rate; 0 replays at full speed")
	f.BoolVar(&opts.stdinControls, "stdin-controls", false, "read p/q/enter from stdin to pause, quit and resume")
	return cmd
}

// input is a source plus the collaborators that come with it.
type input struct {
	name     string
	source   pipeline.Source
	detector pipeline.Detector
	window   window // nil when no window is shown
	closers  []io.Closer
}

// window renders frames and reads keys.
type window interface {
	pipeline.Renderer
	pipeline.Controls
}

func (in *input) Close() {
	for i := len(in.closers) - 1; i >= 0; i-- {
		if err := in.closers[i].Close(); err != nil {
			monitoring.Logf("close input: %v", err)
		}
	}
}

func isDetectionLog(source string) bool {
	return strings.EqualFold(filepath.Ext(source), ".csv")
}

func openInput(s config.Settings, tuning *config.TuningConfig, fps float64) (*input, error) {
	if isDetectionLog(s.Source) {
		l, err := replay.LoadLog(s.Source)
		if err != nil {
			return nil, err
		}
		monitoring.Logf("replaying %d frames (%d boxes) from %s", len(l.Frames), l.Boxes(), s.Source)
		return &input{
			name:     s.Source,
			source:   replay.NewSource(l, fps),
			detector: replay.Detector{},
		}, nil
	}
	return openVideo(s, tuning)
}

// runFlow wires one run from settings, executes it and prints the summary
// to out.
func runFlow(ctx context.Context, s config.Settings, opts runOptions, out io.Writer) (pipeline.Summary, error) {
	dirs, err := config.LoadDirections(s.Directions)
	if err != nil {
		return pipeline.Summary{}, err
	}
	tuning := config.EmptyTuningConfig()
	if s.Tuning != "" {
		if tuning, err = config.LoadTuningConfig(s.Tuning); err != nil {
			return pipeline.Summary{}, err
		}
	}

	in, err := openInput(s, tuning, opts.fps)
	if err != nil {
		return pipeline.Summary{}, err
	}
	defer in.Close()

	cfg := pipeline.Config{
		Source:     in.source,
		Detector:   in.detector,
		Tracker:    tracking.NewTracker(tracking.TrackerConfigFromTuning(tuning)),
		Counter:    crossing.NewCounter(dirs),
		SourceName: in.name,
		Verbose:    s.UI.Verbose,
		Board:      pipeline.NewBoard(),
	}

	if s.Output.CSV != "" {
		cfg.Persisters = append(cfg.Persisters, &report.CSVWriter{Path: s.Output.CSV})
	}
	if s.Output.Chart != "" {
		cfg.Persisters = append(cfg.Persisters, &report.ChartWriter{Path: s.Output.Chart})
	}
	if s.Output.Timeline != "" {
		tl := report.NewTimeline(s.Output.Timeline, config.DirectionNames(dirs))
		cfg.EventSinks = append(cfg.EventSinks, tl)
		cfg.Persisters = append(cfg.Persisters, tl)
	}

	var store *db.DB
	if s.DB.Path != "" {
		if store, err = db.NewDB(s.DB.Path); err != nil {
			return pipeline.Summary{}, err
		}
		defer store.Close()
		cfg.Recorder = store
		cfg.EventSinks = append(cfg.EventSinks, store)
	}

	if in.window != nil && s.UI.Window {
		cfg.Renderers = append(cfg.Renderers, in.window)
		cfg.Controls = in.window
	}
	if s.UI.Terminal {
		cfg.Renderers = append(cfg.Renderers, render.NewTerminal(out, s.UI.RenderHz, nil))
	}
	if cfg.Controls == nil && opts.stdinControls && opts.stdin != nil {
		cfg.Controls = replay.NewChannelControls(ctx, replay.ReadKeys(ctx, opts.stdin))
	}

	runner, err := pipeline.New(cfg)
	if err != nil {
		return pipeline.Summary{}, err
	}

	var wg sync.WaitGroup
	monCtx, stopMonitor := context.WithCancel(ctx)
	defer func() {
		stopMonitor()
		wg.Wait()
	}()
	if s.UI.MonitorAddr != "" {
		srv, err := monitor.NewServer(monitor.Config{Address: s.UI.MonitorAddr, Board: cfg.Board, DB: store})
		if err != nil {
			return pipeline.Summary{}, err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Start(monCtx); err != nil {
				monitoring.Logf("monitor stopped: %v", err)
			}
		}()
	}

	summary, err := runner.Run(ctx)
	printSummary(out, summary, dirs, s.Output.CSV)
	return summary, err
}

func printSummary(out io.Writer, s pipeline.Summary, dirs []config.Direction, csvPath string) {
	fmt.Fprintln(out, "Final counts:")
	counts := make(map[string]int, len(s.Counts))
	for _, c := range s.Counts {
		counts[c.Name] = c.Count
	}
	for _, d := range dirs {
		fmt.Fprintf(out, "- %s: %d\n", d.Name, counts[d.Name])
	}
	fmt.Fprint(out, s.String())
	if csvPath != "" {
		fmt.Fprintf(out, "CSV saved: %s\n", csvPath)
	}
}
