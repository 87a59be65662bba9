package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rapidmidiex/rmxtoys/chord"
	"github.com/rapidmidiex/rmxtoys/drift"
	"github.com/rapidmidiex/rmxtoys/export"
	"github.com/rapidmidiex/rmxtoys/jam"
	"github.com/rapidmidiex/rmxtoys/midi"
	"github.com/rapidmidiex/rmxtoys/player"
	"github.com/rapidmidiex/rmxtoys/schedule"
	"github.com/rapidmidiex/rmxtoys/theory"
	"github.com/rapidmidiex/rmxtoys/toys"
)

var (
	outDir     string
	formats    []string
	convertURL string
	baseName   string

	jamID     string
	createJam bool
	alsoPlay  bool
)

var playCmd = &cobra.Command{
	Use:   "play <toy> <input...>",
	Short: "Play a toy through the speaker",
	Example: `  rmxtoys play text-to-tone hello world
  rmxtoys play chords "C Am F G7"
  rmxtoys play emotions joy then calm`,
	Args: cobra.MinimumNArgs(2),
	RunE: runPlay,
}

var renderCmd = &cobra.Command{
	Use:   "render <toy> <input...>",
	Short: "Write a toy as WAV, MIDI, WebVTT captions and a frame plan",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRender,
}

var showCmd = &cobra.Command{
	Use:   "show <toy> <input...>",
	Short: "Print the notes and captions a toy would play",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runShow,
}

var chordCmd = &cobra.Command{
	Use:   "chord <symbol...>",
	Short: "Spell chord symbols",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChord,
}

var toysCmd = &cobra.Command{
	Use:   "toys",
	Short: "List the toys",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, toy := range toys.All() {
			fmt.Fprintf(w, "%s\t%s\n", toy.Name(), toy.Describe())
		}
		w.Flush()
	},
}

var jamsCmd = &cobra.Command{
	Use:   "jams",
	Short: "List the rooms of the jam server",
	Args:  cobra.NoArgs,
	RunE:  runJams,
}

var shareCmd = &cobra.Command{
	Use:   "share <toy> <input...>",
	Short: "Stream a toy's notes and captions into a jam room",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runShare,
}

// buildSchedule resolves the toy in args[0] and schedules the rest of args.
func buildSchedule(cmd *cobra.Command, args []string) (toys.Toy, *schedule.Schedule, error) {
	toy, err := toys.Lookup(args[0])
	if err != nil {
		return nil, nil, err
	}
	base, err := cfg.ScheduleOptions()
	if err != nil {
		return nil, nil, err
	}
	s, res, err := toys.Build(toy, strings.Join(args[1:], " "), base)
	if err != nil {
		return nil, nil, err
	}
	if res.Truncated {
		fmt.Fprintf(cmd.ErrOrStderr(), "input cut to %q\n", res.Input)
	}
	logger.Debug("scheduled",
		zap.String("toy", toy.Name()),
		zap.Int("events", len(s.Events)),
		zap.Duration("duration", s.Duration),
	)
	return toy, s, nil
}

func exportOptions(dir string, fs []export.Format) export.Options {
	return export.Options{
		Dir:        dir,
		FPS:        cfg.Playback.FPS,
		Formats:    fs,
		Converter:  cfg.Converter(),
		ConvertExt: cfg.Export.ConvertExt,
		Logger:     logger,
	}
}

func speaker() (*player.SpeakerOutput, error) {
	out := player.NewSpeakerOutput(cfg.Audio.SampleRate, cfg.BufferDuration())
	if err := out.Init(); err != nil {
		return nil, fmt.Errorf("open speaker: %w", err)
	}
	return out, nil
}

func newPlayer() (*player.Player, error) {
	newRenderer, err := midi.NewFactory(cfg.Audio.SoundFont, cfg.Audio.SampleRate)
	if err != nil {
		return nil, err
	}
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}
	out, err := speaker()
	if err != nil {
		return nil, err
	}
	return player.New(player.Opts{
		Renderer: r,
		Output:   out,
		FPS:      cfg.Playback.FPS,
		Logger:   logger,
	}), nil
}

// captionPrinter prints each caption as playback reaches it.
func captionPrinter(w io.Writer, s *schedule.Schedule) func(schedule.Frame) {
	last := -1
	return func(f schedule.Frame) {
		if f.Caption < 0 || f.Caption == last {
			return
		}
		last = f.Caption
		c := s.Captions[f.Caption]
		fmt.Fprintf(w, "%6s  %s\n", stamp(c.Start), c.Text)
	}
}

func stamp(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func runPlay(cmd *cobra.Command, args []string) error {
	_, s, err := buildSchedule(cmd, args)
	if err != nil {
		return err
	}
	p, err := newPlayer()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	late, err := p.Play(cmd.Context(), s, captionPrinter(w, s))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "played %s: %s\n", durafmt.Parse(s.Duration.Round(time.Millisecond)), drift.Summarize(late))
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	toy, s, err := buildSchedule(cmd, args)
	if err != nil {
		return err
	}

	fs, err := cfg.ExportFormats()
	if err != nil {
		return err
	}
	if len(formats) > 0 {
		fs = fs[:0]
		for _, name := range formats {
			f, err := export.ParseFormat(name)
			if err != nil {
				return err
			}
			fs = append(fs, f)
		}
	}
	dir := cfg.Export.Dir
	if outDir != "" {
		dir = outDir
	}
	o := exportOptions(dir, fs)
	o.Base = toy.Name()
	if baseName != "" {
		o.Base = baseName
	}
	if convertURL != "" {
		o.Converter = export.NewConverter(convertURL)
		o.Converter.Retries = cfg.Export.Retries
	}

	newRenderer, err := midi.NewFactory(cfg.Audio.SoundFont, cfg.Audio.SampleRate)
	if err != nil {
		return err
	}
	r, err := newRenderer()
	if err != nil {
		return err
	}
	report, err := export.Export(cmd.Context(), s, r, o)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for _, f := range report.Files {
		fmt.Fprintf(w, "%-12s %8s  %s\n", f.Format, humanize.Bytes(uint64(f.Size)), f.Path)
	}
	if report.ConvertErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "conversion failed, kept the wav: %v\n", report.ConvertErr)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	toy, s, err := buildSchedule(cmd, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %q in %s at %.0f bpm, %s layout\n\n",
		toy.Name(), s.Input, s.Options.Key, s.Options.BPM, s.Options.Layout)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "START\tLENGTH\tNOTE\tNAME\tDEGREE\tNODE\tTOKEN")
	for _, e := range s.Events {
		degree := "-"
		if e.Degree > 0 {
			degree = fmt.Sprint(e.Degree)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%d\t%q\n",
			stamp(e.Start), stamp(e.Duration), e.Note, e.Name, degree, e.Node, s.Tokens[e.Token].Text)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d notes, %d captions, %s\n",
		len(s.Events), len(s.Captions), durafmt.Parse(s.Duration.Round(time.Millisecond)))
	return nil
}

func runChord(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	var errs []error
	for _, sym := range args {
		c, err := chord.Parse(sym)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		notes, err := c.Notes(4)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		names := make([]string, len(notes))
		for i, n := range notes {
			names[i] = theory.MIDIToName(n, false)
		}
		intervals := make([]string, 0, len(c.Intervals()))
		for _, iv := range c.Intervals() {
			intervals = append(intervals, theory.IntervalName(iv))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c, strings.Join(names, " "), strings.Join(intervals, " "))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func runJams(cmd *cobra.Command, args []string) error {
	client, err := jam.NewClient(cfg.Server, logger)
	if err != nil {
		return err
	}
	jams, err := client.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(jams) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No Jams Yet. Create one with: rmxtoys share --create")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tID\tPLAYERS")
	for _, j := range jams {
		fmt.Fprintf(w, "%s\t%s\t%s\n", j.Name, j.ID, humanize.Comma(int64(j.PlayerCount)))
	}
	return w.Flush()
}

func runShare(cmd *cobra.Command, args []string) error {
	toy, s, err := buildSchedule(cmd, args)
	if err != nil {
		return err
	}
	client, err := jam.NewClient(cfg.Server, logger)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	id := jamID
	if createJam {
		if id, err = client.Create(ctx); err != nil {
			return err
		}
	}
	if id == "" {
		return errors.New("share: pass --jam <id> or --create")
	}

	sess, err := client.Dial(ctx, id)
	if err != nil {
		return err
	}
	defer sess.Close()
	// The server greets with our user ID.
	if _, err := sess.Read(); err != nil {
		return err
	}

	var p *player.Player
	if alsoPlay {
		if p, err = newPlayer(); err != nil {
			return err
		}
	}

	clock := player.SystemClock{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sess.Publish(gctx, toy.Name(), s, clock)
	})
	if p != nil {
		g.Go(func() error {
			_, err := p.Play(gctx, s, captionPrinter(cmd.OutOrStdout(), s))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "shared %d notes to jam %s as %s\n", len(s.Events), id, sess.UserID())
	return nil
}
