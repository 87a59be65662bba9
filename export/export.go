// Package export re-derives a schedule offline and writes it as audio, MIDI,
// captions and a frame plan.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/faiface/beep/wav"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rapidmidiex/rmxtoys/midi"
	"github.com/rapidmidiex/rmxtoys/schedule"
)

type Format string

const (
	WAV    Format = "wav"
	MIDI   Format = "mid"
	VTT    Format = "vtt"
	Frames Format = "frames.json"
)

var AllFormats = []Format{WAV, MIDI, VTT, Frames}

var ErrNoFormats = errors.New("no export formats")

type (
	Options struct {
		Dir  string
		Base string
		// FPS of the frame plan, defaults to 30.
		FPS     int
		Formats []Format
		// Converter, when set, also converts the WAV file to ConvertExt.
		Converter  *Converter
		ConvertExt string
		Logger     *zap.Logger
	}

	File struct {
		Format Format
		Path   string
		Size   int64
	}

	Report struct {
		Files []File
		// ConvertErr holds the last conversion error, if any.
		ConvertErr error
	}
)

func ParseFormat(s string) (Format, error) {
	for _, f := range AllFormats {
		if string(f) == s || (f == MIDI && s == "midi") || (f == Frames && s == "frames") {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

func (r Report) String() string {
	var b strings.Builder
	for _, f := range r.Files {
		fmt.Fprintf(&b, "%-12s %8s  %s\n", f.Format, humanize.Bytes(uint64(f.Size)), f.Path)
	}
	if r.ConvertErr != nil {
		fmt.Fprintf(&b, "conversion failed, kept the original: %v\n", r.ConvertErr)
	}
	return b.String()
}

// Export writes the requested formats concurrently. Audio is rendered with r,
// which must not be used elsewhere until Export returns.
func Export(ctx context.Context, s *schedule.Schedule, r midi.Renderer, o Options) (Report, error) {
	if len(o.Formats) == 0 {
		return Report{}, ErrNoFormats
	}
	if o.FPS <= 0 {
		o.FPS = 30
	}
	if o.Base == "" {
		o.Base = "rmxtoys"
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return Report{}, fmt.Errorf("create export dir: %w", err)
	}

	var (
		mu     sync.Mutex
		report Report
	)
	add := func(f File) {
		mu.Lock()
		defer mu.Unlock()
		report.Files = append(report.Files, f)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, format := range o.Formats {
		format := format
		path := filepath.Join(o.Dir, o.Base+"."+string(format))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var err error
			switch format {
			case WAV:
				err = writeFile(path, func(w io.WriteSeeker) error {
					ms := midi.RenderSchedule(r, s)
					return wav.Encode(w, ms, ms.Format())
				})
			case MIDI:
				err = writeFile(path, func(w io.WriteSeeker) error { return midi.WriteSMF(w, s) })
			case VTT:
				err = writeFile(path, func(w io.WriteSeeker) error { return WriteVTT(w, s) })
			case Frames:
				err = writeFile(path, func(w io.WriteSeeker) error { return WriteFrames(w, s, o.FPS) })
			default:
				err = fmt.Errorf("unknown export format %q", format)
			}
			if err != nil {
				return fmt.Errorf("export %s: %w", format, err)
			}
			f, err := stat(format, path)
			if err != nil {
				return err
			}
			add(f)
			o.Logger.Debug("exported", zap.String("path", path), zap.Int64("bytes", f.Size))

			if format == WAV && o.Converter != nil && o.ConvertExt != "" {
				cf, cerr := convert(ctx, o, path)
				if cerr != nil {
					mu.Lock()
					report.ConvertErr = cerr
					mu.Unlock()
				}
				if cf.Path != "" {
					add(cf)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	sortFiles(report.Files, o.Formats)
	return report, nil
}

// convert sends the file to the converter and writes whatever comes back,
// the original bytes included.
func convert(ctx context.Context, o Options, path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	res := o.Converter.Convert(ctx, filepath.Base(path), data, "audio/wav")
	if !res.Converted {
		o.Logger.Warn("conversion failed, keeping original", zap.String("path", path), zap.Error(res.Err))
		return File{}, res.Err
	}
	out := filepath.Join(o.Dir, o.Base+"."+o.ConvertExt)
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return File{}, err
	}
	return File{Format: Format(o.ConvertExt), Path: out, Size: int64(len(res.Data))}, nil
}

func writeFile(path string, write func(io.WriteSeeker) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}

func stat(format Format, path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	return File{Format: format, Path: path, Size: info.Size()}, nil
}

// sortFiles orders the report like the requested formats, conversions last.
func sortFiles(files []File, order []Format) {
	rank := func(f Format) int {
		for i, o := range order {
			if o == f {
				return i
			}
		}
		return len(order)
	}
	for i := 1; i < len(files); i++ {
		for j := i; j > 0 && rank(files[j].Format) < rank(files[j-1].Format); j-- {
			files[j], files[j-1] = files[j-1], files[j]
		}
	}
}

var vttEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// WriteVTT writes one WebVTT cue per caption. Each cue shows the whole input
// with the playing part in bold.
func WriteVTT(w io.Writer, s *schedule.Schedule) error {
	var b strings.Builder
	b.WriteString("WEBVTT\n")
	input := []rune(s.Input)
	for i, c := range s.Captions {
		fmt.Fprintf(&b, "\n%d\n%s --> %s\n", i+1, vttTime(c.Start), vttTime(c.End))
		lo, hi := c.Span[0], c.Span[1]
		if len(input) == 0 || lo < 0 || hi > len(input) || lo >= hi {
			b.WriteString(vttEscaper.Replace(c.Text))
		} else {
			b.WriteString(vttEscaper.Replace(string(input[:lo])))
			b.WriteString("<b>")
			b.WriteString(vttEscaper.Replace(string(input[lo:hi])))
			b.WriteString("</b>")
			b.WriteString(vttEscaper.Replace(string(input[hi:])))
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func vttTime(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}

type (
	framePlan struct {
		FPS        int         `json:"fps"`
		DurationMS int64       `json:"durationMs"`
		Input      string      `json:"input"`
		Frames     []planFrame `json:"frames"`
	}

	planFrame struct {
		TimeMS   int64   `json:"timeMs"`
		Caption  int     `json:"caption"`
		Trail    []int   `json:"trail"`
		Pulse    float64 `json:"pulse"`
		Progress float64 `json:"progress"`
		Notes    []int   `json:"notes"`
	}
)

// WriteFrames writes the frame plan as JSON.
func WriteFrames(w io.Writer, s *schedule.Schedule, fps int) error {
	frames, err := s.Frames(fps)
	if err != nil {
		return err
	}
	plan := framePlan{FPS: fps, DurationMS: s.Duration.Milliseconds(), Input: s.Input, Frames: make([]planFrame, len(frames))}
	for i, f := range frames {
		notes := make([]int, len(f.Active))
		for j, e := range f.Active {
			notes[j] = s.Events[e].Note
		}
		trail := f.Trail
		if trail == nil {
			trail = []int{}
		}
		plan.Frames[i] = planFrame{
			TimeMS:   f.Time.Milliseconds(),
			Caption:  f.Caption,
			Trail:    trail,
			Pulse:    f.Pulse,
			Progress: f.Progress,
			Notes:    notes,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}
