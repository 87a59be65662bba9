package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rapidmidiex/rmxtoys"
	"github.com/rapidmidiex/rmxtoys/config"
	"github.com/rapidmidiex/rmxtoys/jam"
	"github.com/rapidmidiex/rmxtoys/logging"
	"github.com/rapidmidiex/rmxtoys/midi"
	"github.com/rapidmidiex/rmxtoys/player"
	"github.com/rapidmidiex/rmxtoys/toyui"
)

var (
	// Global flags
	verbose    bool
	configPath string
	serverFlag string
	offline    bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd runs the TUI.
var rootCmd = &cobra.Command{
	Use:   "rmxtoys",
	Short: "Musical toys for the terminal",
	Long: `rmxtoys turns text, phone numbers, digits, chord symbols and feelings
into short pieces of music, drawn on a circle of twelve notes.

Run without arguments to open the interactive menu.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		if serverFlag != "" {
			cfg.Server = serverFlag
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}

		// The TUI owns the terminal, so it logs to a file.
		logger, err = logging.New(cfg.Logging, logging.Opts{
			Verbose: verbose,
			ToFile:  cmd == cmd.Root(),
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runTUI,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "RMX jam server (default: "+config.DefaultServer+")")
	rootCmd.Flags().BoolVar(&offline, "offline", false, "Do not list or join jams")

	renderCmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: export.dir from config)")
	renderCmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "Formats to write: wav, mid, vtt, frames.json")
	renderCmd.Flags().StringVar(&convertURL, "convert", "", "Post the WAV to this conversion endpoint")
	renderCmd.Flags().StringVar(&baseName, "name", "", "Base file name (default: toy name)")

	shareCmd.Flags().StringVar(&jamID, "jam", "", "Jam room to share to")
	shareCmd.Flags().BoolVar(&createJam, "create", false, "Create a new jam room to share to")
	shareCmd.Flags().BoolVar(&alsoPlay, "play", false, "Also play through the speaker")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(chordCmd)
	rootCmd.AddCommand(toysCmd)
	rootCmd.AddCommand(jamsCmd)
	rootCmd.AddCommand(shareCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	deps, err := toyDeps()
	if err != nil {
		return err
	}
	o := rmxtoys.Opts{Deps: deps, Logger: logger}
	if !offline {
		client, err := jam.NewClient(cfg.Server, logger)
		if err != nil {
			return err
		}
		o.Client = client
		o.Server = cfg.Server
	}
	logger.Info("starting tui", zap.String("server", o.Server))
	return rmxtoys.Run(o)
}

func toyDeps() (toyui.Deps, error) {
	base, err := cfg.ScheduleOptions()
	if err != nil {
		return toyui.Deps{}, err
	}
	newRenderer, err := midi.NewFactory(cfg.Audio.SoundFont, cfg.Audio.SampleRate)
	if err != nil {
		return toyui.Deps{}, err
	}
	formats, err := cfg.ExportFormats()
	if err != nil {
		return toyui.Deps{}, err
	}
	out := player.NewSpeakerOutput(cfg.Audio.SampleRate, cfg.BufferDuration())
	if err := out.Init(); err != nil {
		return toyui.Deps{}, fmt.Errorf("open speaker: %w", err)
	}
	return toyui.Deps{
		Base:        base,
		FPS:         cfg.Playback.FPS,
		NewRenderer: newRenderer,
		Output:      out,
		Export:      exportOptions(cfg.Export.Dir, formats),
		DisplayName: cfg.DisplayName(),
	}, nil
}
