package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cropdesk/internal/crop"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func run() error {
	var args cliArgs
	cliCtx := kong.Parse(
		&args,
		kong.Name("cropdesk"),
		kong.Description("Crop images to a fixed-size publication asset."),
		kong.UsageOnError(),
	)

	level := zerolog.InfoLevel
	if args.Verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.NewConsoleWriter()).Level(level)
	zerolog.DefaultContextLogger = &log.Logger

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = log.Logger.WithContext(ctx)

	cliCtx.BindTo(ctx, (*context.Context)(nil))
	cliCtx.Bind(cancel)
	if err := cliCtx.Run(); err != nil {
		return err
	}

	return nil
}

type outputFlags struct {
	OutputWidth  int     `help:"Output width in pixels" default:"1200" env:"CROPDESK_OUTPUT_WIDTH"`
	OutputHeight int     `help:"Output height in pixels" default:"628" env:"CROPDESK_OUTPUT_HEIGHT"`
	Format       string  `help:"Output format (${enum})" default:"jpeg" enum:"jpeg,jpg,png,webp" env:"CROPDESK_FORMAT"`
	Quality      float64 `help:"Output quality, in (0, 1]" default:"0.9" env:"CROPDESK_QUALITY"`
}

func (f outputFlags) spec() (crop.OutputSpec, error) {
	format, err := crop.ParseFormat(f.Format)
	if err != nil {
		return crop.OutputSpec{}, err
	}
	spec := crop.OutputSpec{
		Width:   f.OutputWidth,
		Height:  f.OutputHeight,
		Format:  format,
		Quality: f.Quality,
	}
	if err := spec.Validate(); err != nil {
		return crop.OutputSpec{}, fmt.Errorf("invalid output flags: %w", err)
	}
	return spec, nil
}

type viewportFlags struct {
	ViewportWidth  float64 `help:"Maximum display width of the editor, in pixels" default:"960" env:"CROPDESK_VIEWPORT_WIDTH"`
	ViewportHeight float64 `help:"Maximum display height of the editor, in pixels" default:"640" env:"CROPDESK_VIEWPORT_HEIGHT"`
}

func (f viewportFlags) dimensions() crop.Dimensions {
	return crop.Dimensions{Width: f.ViewportWidth, Height: f.ViewportHeight}
}

type serveCmd struct {
	RootDir   string        `arg:"" type:"existingdir" help:"Root directory to serve images from"`
	OutputDir string        `help:"Directory exported crops are written to (default: <root>/output)" type:"path"`
	Open      bool          `help:"Open the browser automatically when the server starts" default:"true" negatable:""`
	Once      bool          `help:"Exit after the first export" default:"true" negatable:""`
	Viewport  viewportFlags `embed:""`
	Output    outputFlags   `embed:""`
}

func (cmd *serveCmd) Run(ctx context.Context, cancel context.CancelFunc) error {
	spec, err := cmd.Output.spec()
	if err != nil {
		return err
	}
	outputDir := cmd.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(cmd.RootDir, "output")
	}

	app := NewWebApp(Config{
		RootDir: cmd.RootDir,
		Publisher: Publisher{
			BaseDir:   cmd.RootDir,
			OutputDir: outputDir,
			Viewport:  cmd.Viewport.dimensions(),
			Spec:      spec,
		},
		OnBeforeShutdown: func() {
			log.Ctx(ctx).Info().Msg("Shutting down web application...")
		},
		OnReady: func(addr string) {
			log.Ctx(ctx).Info().Stringer("output", spec).Msgf("Server started at %s", addr)
			if cmd.Open {
				if err := openBrowser(addr); err != nil {
					log.Error().Err(err).Msg("Failed to open browser")
				}
			}
		},
		OnExport: func(path string) {
			log.Ctx(ctx).Info().Str("path", path).Msg("Crop exported")
			if cmd.Once {
				cancel()
			}
		},
	})

	if err := app.Run(ctx); err != nil {
		return err
	}

	return nil
}

type analyzeCmd struct {
	File   string      `arg:"" type:"existingfile" help:"Image to inspect"`
	Output outputFlags `embed:""`
}

func (cmd *analyzeCmd) Run(ctx context.Context) error {
	spec, err := cmd.Output.spec()
	if err != nil {
		return err
	}
	src, err := crop.Load(cmd.File)
	if err != nil {
		return err
	}
	natural := crop.DimensionsOf(src)
	diagnostics := crop.Analyze(natural, spec)
	log.Ctx(ctx).Debug().
		Str("filename", cmd.File).
		Stringer("natural", natural).
		Int("diagnostics", len(diagnostics)).
		Msg("analyzed")
	printJSONL(diagnostics)
	return nil
}

type exportCmd struct {
	File     string        `arg:"" type:"existingfile" help:"Source image"`
	Out      string        `short:"o" type:"path" help:"Output file (default: derived from the crop, next to the source)"`
	Rect     []float64     `help:"Crop rectangle in display space as x,y,w,h (default: centered)"`
	Viewport viewportFlags `embed:""`
	Output   outputFlags   `embed:""`
}

func (cmd *exportCmd) Run(ctx context.Context) error {
	spec, err := cmd.Output.spec()
	if err != nil {
		return err
	}
	if len(cmd.Rect) != 0 && len(cmd.Rect) != 4 {
		return fmt.Errorf("--rect needs 4 values, got %d", len(cmd.Rect))
	}
	src, err := crop.Load(cmd.File)
	if err != nil {
		return err
	}

	return crop.WithSession(src, cmd.Viewport.dimensions(), spec, func(s *crop.Session) error {
		for _, d := range s.Diagnostics() {
			log.Ctx(ctx).Warn().Str("severity", string(d.Severity)).Str("code", d.Code).Msg(d.Message)
		}
		if len(cmd.Rect) == 4 {
			if _, err := s.SetRect(crop.Rect{X: cmd.Rect[0], Y: cmd.Rect[1], Width: cmd.Rect[2], Height: cmd.Rect[3]}); err != nil {
				return err
			}
		}
		log.Ctx(ctx).Info().Str("rect", s.Rect().String()).Stringer("display", s.Display()).Msg("exporting")

		var out string
		var size int
		err := s.ExportWith(ctx, func(r crop.Rect, data []byte) error {
			out = cmd.Out
			if out == "" {
				out = filepath.Join(filepath.Dir(cmd.File), OutputName(cmd.File, r, spec))
			}
			if err := os.WriteFile(out, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			size = len(data)
			return nil
		})
		if err != nil {
			return err
		}
		log.Ctx(ctx).Info().Str("path", out).Int("bytes", size).Msg("Crop exported")
		return nil
	})
}

type cliArgs struct {
	Verbose bool `help:"Enable verbose logging" default:"false" short:"v"`

	Serve   serveCmd   `cmd:"" default:"withargs" help:"Serve the interactive crop editor"`
	Analyze analyzeCmd `cmd:"" help:"Print diagnostics for an image as JSON lines"`
	Export  exportCmd  `cmd:"" help:"Crop and export an image without the editor"`
}

func printJSONL[T any](data []T) {
	enc := json.NewEncoder(os.Stdout)
	for _, item := range data {
		if err := enc.Encode(item); err != nil {
			log.Error().Err(err).Msg("Failed to encode item to JSON")
			continue
		}
	}
}
