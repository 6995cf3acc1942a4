package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/cellfield/bubbles/internal/channel"
	"github.com/cellfield/bubbles/internal/config"
	"github.com/cellfield/bubbles/internal/encode"
	"github.com/cellfield/bubbles/internal/field"
	"github.com/cellfield/bubbles/internal/geo"
	"github.com/cellfield/bubbles/internal/influx"
	"github.com/cellfield/bubbles/internal/logging"
	"github.com/cellfield/bubbles/internal/model/core"
	intOtel "github.com/cellfield/bubbles/internal/otel"
	"github.com/cellfield/bubbles/internal/progress"
	"github.com/cellfield/bubbles/internal/render"
	"github.com/cellfield/bubbles/internal/storage"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// seedMix decorrelates the two PCG words derived from one seed.
const seedMix = 0x9e3779b97f4a7c15

// app holds the services of one invocation.
type app struct {
	stdout io.Writer
	start  time.Time
	runID  string

	canvas config.CanvasConfig
	output config.OutputConfig
	format encode.Format

	logFile *os.File
	otel    *intOtel.Provider
	slogMgr *logging.SlogManager
	logger  *slog.Logger
	zlog    zerolog.Logger
	runCtx  *logging.RunContext
	closers []func() error
}

func newApp(stdout, stderr io.Writer) (*app, error) {
	a := &app{
		stdout: stdout,
		start:  time.Now(),
		runID:  uuid.NewString(),
		canvas: config.GetCanvasConfig(),
		output: config.GetOutputConfig(),
	}

	if err := a.canvas.Validate(); err != nil {
		return nil, fmt.Errorf("invalid canvas: %w", err)
	}
	format, err := encode.ParseFormat(a.output.Format, a.output.Path)
	if err != nil {
		return nil, err
	}
	a.format = format

	if err := a.setupLogging(stderr); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) setupLogging(stderr io.Writer) error {
	lc := config.GetLogConfig()

	logFile, err := logging.OpenLogFile(lc.LogsDir, "bubbles", a.start)
	if err != nil {
		return err
	}
	a.logFile = logFile
	a.closers = append(a.closers, logFile.Close)

	oc := config.GetOTelConfig()
	a.otel, err = intOtel.New(intOtel.Config{
		Enabled:      oc.Enabled,
		ServiceName:  oc.ServiceName,
		BatchTimeout: oc.BatchTimeout,
		LogWriter:    logFile,
		Endpoint:     oc.Endpoint,
		Insecure:     oc.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OTel: %w", err)
	}

	opts := logging.SetupOptions{
		Level:    lc.Level,
		Console:  stderr,
		File:     logFile,
		Provider: a.otel.LoggerProvider(),
	}
	if lc.Graylog.Enabled {
		gw, err := logging.NewGraylogWriter(lc.Graylog.Address, "bubbles")
		if err != nil {
			return fmt.Errorf("failed to connect to Graylog: %w", err)
		}
		opts.Graylog = gw
		a.closers = append(a.closers, gw.Close)
	}

	a.runCtx = logging.NewRunContext(a.runID)
	opts.Context = a.runCtx.Provider()

	a.slogMgr = logging.NewSlogManager()
	a.slogMgr.Setup(opts)
	a.logger = a.slogMgr.Logger()
	a.zlog = logging.NewZerolog(logFile, lc.Level, a.runID)
	return nil
}

// render builds the field and drives every frame into the encoder.
func (a *app) render(ctx context.Context) error {
	cc := a.canvas

	seed, ok, err := cc.ParseSeed()
	if err != nil {
		return err
	}
	if !ok {
		seed = rand.Uint64()
	}
	kind, err := field.ParseKind(cc.Variant)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(seed, seed^seedMix))
	f, err := field.New(rng, cc.Width, cc.Height, cc.Cells,
		field.WithKind(kind),
		field.WithFullTurn(cc.FullTurn),
	)
	if err != nil {
		return err
	}

	a.logger.Info("Starting run",
		"version", Version,
		"width", cc.Width,
		"height", cc.Height,
		"frames", cc.Frames,
		"cells", cc.Cells,
		"seed", seed,
		"variant", kind.String(),
		"format", string(a.format),
		"out", a.output.Path)

	catalog, err := a.openCatalog()
	if err != nil {
		return err
	}
	run := &core.Run{
		UUID:       a.runID,
		StartedAt:  a.start,
		Width:      cc.Width,
		Height:     cc.Height,
		Frames:     cc.Frames,
		Cells:      cc.Cells,
		Seed:       seed,
		Variant:    kind.String(),
		OutputPath: a.output.Path,
		Format:     string(a.format),
		Params: map[string]any{
			"fullTurn":    cc.FullTurn,
			"workers":     cc.Workers,
			"delay":       a.output.Delay,
			"dither":      a.output.Dither,
			"paletteSize": a.output.PaletteSize,
		},
	}
	if err := catalog.StartRun(run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	observers := []render.Observer{
		render.ObserverFunc(func(_ context.Context, stats render.FrameStats) error {
			a.runCtx.SetFrame(stats.Index)
			return nil
		}),
		storage.FrameObserver(catalog),
	}
	if obs := a.influxObserver(ctx); obs != nil {
		observers = append(observers, obs)
	}
	var trace *geo.Recorder
	if a.output.TracePath != "" {
		trace = geo.NewRecorder()
		observers = append(observers, trace)
	}

	runErr := a.renderTo(ctx, f, observers)

	var size int64
	if runErr == nil {
		if fi, err := os.Stat(a.output.Path); err == nil {
			size = fi.Size()
		}
	}
	if err := catalog.EndRun(core.Outcome{FinishedAt: time.Now(), Err: runErr, OutputSize: size}); err != nil {
		a.logger.Error("Failed to close run record", "error", err)
	}
	if exp, ok := catalog.(storage.Exporter); ok && exp.ExportedFilePath() != "" {
		a.logger.Info("Run report written", "path", exp.ExportedFilePath())
	}
	if runErr != nil {
		return runErr
	}

	if trace != nil {
		if err := trace.Save(a.output.TracePath); err != nil {
			return err
		}
		a.logger.Info("Trajectories written", "path", a.output.TracePath, "points", f.Len())
	}

	elapsed := time.Since(a.start)
	a.logger.Info("Animation written",
		"path", a.output.Path,
		"size", humanize.Bytes(uint64(size)),
		"elapsed", elapsed.Round(time.Millisecond).String())
	fmt.Fprintf(a.stdout, "%s: %d frames, %s in %s\n",
		a.output.Path, cc.Frames, humanize.Bytes(uint64(size)), elapsed.Round(time.Millisecond))
	return nil
}

func (a *app) renderTo(ctx context.Context, f *field.Field, observers []render.Observer) error {
	cc := a.canvas

	enc, err := encode.Create(a.output.Path, a.format, cc.Width, cc.Height, encode.Options{
		Delay:       a.output.Delay,
		Dither:      a.output.Dither,
		PaletteSize: a.output.PaletteSize,
	})
	if err != nil {
		return err
	}

	r, err := render.New(render.Canvas{Width: cc.Width, Height: cc.Height, Frames: cc.Frames}, f,
		render.WithWorkers(cc.Workers),
		render.WithLogger(logging.NewRenderLogger(a.zlog)),
		render.WithObserver(observers...),
	)
	if err != nil {
		_ = enc.Close()
		return err
	}

	events := channel.NewUnbounded[int]()
	reporter := progress.NewReporter(progress.Dependencies{
		Out:    a.stdout,
		Total:  cc.Frames,
		Width:  a.terminalWidth(),
		Styled: a.isTerminal(),
	})
	if err := reporter.Start(events); err != nil {
		return err
	}

	runErr := r.Run(ctx, enc, events)
	reporter.Wait()

	if err := enc.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to write %s: %w", a.output.Path, err)
	}
	if runErr != nil {
		a.logger.Error("Rendering failed", "error", runErr, "state", r.State().String())
		_ = os.Remove(a.output.Path)
	}
	return runErr
}

func (a *app) influxObserver(ctx context.Context) render.Observer {
	ic := config.GetInfluxConfig()
	if !ic.Enabled {
		return nil
	}
	m := influx.NewManager(a.zlog, ic)
	if err := m.Connect(ctx); err != nil {
		a.logger.Warn("Frame metrics export disabled", "error", err)
		return nil
	}
	a.closers = append(a.closers, m.Close)
	return m.Observer(a.runID)
}

func (a *app) terminalWidth() int {
	if f, ok := a.stdout.(*os.File); ok {
		return progress.TerminalWidth(f)
	}
	return progress.DefaultWidth
}

func (a *app) isTerminal() bool {
	f, ok := a.stdout.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// close releases everything in reverse order of acquisition.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.slogMgr != nil {
		if err := a.slogMgr.Flush(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "flushing logs:", err)
		}
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "shutting down OTel:", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			fmt.Fprintln(os.Stderr, "closing:", err)
		}
	}
	a.closers = nil
}
