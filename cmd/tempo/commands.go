package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/tartampluch/go-tempo/internal/config"
	"github.com/tartampluch/go-tempo/internal/locale"
	"github.com/tartampluch/go-tempo/internal/pipeline"
	"github.com/tartampluch/go-tempo/internal/server"
	"github.com/tartampluch/go-tempo/internal/validate"
	"github.com/tartampluch/go-tempo/pkg/clock"
	"github.com/tartampluch/go-tempo/pkg/clock/easing"
)

const (
	tabMinWidth = 0
	tabWidth    = 8
	tabPadding  = 2
	tabPadChar  = ' '
)

// easingPreview are the inputs shown by the easings command.
var easingPreview = []float32{0.25, 0.5, 0.75}

// App carries the dependencies shared by every command.
type App struct {
	Ctx     context.Context
	Out     io.Writer
	Lang    string // empty means "from settings, else default"
	Fetcher pipeline.ExprFetcher
	Sampler *pipeline.Sampler
}

func newApp(ctx context.Context, out io.Writer, lang string) *App {
	return &App{
		Ctx:     ctx,
		Out:     out,
		Lang:    lang,
		Fetcher: pipeline.NewHTTPFetcher(),
		Sampler: pipeline.NewSampler(),
	}
}

// -----------------------------------------------------------------------------
// sample
// -----------------------------------------------------------------------------

// SampleCmd samples a pipeline over a time range.
type SampleCmd struct {
	Expr   string  `short:"e" help:"${help_expr}" xor:"source"`
	URL    string  `short:"u" help:"${help_url}" xor:"source"`
	From   float64 `help:"${help_from}" default:"${default_from}"`
	To     float64 `help:"${help_to}" default:"${default_to}"`
	Step   float64 `help:"${help_step}" default:"${default_step}"`
	Format string  `short:"f" help:"${help_format}" default:"${default_format}" enum:"${formats}"`
}

// Run implements the sample command.
func (c *SampleCmd) Run(app *App) error {
	expr, err := c.resolveExpr(app.Ctx, app.Fetcher)
	if err != nil {
		return err
	}

	tl, err := app.Sampler.Sample(app.Ctx, pipeline.Request{
		Expr: expr,
		From: c.From,
		To:   c.To,
		Step: c.Step,
	})
	if err != nil {
		return err
	}

	if c.Format == config.FormatTable {
		return writeTable(app.Out, locale.New(app.Lang), tl)
	}
	return pipeline.Encode(app.Out, c.Format, tl)
}

func (c *SampleCmd) resolveExpr(ctx context.Context, fetcher pipeline.ExprFetcher) (string, error) {
	switch {
	case c.Expr != "":
		return c.Expr, nil
	case c.URL != "":
		return fetcher.Fetch(ctx, c.URL)
	default:
		return "", errors.New(config.ErrSourceMissing)
	}
}

// writeTable prints a localized summary followed by aligned time/value columns.
func writeTable(w io.Writer, tr *locale.Translator, tl pipeline.Timeline) error {
	tw := tabwriter.NewWriter(w, tabMinWidth, tabWidth, tabPadding, tabPadChar, 0)

	_, _ = fmt.Fprintln(tw, tr.Msg(config.TKeySummary, map[string]any{
		"Count": len(tl.Samples),
		"Expr":  tl.Expr,
	}))
	_, _ = fmt.Fprintln(tw, tr.Msg(config.TKeyRange, map[string]any{
		"Min": tr.Number(tl.Min),
		"Max": tr.Number(tl.Max),
	}))
	_, _ = fmt.Fprintln(tw)
	_, _ = fmt.Fprintf(tw, "%s\t%s\n", tr.Msg(config.TKeyColTime, nil), tr.Msg(config.TKeyColValue, nil))

	for _, s := range tl.Samples {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", tr.Number(s.Time), tr.Number(s.Value))
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrEncode, err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// serve
// -----------------------------------------------------------------------------

// ServeCmd publishes the configured timeline and the live stream over HTTP.
type ServeCmd struct {
	Config string `short:"c" help:"${help_config}" type:"path"`
	Port   int    `short:"p" help:"${help_port}"`
}

// Run implements the serve command. With a settings file, edits to the
// timeline and tick rate are applied without a restart.
func (c *ServeCmd) Run(app *App) error {
	log := slog.With(config.LogKeyComponent, config.CompMain)

	reloads := make(chan *config.Settings, config.ChannelBufferSize)
	onChange := func(s *config.Settings) {
		select {
		case reloads <- s:
		case <-app.Ctx.Done():
		}
	}

	var (
		settings *config.Settings
		err      error
	)
	if c.Config != "" {
		settings, err = config.WatchSettings(c.Config, validate.Struct, onChange)
	} else {
		settings, err = config.LoadSettings("", validate.Struct)
	}
	if err != nil {
		return err
	}

	if c.Port != 0 {
		if c.Port < config.MinPort || c.Port > config.MaxPort {
			return fmt.Errorf("%s: %d", config.ErrInvalidSettings, c.Port)
		}
		settings.Server.Port = c.Port
	}

	port := strconv.Itoa(settings.Server.Port)
	srv := server.NewTimelineServer(settings.Server.Bind, port, settings.Live.TickRate)
	srv.Sampler = app.Sampler

	if err := publish(app.Ctx, srv, app.Sampler, settings.Timeline); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-app.Ctx.Done():
				log.Debug(config.MsgCtxCancel)
				return
			case s := <-reloads:
				srv.SetTickRate(s.Live.TickRate)
				if err := publish(app.Ctx, srv, app.Sampler, s.Timeline); err != nil {
					log.Error(config.ErrPublish, config.LogKeyError, err)
				}
			}
		}
	}()

	tr := locale.New(lo.CoalesceOrEmpty(app.Lang, settings.Language))
	_, _ = fmt.Fprintln(app.Out, tr.Msg(config.TKeyServeReady, map[string]any{
		"URL": "http://" + net.JoinHostPort(settings.Server.Bind, port),
	}))

	err = srv.Start(app.Ctx)
	_, _ = fmt.Fprintln(app.Out, tr.Msg(config.TKeyServeStopped, nil))
	return err
}

// publish samples the timeline settings and hands the result to the server.
func publish(ctx context.Context, srv *server.TimelineServer, sampler *pipeline.Sampler, ts config.TimelineSettings) error {
	tl, err := sampler.Sample(ctx, pipeline.Request{
		Expr: ts.Expr,
		From: ts.From,
		To:   ts.To,
		Step: ts.Step,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrPublish, err)
	}
	return srv.Publish(tl)
}

// -----------------------------------------------------------------------------
// easings
// -----------------------------------------------------------------------------

// EasingsCmd lists the easing curves with a few sample values.
type EasingsCmd struct{}

// Run implements the easings command. Every curve is evaluated through an
// eased clock over a manual source, exactly as a pipeline would.
func (c *EasingsCmd) Run(app *App) error {
	tr := locale.New(app.Lang)
	tw := tabwriter.NewWriter(app.Out, tabMinWidth, tabWidth, tabPadding, tabPadChar, 0)

	_, _ = fmt.Fprintln(tw, tr.Msg(config.TKeyEasingsTitle, nil))
	_, _ = fmt.Fprintln(tw)

	source := clock.NewManual()
	for _, name := range easing.Names() {
		f, _ := easing.Lookup(name)
		eased, err := clock.Ease(clock.Normalize(source, 1), f)
		if err != nil {
			return err
		}

		row := lo.Map(easingPreview, func(t float32, _ int) string {
			source.Set(t)
			return tr.Number(eased.GetTime())
		})
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, row[0], row[1], row[2])
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrEncode, err)
	}
	return nil
}
