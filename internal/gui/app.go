package gui

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thiagokokada/gitlanes/internal/git"
	"github.com/thiagokokada/gitlanes/internal/graph"
	"github.com/thiagokokada/gitlanes/internal/gui/widgets"
	"github.com/thiagokokada/gitlanes/internal/refresh"
	"github.com/thiagokokada/gitlanes/internal/report"
	"github.com/thiagokokada/gitlanes/internal/watch"

	. "modernc.org/tk9.0"
	_ "modernc.org/tk9.0/themes/azure" // load theme
)

const graphMargin = 6

// RunConfig describes the parameters that control the GUI runtime.
type RunConfig struct {
	RepoPath        string
	ThemePreference ThemePreference
	AutoReload      bool
	IncludeRemotes  bool
	PaddingRows     int
	RowPitch        float32
	LaneSpacing     float32
	Watch           watch.Options
}

func Run(cfg RunConfig) error {
	if cfg.RepoPath == "" {
		cfg.RepoPath = "."
	}
	if err := InitializeExtension("eval"); err != nil && err != AlreadyInitialized {
		return fmt.Errorf("init eval extension: %v", err)
	}
	svc, err := git.Open(cfg.RepoPath)
	if err != nil {
		return err
	}
	pref := cfg.ThemePreference
	if pref < ThemeAuto || pref > ThemeDark {
		pref = ThemeAuto
	}
	sink := report.NewSink()
	ctx, cancel := context.WithCancel(context.Background())
	app := &Controller{
		svc:    svc,
		sink:   sink,
		ctx:    ctx,
		cancel: cancel,
		coord: refresh.New(svc, sink, refresh.Options{
			Walk: graph.WalkOptions{IncludeRemotes: cfg.IncludeRemotes},
		}),
		cfg: controllerConfig{
			autoReloadRequested: cfg.AutoReload,
			paddingRows:         cfg.PaddingRows,
			geometry: widgets.Geometry{
				RowPitch:    cfg.RowPitch,
				LaneSpacing: cfg.LaneSpacing,
				Margin:      graphMargin,
			},
			watch: cfg.Watch,
		},
		repo:  controllerRepo{path: svc.RepoPath()},
		theme: controllerTheme{pref: pref},
	}
	return app.run()
}

func (a *Controller) run() error {
	defer a.shutdown()
	a.theme.palette = paletteForPreference(a.theme.pref)
	if a.theme.palette.ThemeName != "" {
		err := ActivateTheme(a.theme.palette.ThemeName)
		if err != nil {
			slog.Error(
				"activate theme",
				slog.String("theme", a.theme.palette.ThemeName),
				slog.Any("error", err),
			)
		}
	}
	a.buildUI()
	a.connectCoordinator()
	go func() {
		if err := a.coord.Run(a.ctx); err != nil && a.ctx.Err() == nil {
			slog.Error("coordinator stopped", slog.Any("error", err))
		}
	}()
	a.initAutoReload(a.cfg.autoReloadRequested)
	a.setStatus("Loading commits...")
	a.reload()
	App.WmTitle("gitlanes")
	App.SetResizable(true, true)
	App.Center().Wait()
	return nil
}

func (a *Controller) shutdown() {
	a.disableAutoReload()
	a.cancel()
}

func (a *Controller) reload() {
	a.coord.TriggerRefresh(a.ctx)
}

func (a *Controller) fetch() {
	if a.coord.TriggerFetch(a.ctx) {
		a.setStatus("Fetching all remotes...")
	}
}

func (a *Controller) pull() {
	if a.coord.TriggerPull(a.ctx) {
		a.setStatus("Pulling current branch...")
	}
}

func (a *Controller) setStatus(msg string) {
	text := msg
	PostEvent(func() {
		if a.ui.status != nil {
			a.ui.status.Configure(Txt(text))
		}
	}, false)
}
