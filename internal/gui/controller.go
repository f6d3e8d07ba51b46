package gui

import (
	"context"

	. "modernc.org/tk9.0"

	"github.com/thiagokokada/gitlanes/internal/git"
	"github.com/thiagokokada/gitlanes/internal/gui/selection"
	"github.com/thiagokokada/gitlanes/internal/gui/widgets"
	"github.com/thiagokokada/gitlanes/internal/refresh"
	"github.com/thiagokokada/gitlanes/internal/report"
	"github.com/thiagokokada/gitlanes/internal/watch"
)

type Controller struct {
	svc   *git.Service
	coord *refresh.Coordinator
	sink  *report.Sink

	ctx    context.Context
	cancel context.CancelFunc

	cfg   controllerConfig
	repo  controllerRepo
	theme controllerTheme

	ui appWidgets

	state controllerState
}

type controllerConfig struct {
	autoReloadRequested bool
	paddingRows         int
	geometry            widgets.Geometry
	watch               watch.Options
}

type controllerRepo struct {
	path    string
	head    git.HeadState
	changes git.LocalChanges
}

type controllerTheme struct {
	pref    ThemePreference
	palette colorPalette
}

type appWidgets struct {
	status       *TLabelWidget
	repoLabel    *TLabelWidget
	reloadButton *TButtonWidget
	fetchButton  *TButtonWidget
	pullButton   *TButtonWidget
	graphCanvas  *CanvasWidget
	graphScroll  *TScrollbarWidget
	shortcuts    *ToplevelWidget
}

type controllerState struct {
	painter   widgets.GraphCanvas
	selection selection.State
	watch     autoReloadState
	// showingReport is set while a report dialog is open; further entries
	// wait in the sink until it closes.
	showingReport bool
}
