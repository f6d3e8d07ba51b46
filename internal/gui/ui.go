package gui

import (
	"fmt"
	"log/slog"

	. "modernc.org/tk9.0"

	"github.com/thiagokokada/gitlanes/internal/gui/tkutil"
)

func (a *Controller) buildUI() {
	GridColumnConfigure(App, 0, Weight(1))
	GridRowConfigure(App, 1, Weight(1))
	a.initMenubar()

	controls := App.TFrame(Padding("8p"))
	Grid(controls, Row(0), Column(0), Sticky(WE))
	GridColumnConfigure(controls.Window, 0, Weight(1))

	a.ui.repoLabel = controls.TLabel(Txt(fmt.Sprintf("Repository: %s", a.repo.path)), Anchor(W))
	Grid(a.ui.repoLabel, Row(0), Column(0), Sticky(W))

	a.ui.fetchButton = controls.TButton(Txt("Fetch"), Command(a.fetch))
	Grid(a.ui.fetchButton, Row(0), Column(1), Sticky(E), Padx("4p"))
	a.ui.pullButton = controls.TButton(Txt("Pull"), Command(a.pull))
	Grid(a.ui.pullButton, Row(0), Column(2), Sticky(E), Padx("4p"))
	a.ui.reloadButton = controls.TButton(Txt("Reload"), Command(a.onReloadButton))
	Grid(a.ui.reloadButton, Row(0), Column(3), Sticky(E))

	graphArea := App.TFrame()
	Grid(graphArea, Row(1), Column(0), Sticky(NEWS), Padx("4p"), Pady("4p"))
	GridRowConfigure(graphArea.Window, 0, Weight(1))
	GridColumnConfigure(graphArea.Window, 0, Weight(1))

	a.ui.graphScroll = graphArea.TScrollbar()
	a.ui.graphCanvas = graphArea.Canvas(
		Background(a.theme.palette.Graph.Background),
		Highlightthickness(0),
		Width(900),
		Height(600),
		Yscrollincrement(int(a.cfg.geometry.RowPitch)),
		Yscrollcommand(func(e *Event) {
			e.ScrollSet(a.ui.graphScroll)
			a.scheduleRedraw()
		}),
	)
	Grid(a.ui.graphCanvas, Row(0), Column(0), Sticky(NEWS))
	Grid(a.ui.graphScroll, Row(0), Column(1), Sticky(NS))
	a.ui.graphScroll.Configure(Command(func(e *Event) { e.Yview(a.ui.graphCanvas) }))

	Bind(a.ui.graphCanvas, "<Configure>", Command(a.scheduleRedraw))
	Bind(a.ui.graphCanvas, "<Button-1>", Command(func(e *Event) {
		a.selectAt(e.Y)
	}))
	a.bindWheel()

	a.ui.status = App.TLabel(Anchor(W), Relief(SUNKEN), Padding("4p"))
	Grid(a.ui.status, Row(2), Column(0), Sticky(WE))

	a.bindShortcuts()
}

// bindWheel scrolls the canvas with the mouse wheel; Tk canvases do not
// do this on their own.
func (a *Controller) bindWheel() {
	canvas := a.ui.graphCanvas
	script := fmt.Sprintf(`
		bind %[1]s <MouseWheel> {%[1]s yview scroll [expr {-%%D/120}] units}
		bind %[1]s <Button-4> {%[1]s yview scroll -3 units}
		bind %[1]s <Button-5> {%[1]s yview scroll 3 units}
	`, canvas)
	if _, err := tkutil.Eval("%s", script); err != nil {
		slog.Error("bind mouse wheel", slog.Any("error", err))
	}
}

func (a *Controller) setButtonEnabled(btn *TButtonWidget, enabled bool) {
	if btn == nil {
		return
	}
	if enabled {
		btn.Configure(State("normal"))
		return
	}
	btn.Configure(State("disabled"))
}
