package gui

import (
	"fmt"

	. "modernc.org/tk9.0"

	"github.com/thiagokokada/gitlanes/internal/buildinfo"
)

func (a *Controller) initMenubar() {
	menubar := Menu(Tearoff(false))

	repoMenu := menubar.Menu(Tearoff(false))
	repoMenu.AddCommand(Lbl("Reload"), Command(a.reload))
	repoMenu.AddCommand(Lbl("Fetch"), Command(a.fetch))
	repoMenu.AddCommand(Lbl("Pull"), Command(a.pull))
	repoMenu.AddSeparator()
	repoMenu.AddCommand(Lbl("Quit"), Command(func() { Destroy(App) }))
	menubar.AddCascade(Lbl("Repository"), Mnu(repoMenu))

	helpMenu := menubar.Menu(Tearoff(false))
	helpMenu.AddCommand(Lbl("Keyboard Shortcuts"), Command(a.showShortcutsDialog))
	helpMenu.AddCommand(Lbl("About gitlanes"), Command(a.showAboutDialog))
	menubar.AddCascade(Lbl("Help"), Mnu(helpMenu))

	App.Configure(Mnu(menubar))
}

func (a *Controller) showAboutDialog() {
	MessageBox(
		Parent(App),
		Title("About gitlanes"),
		Icon("info"),
		Msg(fmt.Sprintf("gitlanes %s", buildinfo.String())),
		Type("ok"),
	)
}
