package gui

import (
	"fmt"
	"strings"

	. "modernc.org/tk9.0"
)

type shortcutBinding struct {
	sequences   []string
	display     string
	description string
	category    string
	handler     func()
}

func (a *Controller) bindShortcuts() {
	for _, sc := range a.shortcutBindings() {
		if sc.handler == nil {
			continue
		}
		for _, seq := range sc.sequences {
			if seq == "" {
				continue
			}
			Bind(App, seq, Command(sc.handler))
		}
	}
}

func (a *Controller) shortcutBindings() []shortcutBinding {
	return []shortcutBinding{
		{
			category:    "Graph",
			display:     "p / k / Up",
			description: "Select the previous commit",
			sequences:   []string{"<KeyPress-p>", "<KeyPress-k>", "<KeyPress-Up>"},
			handler:     func() { a.moveSelection(-1) },
		},
		{
			category:    "Graph",
			display:     "n / j / Down",
			description: "Select the next commit",
			sequences:   []string{"<KeyPress-n>", "<KeyPress-j>", "<KeyPress-Down>"},
			handler:     func() { a.moveSelection(1) },
		},
		{
			category:    "Graph",
			display:     "Home / End",
			description: "Select the first or last commit",
			sequences:   []string{"<KeyPress-Home>"},
			handler:     func() { a.selectEdge(false) },
		},
		{
			category:  "Graph",
			sequences: []string{"<KeyPress-End>"},
			handler:   func() { a.selectEdge(true) },
		},
		{
			category:    "Graph",
			display:     "Page Up / Page Down",
			description: "Scroll one page",
			sequences:   []string{"<KeyPress-Prior>"},
			handler:     func() { a.scrollPages(-1) },
		},
		{
			category:  "Graph",
			sequences: []string{"<KeyPress-Next>"},
			handler:   func() { a.scrollPages(1) },
		},
		{
			category:    "Repository",
			display:     "F5 / Ctrl+R",
			description: "Reload the graph",
			sequences:   []string{"<F5>", "<Control-KeyPress-r>"},
			handler:     a.reload,
		},
		{
			category:    "Repository",
			display:     "Ctrl+F",
			description: "Fetch all remotes",
			sequences:   []string{"<Control-KeyPress-f>"},
			handler:     a.fetch,
		},
		{
			category:    "Repository",
			display:     "Ctrl+P",
			description: "Pull the current branch",
			sequences:   []string{"<Control-KeyPress-p>"},
			handler:     a.pull,
		},
		{
			category:    "General",
			display:     "F1",
			description: "Show shortcut list",
			sequences:   []string{"<F1>"},
			handler:     a.showShortcutsDialog,
		},
		{
			category:    "General",
			display:     "Ctrl+Q",
			description: "Quit gitlanes",
			sequences:   []string{"<Control-KeyPress-q>"},
			handler:     func() { Destroy(App) },
		},
	}
}

func (a *Controller) showShortcutsDialog() {
	if a.ui.shortcuts != nil {
		Destroy(a.ui.shortcuts.Window)
		a.ui.shortcuts = nil
	}
	dialog := App.Toplevel()
	a.ui.shortcuts = dialog
	dialog.Window.WmTitle("Keyboard Shortcuts")
	WmTransient(dialog.Window, App)

	frame := dialog.TFrame(Padding("12p"))
	Grid(frame, Row(0), Column(0), Sticky(NEWS))
	GridColumnConfigure(frame.Window, 0, Weight(1))
	GridRowConfigure(frame.Window, 0, Weight(1))

	text := frame.Text(Width(56), Height(16), Wrap(WORD), Exportselection(false))
	text.Insert("1.0", formatShortcutsHelpText(a.shortcutBindings()))
	text.Configure(State("disabled"))
	Grid(text, Row(0), Column(0), Sticky(NEWS))

	closeBtn := frame.TButton(Txt("Close"), Command(func() { Destroy(dialog.Window) }))
	Grid(closeBtn, Row(1), Column(0), Sticky(E), Pady("8p 0"))

	Bind(dialog.Window, "<Destroy>", Command(func() {
		if a.ui.shortcuts == dialog {
			a.ui.shortcuts = nil
		}
	}))
	dialog.Window.Center()
}

// formatShortcutsHelpText lists bindings by category, skipping the ones
// without a display name; those are extra sequences of a listed entry.
func formatShortcutsHelpText(bindings []shortcutBinding) string {
	var b strings.Builder
	currentCategory := ""
	for _, sc := range bindings {
		if sc.category == "" || sc.display == "" || sc.description == "" {
			continue
		}
		if sc.category != currentCategory {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			currentCategory = sc.category
			b.WriteString(currentCategory)
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "  %-20s %s\n", sc.display, sc.description)
	}
	return strings.TrimRight(b.String(), "\n")
}
