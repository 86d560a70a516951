package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Save     key.Binding
	SaveAll  key.Binding
	Revert   key.Binding
	Reformat key.Binding
	Tree     key.Binding
	Copy     key.Binding
	NextTab  key.Binding
	PrevTab  key.Binding
	Reload   key.Binding
	Connect  key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Save:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		SaveAll:  key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "save all")),
		Revert:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "revert")),
		Reformat: key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "reformat")),
		Tree:     key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "tree")),
		Copy:     key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy")),
		NextTab:  key.NewBinding(key.WithKeys("ctrl+right", "ctrl+pgdown"), key.WithHelp("ctrl+→", "next tab")),
		PrevTab:  key.NewBinding(key.WithKeys("ctrl+left", "ctrl+pgup"), key.WithHelp("ctrl+←", "prev tab")),
		Reload:   key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "fetch again")),
		Connect:  key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "connect")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) editorHelp() []key.Binding {
	return []key.Binding{k.Save, k.SaveAll, k.Revert, k.Reformat, k.Tree, k.Copy, k.NextTab, k.Reload, k.Connect, k.Quit}
}

func (k keyMap) formHelp(cancelable bool) []key.Binding {
	nav := key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field"))
	submit := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select"))
	bindings := []key.Binding{nav, submit}
	if cancelable {
		bindings = append(bindings, key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back to editor")))
	}
	return append(bindings, k.Quit)
}
