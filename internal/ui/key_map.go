package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	nextList key.Binding
	prevList key.Binding
	sort     key.Binding
	filter   key.Binding
	apply    key.Binding
	back     key.Binding
	expand   key.Binding
	loadAll  key.Binding
	export   key.Binding
	reload   key.Binding
	help     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		nextList: key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab", "next list")),
		prevList: key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("shift+tab", "previous list")),
		sort:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6"), key.WithHelp("1-6", "sort column")),
		filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		apply:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		expand:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		loadAll:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "load all rows")),
		export:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
		reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refetch")),
		help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.nextList, k.filter, k.sort, k.expand, k.export, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.nextList, k.prevList},
		{k.filter, k.apply, k.back},
		{k.sort, k.expand, k.loadAll},
		{k.export, k.reload, k.quit},
	}
}
