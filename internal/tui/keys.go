package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap 全屏界面的快捷键
// KeyMap holds the keybindings of the full-screen interface.
type KeyMap struct {
	NextView, PrevView   key.Binding
	ToggleMode, Submit   key.Binding
	Organize, Review     key.Binding
	Brainstorm, Record   key.Binding
	Cancel, ClearChat    key.Binding
	Quit                 key.Binding
	ScrollUp, ScrollDown key.Binding
}

func bind(help string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], help))
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextView:   bind("next view", "tab"),
		PrevView:   bind("previous view", "shift+tab"),
		ToggleMode: bind("capture/chat", "ctrl+t"),
		Submit:     bind("send", "enter"),
		Organize:   bind("organize", "ctrl+o"),
		Review:     bind("weekly review", "ctrl+r"),
		Brainstorm: bind("brainstorm input", "ctrl+b"),
		Record:     bind("record", "ctrl+v"),
		Cancel:     bind("cancel", "esc"),
		ClearChat:  bind("clear chat", "ctrl+l"),
		Quit:       bind("quit", "ctrl+c"),
		ScrollUp:   bind("scroll up", "pgup"),
		ScrollDown: bind("scroll down", "pgdown"),
	}
}

