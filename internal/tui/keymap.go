package tui

// Key binding constants used in handleKey.
const (
	KeyQuit      = "q"
	KeyCtrlC     = "ctrl+c"
	KeyControl   = "tab"
	KeyCancel    = "esc"
	KeySubmit    = "enter"
	KeyBackspace = "backspace"
)
