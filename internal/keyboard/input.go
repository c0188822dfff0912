package keyboard

// KeyEvent is a physical key transition as delivered by a window system.
type KeyEvent struct {
	Char   string
	Down   bool
	Repeat bool

	Shift, Ctrl, Alt, Meta bool
}

func (ev KeyEvent) modified() bool {
	return ev.Shift || ev.Ctrl || ev.Alt || ev.Meta
}

// Action is a note on/off request for a key index.
type Action struct {
	KeyIndex int
	On       bool
}

// Translate maps a key event to a note action. Chords with a modifier, auto
// repeated key-downs and characters outside Chars produce no action.
func Translate(ev KeyEvent) (Action, bool) {
	if ev.modified() {
		return Action{}, false
	}
	i, ok := CharIndex(ev.Char)
	if !ok {
		return Action{}, false
	}
	if ev.Down && ev.Repeat {
		return Action{}, false
	}
	return Action{KeyIndex: i, On: ev.Down}, true
}

// Port receives note on/off by key index.
type Port interface {
	NoteOn(keyIndex int)
	NoteOff(keyIndex int)
}

// Dispatch translates ev and forwards it to p. It reports whether the event
// was consumed, so the caller can suppress the window system's default handling.
func Dispatch(p Port, ev KeyEvent) bool {
	a, ok := Translate(ev)
	if !ok {
		return false
	}
	if a.On {
		p.NoteOn(a.KeyIndex)
	} else {
		p.NoteOff(a.KeyIndex)
	}
	return true
}
