package main

import (
	"fmt"
	"image/color"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tuningbox/edoseq"
	"github.com/tuningbox/edoseq/internal/config"
	"github.com/tuningbox/edoseq/internal/keyboard"
	"github.com/tuningbox/edoseq/internal/project"
	"github.com/tuningbox/edoseq/internal/sequence"
	"github.com/tuningbox/edoseq/internal/synth"
	"github.com/tuningbox/edoseq/internal/tuning"
)

const (
	windowW    = 1100
	windowH    = 560
	minWindowW = 640
	minWindowH = 420

	keyboardTop    = 40
	keyboardHeight = 220
	gridTop        = keyboardTop + keyboardHeight + 30
	cellW          = 42
	lineH          = 16
)

var (
	bgColor       = color.RGBA{0x1e, 0x1e, 0x24, 0xff}
	pressedColor  = color.RGBA{0xe0, 0x9a, 0x30, 0xff}
	selectedColor = color.RGBA{0x30, 0x70, 0xc0, 0xff}
	playheadColor = color.RGBA{0x40, 0x40, 0x50, 0xff}
	borderColor   = color.RGBA{0x10, 0x10, 0x10, 0xff}
)

// physicalKeys binds window-system keys to the characters keyboard.Chars uses.
var physicalKeys = map[ebiten.Key]string{
	ebiten.KeyQ: "q", ebiten.KeyW: "w", ebiten.KeyE: "e", ebiten.KeyR: "r",
	ebiten.KeyT: "t", ebiten.KeyY: "y", ebiten.KeyU: "u", ebiten.KeyI: "i",
	ebiten.KeyO: "o", ebiten.KeyP: "p", ebiten.KeyBracketLeft: "[",
	ebiten.KeyBracketRight: "]", ebiten.KeyBackslash: "\\",

	ebiten.KeyA: "a", ebiten.KeyS: "s", ebiten.KeyD: "d", ebiten.KeyF: "f",
	ebiten.KeyG: "g", ebiten.KeyH: "h", ebiten.KeyJ: "j", ebiten.KeyK: "k",
	ebiten.KeyL: "l", ebiten.KeySemicolon: ";", ebiten.KeyQuote: "'",

	ebiten.KeyZ: "z", ebiten.KeyX: "x", ebiten.KeyC: "c", ebiten.KeyV: "v",
	ebiten.KeyB: "b", ebiten.KeyN: "n", ebiten.KeyM: "m", ebiten.KeyComma: ",",
	ebiten.KeyPeriod: ".", ebiten.KeySlash: "/",
}

type game struct {
	session *edoseq.Session
	events  <-chan edoseq.PlaybackEvent
	log     logrus.FieldLogger

	held    map[int]bool
	keysBuf []ebiten.Key
	loops   int

	status    string
	statusErr bool

	viewW int
	viewH int
}

func newGame(s *edoseq.Session, log logrus.FieldLogger) *game {
	return &game{
		session: s,
		events:  s.Watch(),
		log:     log,
		held:    make(map[int]bool),
		status:  "Ready. Space plays, arrows select, Enter holds, Backspace clears.",
		viewW:   windowW,
		viewH:   windowH,
	}
}

func (g *game) Update() error {
	g.pollEvents()
	g.handleKeys()
	return nil
}

func (g *game) modifiers() (shift, ctrl, alt, meta bool) {
	return ebiten.IsKeyPressed(ebiten.KeyShift),
		ebiten.IsKeyPressed(ebiten.KeyControl),
		ebiten.IsKeyPressed(ebiten.KeyAlt),
		ebiten.IsKeyPressed(ebiten.KeyMeta)
}

func (g *game) handleKeys() {
	shift, ctrl, alt, meta := g.modifiers()

	g.keysBuf = inpututil.AppendJustReleasedKeys(g.keysBuf[:0])
	for _, k := range g.keysBuf {
		char, ok := physicalKeys[k]
		if !ok {
			continue
		}
		// Releases are never filtered by modifiers, or a key held while
		// Shift goes down would sound forever.
		ev := keyboard.KeyEvent{Char: char, Down: false}
		if keyboard.Dispatch(g.session, ev) {
			i, _ := keyboard.CharIndex(char)
			delete(g.held, i)
		}
	}

	g.keysBuf = inpututil.AppendJustPressedKeys(g.keysBuf[:0])
	for _, k := range g.keysBuf {
		if char, ok := physicalKeys[k]; ok {
			ev := keyboard.KeyEvent{Char: char, Down: true, Shift: shift, Ctrl: ctrl, Alt: alt, Meta: meta}
			if keyboard.Dispatch(g.session, ev) {
				i, _ := keyboard.CharIndex(char)
				g.held[i] = true
			}
			continue
		}
		g.handleCommand(k)
	}
}

func (g *game) handleCommand(k ebiten.Key) {
	s := g.session
	var err error
	switch k {
	case ebiten.KeySpace:
		err = s.TogglePlaying()
		if err == nil && s.Playing() {
			g.loops = 0
			g.setStatus("Playing")
		}
	case ebiten.KeyArrowLeft:
		s.MoveSelection(-1, 0)
	case ebiten.KeyArrowRight:
		s.MoveSelection(1, 0)
	case ebiten.KeyArrowUp:
		s.MoveSelection(0, -1)
	case ebiten.KeyArrowDown:
		s.MoveSelection(0, 1)
	case ebiten.KeyEnter:
		err = s.SetSelectedStep(sequence.HoldStep)
	case ebiten.KeyBackspace, ebiten.KeyDelete:
		err = s.SetSelectedStep(sequence.EmptyStep)
	case ebiten.KeyEscape:
		err = s.SetSelection(nil)
	case ebiten.KeyMinus:
		s.SetKeyboardOffset(s.KeyboardOffset() - s.Subdivisions())
	case ebiten.KeyEqual:
		s.SetKeyboardOffset(s.KeyboardOffset() + s.Subdivisions())
	case ebiten.KeyPageDown, ebiten.KeyPageUp:
		n := s.Subdivisions() + 1
		if k == ebiten.KeyPageDown {
			n = s.Subdivisions() - 1
		}
		// Changing the tuning releases every sounding key.
		if err = s.SetSubdivisions(n); err == nil {
			clear(g.held)
		}
	case ebiten.KeyTab:
		if s.Accidental() == tuning.Sharp {
			s.SetAccidental(tuning.Flat)
		} else {
			s.SetAccidental(tuning.Sharp)
		}
	case ebiten.KeyF5:
		var hash string
		if hash, err = s.Share(); err == nil {
			fmt.Fprintln(os.Stdout, hash)
			g.setStatus("Share hash written to stdout")
		}
	default:
		return
	}
	if err != nil {
		g.setError(err.Error())
	}
}

func (g *game) pollEvents() {
	for {
		select {
		case ev, ok := <-g.events:
			if !ok {
				return
			}
			switch ev.Kind {
			case edoseq.EventLoopCompleted:
				g.loops++
				g.setStatus(fmt.Sprintf("Playing (loop %d)", g.loops+1))
			case edoseq.EventPlaybackEnded:
				g.setStatus("Stopped")
			}
		default:
			return
		}
	}
}

func (g *game) setStatus(msg string) {
	g.status = msg
	g.statusErr = false
}

func (g *game) setError(msg string) {
	g.log.WithField("error", msg).Warn("command failed")
	g.status = "Error: " + msg
	g.statusErr = true
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	g.drawHeader(screen)
	g.drawKeyboard(screen)
	g.drawGrid(screen)
	ebitenutil.DebugPrintAt(screen, g.status, 10, g.viewH-lineH-6)
}

func (g *game) drawHeader(screen *ebiten.Image) {
	s := g.session
	seq := s.Sequence()
	header := fmt.Sprintf("%d-EDO  %s  offset %d  %d steps x %d tracks  %.0f BPM",
		s.Subdivisions(), s.Accidental(), s.KeyboardOffset(), seq.Len(), seq.NumberOfTracks, seq.BPM())
	ebitenutil.DebugPrintAt(screen, header, 10, 10)
}

func gray(v float64) color.RGBA {
	c := uint8(40 + v*200)
	return color.RGBA{c, c, c, 0xff}
}

func (g *game) drawKeyboard(screen *ebiten.Image) {
	keys := g.session.Keys()
	if len(keys) == 0 {
		return
	}
	last := keys[len(keys)-1]
	span := last.X + last.Width
	for _, k := range keys {
		if !k.IsShort {
			span = max(span, k.X+k.Width)
		}
	}
	unit := float64(g.viewW-20) / span

	draw := func(i int, k keyboard.Key) {
		x := 10 + k.X*unit
		w := k.Width * unit
		h := float64(keyboardHeight)
		fill := gray(k.Color)
		if k.IsShort {
			h *= 0.6
		}
		if g.held[i] {
			fill = pressedColor
		}
		ebitenutil.DrawRect(screen, x, keyboardTop, w, h, borderColor)
		ebitenutil.DrawRect(screen, x+1, keyboardTop+1, w-2, h-2, fill)
		label := k.Char
		if k.Pitch.Tone != nil {
			label += "\n" + tuning.PitchName(k.Pitch, g.session.Accidental())
		}
		ebitenutil.DebugPrintAt(screen, label, int(x)+3, keyboardTop+int(h)-2*lineH-4)
	}
	// Short keys overlap their neighbours, so they go on top.
	for i, k := range keys {
		if !k.IsShort {
			draw(i, k)
		}
	}
	for i, k := range keys {
		if k.IsShort {
			draw(i, k)
		}
	}
}

func (g *game) drawGrid(screen *ebiten.Image) {
	s := g.session
	seq := s.Sequence()
	pitches := s.Pitches()
	sel, hasSel := s.Selection()
	current, playing := s.CurrentStep()

	visible := max(1, (g.viewW-60)/cellW)
	first := 0
	if hasSel && sel.Step >= visible {
		first = sel.Step - visible + 1
	}
	for t := 0; t < seq.NumberOfTracks; t++ {
		y := gridTop + t*(lineH+6)
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("T%d", t+1), 10, y)
		for i := first; i < seq.Len() && i < first+visible; i++ {
			x := 50 + (i-first)*cellW
			switch {
			case hasSel && sel.Step == i && sel.Track == t:
				ebitenutil.DrawRect(screen, float64(x-2), float64(y-2), cellW-4, lineH+4, selectedColor)
			case playing && current == i:
				ebitenutil.DrawRect(screen, float64(x-2), float64(y-2), cellW-4, lineH+4, playheadColor)
			}
			ebitenutil.DebugPrintAt(screen, cellText(seq.Steps[i][t], pitches, s.Accidental()), x, y)
		}
	}
}

func cellText(st sequence.Step, pitches []tuning.Pitch, a tuning.Accidental) string {
	switch st.Kind {
	case sequence.KindPitch:
		if st.PitchIndex >= 0 && st.PitchIndex < len(pitches) {
			return tuning.PitchName(pitches[st.PitchIndex], a)
		}
		return "?"
	case sequence.KindHold:
		return "--"
	default:
		return "."
	}
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	g.viewW = max(outsideW, minWindowW)
	g.viewH = max(outsideH, minWindowH)
	return g.viewW, g.viewH
}

func (g *game) Close() { _ = g.session.Close() }

var (
	logLevel    string
	projectFile string
	log         = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:          "edokeys [HASH]",
	Short:        "Play an n-EDO keyboard and edit a step sequence in a window",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (default from config)")
	rootCmd.Flags().StringVarP(&projectFile, "file", "f", "", "Load the project from a share-hash file")
}

func loadProject(cfg *config.Config, args []string) (project.Project, error) {
	switch {
	case len(args) > 0:
		return project.Decode(args[0])
	case projectFile != "":
		return project.Load(projectFile)
	}
	p := project.Empty()
	if tuning.ValidSubdivisions(cfg.Subdivisions) {
		p.Subdivisions = cfg.Subdivisions
	}
	p.Accidental = cfg.AccidentalValue()
	p.Sequence = sequence.WithSecondsPerStep(p.Sequence, cfg.SecondsPerStep())
	return p, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level := cfg.Level()
	if logLevel != "" {
		if level, err = logrus.ParseLevel(logLevel); err != nil {
			return err
		}
	}
	log.SetLevel(level)

	p, err := loadProject(cfg, args)
	if err != nil {
		return err
	}
	s, err := edoseq.NewSessionFromProject(p,
		edoseq.WithLogger(log),
		edoseq.WithRootFrequency(cfg.RootFrequency),
		edoseq.WithTick(cfg.TickInterval(), cfg.LookAhead),
		edoseq.WithInstrument(synth.NewLogInstrument(log.WithField("instrument", "keyboard"), p.Instrument)),
		edoseq.WithPlaybackInstrument(synth.NewLogInstrument(log.WithField("instrument", "sequencer"), p.Instrument)),
	)
	if err != nil {
		return err
	}
	g := newGame(s, log)
	defer g.Close()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("edokeys")
	return ebiten.RunGame(g)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
