// Command sketchedit is a TUI editor for sketches. Lines drawn with the mouse
// or keyboard bind to the shapes they start and end on.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/ha1tch/sketch-toolkit/pkg/binding"
	"github.com/ha1tch/sketch-toolkit/pkg/config"
	"github.com/ha1tch/sketch-toolkit/pkg/element"
	"github.com/ha1tch/sketch-toolkit/pkg/geom"
	"github.com/ha1tch/sketch-toolkit/pkg/history"
	"github.com/ha1tch/sketch-toolkit/pkg/scene"
	"github.com/ha1tch/sketch-toolkit/pkg/sketchfile"
	"github.com/ha1tch/sketch-toolkit/pkg/telemetry"
)

// Scene units covered by one terminal cell.
const (
	cellW = 10.0
	cellH = 20.0
)

// New shapes are this many cells wide and high.
const (
	shapeCellsW = 8
	shapeCellsH = 4
)

const textFontSize = 16

// Mode represents the editor mode
type Mode int

const (
	ModeCanvas Mode = iota
	ModeLine        // drawing a line from the keyboard
	ModeInput
)

// MessageType for status bar messages
type MessageType int

const (
	MsgInfo MessageType = iota
	MsgError
	MsgSuccess
	MsgWarning
)

// Editor holds the editor state
type Editor struct {
	screen  tcell.Screen
	scene   *scene.Scene
	state   scene.AppState
	coord   *binding.Coordinator
	history *history.History
	metrics *telemetry.Collector
	logger  *zap.Logger

	cfg         config.Config
	configPath  string
	docSettings *sketchfile.Settings
	filename    string
	modified    bool

	mode              Mode
	message           string
	messageType       MessageType
	messageFlashStart atomic.Int64 // read by the flash ticker

	inputPrompt string
	inputBuffer string
	inputAction func(string)

	// Cursor and scroll offset, in absolute cells
	cursorX, cursorY int
	offsetX, offsetY int

	// Line being drawn, the scene before it began and the shape its end
	// currently hovers
	drawing    *element.Linear
	beforeLine history.Snapshot
	hover      element.Bindable

	// Shape being dragged with the secondary button
	moving       *element.Shape
	moveX, moveY int
	mouseButtons tcell.ButtonMask
	showFocus    bool
	bindingsMade int
}

func newEditor(screen tcell.Screen, cfg config.Config, logger *zap.Logger, metrics *telemetry.Collector) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = telemetry.NewCollector("sketchedit")
	}

	s := scene.New()
	ed := &Editor{
		screen:  screen,
		scene:   s,
		history: history.New(cfg.Editor.UndoLevels),
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
	ed.state = scene.DefaultAppState()
	ed.state.Zoom = cfg.Editor.Zoom
	ed.state.Tolerance = cfg.Tolerance()
	ed.coord = binding.New(s, binding.WithLogger(logger), binding.WithMetrics(metrics))

	s.Subscribe(func(ch scene.Change) {
		ed.modified = true
		ed.metrics.RecordMutation(string(ch.Element.Common().Type))
		if ch.Patch.StartBinding != nil || ch.Patch.EndBinding != nil {
			ed.bindingsMade++
		}
	})
	return ed
}

func main() {
	configPath := config.Path()
	verbose := false
	var filename string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-config", "--config":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "Usage: sketchedit [-config file] [-v] [file.sketch]")
				os.Exit(1)
			}
			i++
			configPath = args[i]
		case "-v", "--verbose":
			verbose = true
		case "-h", "--help":
			fmt.Println("Usage: sketchedit [-config file] [-v] [file.sketch]")
			return
		default:
			filename = args[i]
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the editor, so logs always go to a file
	logCfg := cfg.Log
	if logCfg.File == "" {
		logCfg.File = filepath.Join(os.TempDir(), "sketchedit.log")
	}
	logger, err := config.NewLogger(logCfg, verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing screen: %v\n", err)
		os.Exit(1)
	}
	screen.EnableMouse()
	screen.Clear()

	ed := newEditor(screen, cfg, logger, telemetry.NewCollector("sketchedit"))
	ed.configPath = configPath
	if filename != "" {
		if err := ed.loadFile(filename); err != nil {
			if !os.IsNotExist(err) {
				screen.Fini()
				fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", filename, err)
				os.Exit(1)
			}
			ed.filename = filename
			ed.showMessage("New file", MsgInfo)
		}
	}

	if _, err := os.Stat(configPath); err == nil {
		w, err := config.NewWatcher(configPath, logger)
		if err != nil {
			logger.Warn("config watcher unavailable", zap.Error(err))
		} else {
			w.OnChange(func(c config.Config) {
				screen.PostEvent(tcell.NewEventInterrupt(c))
			})
			defer w.Stop()
		}
	}

	logger.Info("editor started", zap.String("file", filename), zap.String("config", configPath))
	ed.run()
	screen.Fini()
	logger.Info("editor stopped", zap.Int("bindings", ed.bindingsMade))
}

func (ed *Editor) run() {
	stop := ed.startFlashTicker(50 * time.Millisecond)
	defer stop()

	for {
		ed.draw()
		ed.screen.Show()

		ev := ed.screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return
		case *tcell.EventResize:
			ed.screen.Sync()
		case *tcell.EventKey:
			if ed.handleKey(ev) {
				return
			}
		case *tcell.EventMouse:
			ed.handleMouse(ev)
		case *tcell.EventInterrupt:
			if cfg, ok := ev.Data().(config.Config); ok {
				ed.applyConfig(cfg)
			}
		}
	}
}

// startFlashTicker posts redraws while a message is flashing. The returned
// func stops the ticker and waits for its goroutine to exit.
func (ed *Editor) startFlashTicker(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				start := ed.messageFlashStart.Load()
				if start == 0 {
					continue
				}
				if elapsed := nowMillis() - start; elapsed >= 0 && elapsed < flashDuration+200 {
					ed.screen.PostEvent(tcell.NewEventInterrupt(nil))
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-exited
		})
	}
}

// applyConfig takes over a reloaded configuration.
func (ed *Editor) applyConfig(cfg config.Config) {
	ed.cfg = cfg
	ed.state.Tolerance = ed.docSettings.Tolerance(cfg.Tolerance())
	ed.history.SetLimit(cfg.Editor.UndoLevels)
	ed.logger.Info("config reloaded",
		zap.Float64("minGap", ed.state.Tolerance.MinGap),
		zap.Float64("maxGap", ed.state.Tolerance.MaxGap),
		zap.Float64("ratio", ed.state.Tolerance.Ratio),
	)
	ed.showMessage("Config reloaded", MsgInfo)
}

func (ed *Editor) loadFile(path string) error {
	doc, err := sketchfile.Load(path)
	if err != nil {
		return err
	}
	ed.scene.Restore(doc.Elements)
	ed.docSettings = doc.Settings
	if doc.Zoom > 0 {
		ed.state.Zoom = doc.Zoom
	}
	ed.state.Tolerance = doc.Settings.Tolerance(ed.cfg.Tolerance())
	ed.filename = path
	ed.modified = false
	ed.logger.Info("loaded", zap.String("file", path), zap.Int("elements", ed.scene.Len()))
	ed.showMessage(fmt.Sprintf("Loaded %s", filepath.Base(path)), MsgSuccess)
	return nil
}

func (ed *Editor) save() {
	if ed.filename == "" {
		ed.prompt("Save as: ", func(name string) {
			if name == "" {
				return
			}
			if filepath.Ext(name) == "" {
				name += ".sketch"
			}
			if !filepath.IsAbs(name) && ed.cfg.Editor.LastDir != "" {
				name = filepath.Join(ed.cfg.Editor.LastDir, name)
			}
			ed.filename = name
			ed.save()
		})
		return
	}

	doc := sketchfile.NewDocument(ed.scene, ed.state.Zoom)
	doc.Settings = ed.docSettings
	if err := sketchfile.Save(ed.filename, doc); err != nil {
		ed.logger.Error("save failed", zap.String("file", ed.filename), zap.Error(err))
		ed.showMessage(fmt.Sprintf("Save failed: %v", err), MsgError)
		return
	}
	ed.modified = false
	ed.logger.Info("saved", zap.String("file", ed.filename))
	ed.rememberDir(ed.filename)
	ed.showMessage(fmt.Sprintf("Saved %s", filepath.Base(ed.filename)), MsgSuccess)
}

// rememberDir records the directory of path as last_dir in the config file.
func (ed *Editor) rememberDir(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	dir := filepath.Dir(abs)
	if dir == ed.cfg.Editor.LastDir {
		return
	}
	ed.cfg.Editor.LastDir = dir
	if ed.configPath == "" {
		return
	}
	if err := config.Save(ed.configPath, ed.cfg); err != nil {
		ed.logger.Warn("config not updated", zap.String("config", ed.configPath), zap.Error(err))
	}
}

// export renders the scene next to the document in the configured format.
func (ed *Editor) export() {
	base := ed.filename
	if base == "" {
		base = "untitled"
	}
	path := strings.TrimSuffix(base, filepath.Ext(base)) + "." + ed.cfg.Editor.ExportFormat

	els := ed.scene.NonDeleted()
	r := ed.cfg.Render
	var err error
	switch ed.cfg.Editor.ExportFormat {
	case "svg":
		opts := sketchfile.SVGOptions{
			Width: r.Width, Height: r.Height, Padding: r.Padding, StrokeWidth: r.Stroke,
			ShowFocus: ed.showFocus, Title: filepath.Base(base),
		}
		err = os.WriteFile(path, []byte(sketchfile.GenerateSVG(els, opts)), 0644)
	default:
		var f *os.File
		f, err = os.Create(path)
		if err == nil {
			opts := sketchfile.PNGOptions{
				Width: r.Width, Height: r.Height, Padding: int(r.Padding), StrokeWidth: r.Stroke,
				ShowFocus: ed.showFocus,
			}
			err = sketchfile.RenderPNG(els, f, opts)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}
	}
	if err != nil {
		ed.logger.Error("export failed", zap.String("file", path), zap.Error(err))
		ed.showMessage(fmt.Sprintf("Export failed: %v", err), MsgError)
		return
	}
	ed.showMessage(fmt.Sprintf("Exported %s", filepath.Base(path)), MsgSuccess)
}

func (ed *Editor) prompt(label string, action func(string)) {
	ed.mode = ModeInput
	ed.inputPrompt = label
	ed.inputBuffer = ""
	ed.inputAction = action
}

func (ed *Editor) showMessage(msg string, msgType MessageType) {
	ed.message = msg
	ed.messageType = msgType
	ed.messageFlashStart.Store(nowMillis())
	if ed.screen != nil {
		ed.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func (ed *Editor) clearFlash() {
	ed.messageFlashStart.Store(0)
}

// toScene returns the scene point at the centre of an absolute cell.
func toScene(cx, cy int) geom.Point {
	return geom.Pt(float64(cx)*cellW+cellW/2, float64(cy)*cellH+cellH/2)
}

// toCell returns the absolute cell containing p.
func toCell(p geom.Point) (int, int) {
	return floorDiv(p.X, cellW), floorDiv(p.Y, cellH)
}

func floorDiv(v, size float64) int {
	q := int(v / size)
	if v < 0 && float64(q)*size != v {
		q--
	}
	return q
}

// canvasSize returns the drawable area above the help and status bars.
func (ed *Editor) canvasSize() (int, int) {
	w, h := ed.screen.Size()
	return w, h - 2
}

// scrollToCursor keeps the cursor inside the canvas.
func (ed *Editor) scrollToCursor() {
	w, h := ed.canvasSize()
	if ed.cursorX < ed.offsetX {
		ed.offsetX = ed.cursorX
	}
	if ed.cursorY < ed.offsetY {
		ed.offsetY = ed.cursorY
	}
	if ed.cursorX >= ed.offsetX+w {
		ed.offsetX = ed.cursorX - w + 1
	}
	if ed.cursorY >= ed.offsetY+h {
		ed.offsetY = ed.cursorY - h + 1
	}
}

func (ed *Editor) snapshot() {
	ed.history.Save(ed.scene.Snapshot())
}

func (ed *Editor) undo() {
	snap, ok := ed.history.Undo(ed.scene.Snapshot())
	if !ok {
		ed.showMessage("Nothing to undo", MsgInfo)
		return
	}
	ed.scene.Restore(snap)
	ed.modified = true
	ed.showMessage("Undo", MsgInfo)
}

func (ed *Editor) redo() {
	snap, ok := ed.history.Redo(ed.scene.Snapshot())
	if !ok {
		ed.showMessage("Nothing to redo", MsgInfo)
		return
	}
	ed.scene.Restore(snap)
	ed.modified = true
	ed.showMessage("Redo", MsgInfo)
}

// addShape places a new shape with its top-left corner at the cursor.
func (ed *Editor) addShape(t element.Type) *element.Shape {
	ed.snapshot()
	s := element.NewShape(t,
		float64(ed.cursorX)*cellW, float64(ed.cursorY)*cellH,
		shapeCellsW*cellW, shapeCellsH*cellH,
	)
	ed.scene.Add(s)
	ed.modified = true
	ed.logger.Debug("shape added", zap.String("id", s.ID), zap.String("type", string(t)))
	ed.showMessage(fmt.Sprintf("Added %s", t), MsgSuccess)
	return s
}

func (ed *Editor) addText(text string) {
	if text == "" {
		return
	}
	ed.snapshot()
	x, y := float64(ed.cursorX)*cellW, float64(ed.cursorY)*cellH
	ed.scene.Add(element.NewText(x, y, text, textFontSize))
	ed.modified = true
}

// deleteAtCursor marks the topmost element under the cursor deleted.
// Bindings that pointed at it are left for the consistency check to report.
func (ed *Editor) deleteAtCursor() {
	p := toScene(ed.cursorX, ed.cursorY)
	el := ed.scene.ElementAtPosition(p.X, p.Y, func(el element.Element, x, y float64) bool {
		if l, ok := el.(*element.Linear); ok {
			return onLinear(l, geom.Pt(x, y))
		}
		return el.Common().Contains(geom.Pt(x, y))
	})
	if el == nil {
		ed.showMessage("Nothing under cursor", MsgInfo)
		return
	}
	ed.snapshot()
	ed.scene.Mutate(el, element.Patch{IsDeleted: element.Ptr(true)})
	ed.showMessage(fmt.Sprintf("Deleted %s", el.Common().Type), MsgSuccess)
}

// onLinear reports whether p lies within a cell of l's path.
func onLinear(l *element.Linear, p geom.Point) bool {
	pts := l.AbsolutePoints()
	for i := 1; i < len(pts); i++ {
		if geom.DistanceToSegment(p, pts[i-1], pts[i]) <= cellW {
			return true
		}
	}
	return false
}

// beginLine starts an arrow at cell (cx, cy). The shape whose border band
// holds the start point becomes the start binding candidate.
func (ed *Editor) beginLine(cx, cy int) {
	ed.beforeLine = ed.scene.Snapshot()
	ed.history.Save(ed.beforeLine)
	p := toScene(cx, cy)
	ed.drawing = element.NewLinear(element.TypeArrow, p, p)
	ed.scene.Add(ed.drawing)

	ed.state.BoundElement = nil
	if !ed.state.BindingDisabled {
		ed.state.BoundElement = binding.FindBoundTarget(ed.scene, ed.state, p)
	}
	ed.hover = ed.state.BoundElement
}

// extendLine moves the end of the line being drawn to cell (cx, cy).
func (ed *Editor) extendLine(cx, cy int) {
	if ed.drawing == nil {
		return
	}
	p := toScene(cx, cy)
	origin := geom.Pt(ed.drawing.X, ed.drawing.Y)
	ed.scene.Mutate(ed.drawing, element.Patch{
		Points: []geom.Point{geom.Pt(0, 0), p.Sub(origin)},
	})

	ed.hover = nil
	if !ed.state.BindingDisabled {
		ed.hover = binding.FindBoundTarget(ed.scene, ed.state, p)
	}
}

// finishLine ends the line at cell (cx, cy) and binds its endpoints. A line
// that never left its starting cell is discarded.
func (ed *Editor) finishLine(cx, cy int) {
	l := ed.drawing
	if l == nil {
		return
	}
	ed.extendLine(cx, cy)
	ed.drawing = nil
	ed.hover = nil
	defer func() { ed.state.BoundElement = nil }()

	pts := l.AbsolutePoints()
	if pts[0].Equal(pts[len(pts)-1]) {
		ed.discardLine()
		return
	}

	ed.beforeLine = nil
	ed.coord.AttachIfHovering(l, ed.state, pts[len(pts)-1])

	var bound []string
	if l.StartBinding != nil {
		bound = append(bound, "start")
	}
	if l.EndBinding != nil {
		bound = append(bound, "end")
	}
	if len(bound) == 0 {
		ed.showMessage("Arrow added", MsgInfo)
		return
	}
	ed.showMessage(fmt.Sprintf("Arrow bound (%s)", strings.Join(bound, ", ")), MsgSuccess)
}

// discardLine restores the scene from before the line began and forgets
// the undo level it took.
func (ed *Editor) discardLine() {
	ed.scene.Restore(ed.beforeLine)
	ed.history.Drop()
	ed.beforeLine = nil
}

// cancelLine discards the line being drawn.
func (ed *Editor) cancelLine() {
	if ed.drawing == nil {
		return
	}
	ed.drawing = nil
	ed.hover = nil
	ed.state.BoundElement = nil
	ed.discardLine()
}

func (ed *Editor) toggleBinding() {
	ed.state.BindingDisabled = !ed.state.BindingDisabled
	if !ed.state.BindingDisabled {
		ed.showMessage("Binding on", MsgInfo)
	} else {
		ed.showMessage("Binding off", MsgWarning)
	}
}

func (ed *Editor) setZoom(z float64) {
	if z < 0.25 || z > 4 {
		return
	}
	ed.state.Zoom = z
	ed.showMessage(fmt.Sprintf("Zoom %g", z), MsgInfo)
}

func (ed *Editor) runCheck() {
	issues := ed.scene.Check()
	if len(issues) == 0 {
		ed.showMessage("Bindings consistent", MsgSuccess)
		return
	}
	for _, is := range issues {
		ed.logger.Warn("binding issue", zap.Stringer("issue", is))
	}
	ed.showMessage(fmt.Sprintf("%d binding issue(s): %s", len(issues), issues[0]), MsgWarning)
}

func (ed *Editor) handleKey(ev *tcell.EventKey) bool {
	mod := ev.Modifiers()
	isCtrlOrCmd := func(key tcell.Key, r rune) bool {
		if ev.Key() == key {
			return true
		}
		if mod&tcell.ModMeta != 0 && ev.Rune() == r {
			return true
		}
		if mod&tcell.ModAlt != 0 && ev.Rune() == r {
			return true
		}
		return false
	}

	ed.clearFlash()

	if ed.mode == ModeInput {
		return ed.handleInputKey(ev)
	}

	if isCtrlOrCmd(tcell.KeyCtrlQ, 'q') || ev.Key() == tcell.KeyCtrlC {
		return true
	}
	if isCtrlOrCmd(tcell.KeyCtrlS, 's') || isCtrlOrCmd(tcell.KeyCtrlE, 'e') {
		// A half-drawn line is never written out
		if ed.drawing != nil {
			ed.cancelLine()
			ed.mode = ModeCanvas
		}
	}
	if isCtrlOrCmd(tcell.KeyCtrlS, 's') {
		ed.save()
		return false
	}
	if isCtrlOrCmd(tcell.KeyCtrlE, 'e') {
		ed.export()
		return false
	}
	if ed.mode == ModeCanvas {
		if isCtrlOrCmd(tcell.KeyCtrlZ, 'z') {
			ed.undo()
			return false
		}
		if isCtrlOrCmd(tcell.KeyCtrlY, 'y') {
			ed.redo()
			return false
		}
	}

	switch ev.Key() {
	case tcell.KeyUp:
		ed.moveCursor(0, -1)
		return false
	case tcell.KeyDown:
		ed.moveCursor(0, 1)
		return false
	case tcell.KeyLeft:
		ed.moveCursor(-1, 0)
		return false
	case tcell.KeyRight:
		ed.moveCursor(1, 0)
		return false
	}

	if ed.mode == ModeLine {
		switch ev.Key() {
		case tcell.KeyEnter:
			ed.finishLine(ed.cursorX, ed.cursorY)
			ed.mode = ModeCanvas
		case tcell.KeyEscape:
			ed.cancelLine()
			ed.mode = ModeCanvas
		}
		return false
	}

	switch ev.Key() {
	case tcell.KeyDelete, tcell.KeyBackspace, tcell.KeyBackspace2:
		ed.deleteAtCursor()
		return false
	case tcell.KeyRune:
	default:
		return false
	}

	switch ev.Rune() {
	case 'q':
		return true
	case 'r':
		ed.addShape(element.TypeRectangle)
	case 'e':
		ed.addShape(element.TypeEllipse)
	case 'd':
		ed.addShape(element.TypeDiamond)
	case 't':
		ed.prompt("Text: ", ed.addText)
	case 'l':
		ed.beginLine(ed.cursorX, ed.cursorY)
		ed.mode = ModeLine
	case 'x':
		ed.deleteAtCursor()
	case 'b':
		ed.toggleBinding()
	case 'f':
		ed.showFocus = !ed.showFocus
	case 'c':
		ed.runCheck()
	case '+', '=':
		ed.setZoom(ed.state.Zoom * 2)
	case '-':
		ed.setZoom(ed.state.Zoom / 2)
	}
	return false
}

func (ed *Editor) handleInputKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape:
		ed.mode = ModeCanvas
	case tcell.KeyEnter:
		ed.mode = ModeCanvas
		action := ed.inputAction
		buf := strings.TrimSpace(ed.inputBuffer)
		ed.inputAction = nil
		ed.inputBuffer = ""
		if action != nil {
			action(buf)
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(ed.inputBuffer) > 0 {
			r := []rune(ed.inputBuffer)
			ed.inputBuffer = string(r[:len(r)-1])
		}
	case tcell.KeyRune:
		ed.inputBuffer += string(ev.Rune())
	}
	return false
}

func (ed *Editor) moveCursor(dx, dy int) {
	ed.cursorX += dx
	ed.cursorY += dy
	ed.scrollToCursor()
	if ed.mode == ModeLine {
		ed.extendLine(ed.cursorX, ed.cursorY)
	}
}

// handleMouse draws arrows with the primary button and drags shapes with
// the secondary one. Dragging a shape does not rebind the arrows on it.
func (ed *Editor) handleMouse(ev *tcell.EventMouse) {
	if ed.mode == ModeInput {
		return
	}
	x, y := ev.Position()
	buttons := ev.Buttons()
	prev := ed.mouseButtons
	ed.mouseButtons = buttons

	cw, ch := ed.canvasSize()
	if x < 0 || y < 0 || x >= cw || y >= ch {
		return
	}
	cx, cy := x+ed.offsetX, y+ed.offsetY

	switch {
	case buttons&tcell.Button1 != 0 && prev&tcell.Button1 == 0:
		if ed.mode == ModeLine {
			ed.cancelLine()
		}
		ed.cursorX, ed.cursorY = cx, cy
		ed.beginLine(cx, cy)
		ed.mode = ModeLine
	case buttons&tcell.Button1 != 0:
		ed.cursorX, ed.cursorY = cx, cy
		ed.extendLine(cx, cy)
	case prev&tcell.Button1 != 0:
		ed.cursorX, ed.cursorY = cx, cy
		ed.finishLine(cx, cy)
		ed.mode = ModeCanvas

	case buttons&tcell.Button2 != 0 && prev&tcell.Button2 == 0:
		ed.beginMove(cx, cy)
	case buttons&tcell.Button2 != 0:
		ed.dragMove(cx, cy)
	case prev&tcell.Button2 != 0:
		ed.dragMove(cx, cy)
		ed.moving = nil

	case buttons&tcell.WheelUp != 0:
		ed.offsetY -= 2
	case buttons&tcell.WheelDown != 0:
		ed.offsetY += 2
	}
}

func (ed *Editor) beginMove(cx, cy int) {
	p := toScene(cx, cy)
	el := ed.scene.ElementAtPosition(p.X, p.Y, func(el element.Element, x, y float64) bool {
		return el.Common().Type.IsShape() && el.Common().Contains(geom.Pt(x, y))
	})
	s, ok := el.(*element.Shape)
	if !ok {
		return
	}
	ed.snapshot()
	ed.moving = s
	ed.moveX, ed.moveY = cx, cy
	ed.scene.BringToFront(s.ID)
}

func (ed *Editor) dragMove(cx, cy int) {
	s := ed.moving
	if s == nil || (cx == ed.moveX && cy == ed.moveY) {
		return
	}
	dx := float64(cx-ed.moveX) * cellW
	dy := float64(cy-ed.moveY) * cellH
	ed.scene.Mutate(s, element.Patch{X: element.Ptr(s.X + dx), Y: element.Ptr(s.Y + dy)})
	ed.moveX, ed.moveY = cx, cy
}
