package main

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/sketch-toolkit/pkg/element"
	"github.com/ha1tch/sketch-toolkit/pkg/geom"
	"github.com/ha1tch/sketch-toolkit/pkg/sketchfile"
)

// Styles
var (
	styleDefault    = tcell.StyleDefault
	styleShape      = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleShapeBound = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleHover      = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGreen)
	styleLine       = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleLineBound  = tcell.StyleDefault.Foreground(tcell.ColorTeal).Bold(true)
	styleDrawing    = tcell.StyleDefault.Foreground(tcell.NewRGBColor(200, 162, 200)) // Lilac
	styleFocus      = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleText       = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleStatus     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleMsgInfo    = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleMsgError   = tcell.StyleDefault.Foreground(tcell.ColorRed).Background(tcell.ColorNavy).Bold(true)
	styleMsgSuccess = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleMsgWarning = tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.ColorNavy)
	styleHelp       = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleCursor     = tcell.StyleDefault.Background(tcell.ColorDarkGray)
	styleInput      = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	styleBorder     = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// Message flash: normal, inverted, normal, inverted, each flashPhase long.
const (
	flashPhase    = 125
	flashDuration = 4 * flashPhase
)

var arrowRunes = []rune{'→', '↘', '↓', '↙', '←', '↖', '↑', '↗'}

func (ed *Editor) draw() {
	ed.screen.Clear()
	w, h := ed.screen.Size()

	ed.drawCanvas(w, h-2)
	if ed.mode == ModeInput {
		ed.drawInputBox(w, h)
	}
	ed.drawStatusBar(w, h)
}

func (ed *Editor) drawCanvas(w, h int) {
	for _, el := range ed.scene.NonDeleted() {
		switch e := el.(type) {
		case *element.Shape:
			ed.drawShape(e, w, h)
		case *element.Linear:
			ed.drawLinear(e, w, h)
		case *element.Text:
			ed.drawText(e, w, h)
		}
	}

	cx, cy := ed.cursorX-ed.offsetX, ed.cursorY-ed.offsetY
	if cx >= 0 && cy >= 0 && cx < w && cy < h {
		r, _, _, _ := ed.screen.GetContent(cx, cy)
		ed.screen.SetContent(cx, cy, r, nil, styleCursor)
	}
}

// plot sets an absolute cell if it falls inside the canvas.
func (ed *Editor) plot(cx, cy int, r rune, style tcell.Style, w, h int) {
	x, y := cx-ed.offsetX, cy-ed.offsetY
	if x < 0 || y < 0 || x >= w || y >= h {
		return
	}
	ed.screen.SetContent(x, y, r, nil, style)
}

func (ed *Editor) drawShape(s *element.Shape, w, h int) {
	style := styleShape
	if len(s.BoundElementIDs) > 0 {
		style = styleShapeBound
	}
	if ed.hover != nil && ed.hover.Common().ID == s.ID {
		style = styleHover
	}

	if s.Type == element.TypeRectangle && s.Angle == 0 {
		x0, y0 := toCell(geom.Pt(s.X, s.Y))
		x1 := int(math.Ceil((s.X+s.Width)/cellW)) - 1
		y1 := int(math.Ceil((s.Y+s.Height)/cellH)) - 1
		if x1 <= x0 || y1 <= y0 {
			ed.plot(x0, y0, '□', style, w, h)
			return
		}
		for x := x0 + 1; x < x1; x++ {
			ed.plot(x, y0, '─', style, w, h)
			ed.plot(x, y1, '─', style, w, h)
		}
		for y := y0 + 1; y < y1; y++ {
			ed.plot(x0, y, '│', style, w, h)
			ed.plot(x1, y, '│', style, w, h)
		}
		ed.plot(x0, y0, '┌', style, w, h)
		ed.plot(x1, y0, '┐', style, w, h)
		ed.plot(x0, y1, '└', style, w, h)
		ed.plot(x1, y1, '┘', style, w, h)
		return
	}

	pts := sketchfile.Outline(s)
	for i := range pts {
		ed.drawSegment(pts[i], pts[(i+1)%len(pts)], style, w, h)
	}
}

func (ed *Editor) drawLinear(l *element.Linear, w, h int) {
	style := styleLine
	if l.StartBinding != nil || l.EndBinding != nil {
		style = styleLineBound
	}
	if l == ed.drawing {
		style = styleDrawing
	}

	pts := l.AbsolutePoints()
	for i := 1; i < len(pts); i++ {
		ed.drawSegment(pts[i-1], pts[i], style, w, h)
	}
	if n := len(pts); n >= 2 && l.Type == element.TypeArrow {
		from, tip := pts[n-2], pts[n-1]
		if !from.Equal(tip) {
			cx, cy := toCell(tip)
			ed.plot(cx, cy, arrowRune(tip.X-from.X, tip.Y-from.Y), style, w, h)
		}
	}

	if ed.showFocus {
		for _, b := range []*element.Binding{l.StartBinding, l.EndBinding} {
			if b == nil {
				continue
			}
			cx, cy := toCell(b.FocusPoint)
			ed.plot(cx, cy, '◎', styleFocus, w, h)
		}
	}
}

func (ed *Editor) drawText(t *element.Text, w, h int) {
	cx, cy := toCell(geom.Pt(t.X, t.Y))
	for i, r := range t.Text {
		ed.plot(cx+i, cy, r, styleText, w, h)
	}
}

// drawSegment rasterises a scene-space segment onto the cell grid.
func (ed *Editor) drawSegment(a, b geom.Point, style tcell.Style, w, h int) {
	ax, ay := toCell(a)
	bx, by := toCell(b)
	r := segmentRune(b.X-a.X, b.Y-a.Y)

	steps := max(abs(bx-ax), abs(by-ay))
	if steps == 0 {
		ed.plot(ax, ay, r, style, w, h)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := ax + int(math.Round(t*float64(bx-ax)))
		y := ay + int(math.Round(t*float64(by-ay)))
		ed.plot(x, y, r, style, w, h)
	}
}

// segmentRune picks a box-drawing rune for a scene-space direction.
func segmentRune(dx, dy float64) rune {
	// Compare in cell units, cells are twice as tall as wide
	dx, dy = math.Abs(dx)/cellW, dy/cellH
	ady := math.Abs(dy)
	switch {
	case ady < dx/2:
		return '─'
	case dx < ady/2:
		return '│'
	case dy > 0:
		return '╲'
	default:
		return '╱'
	}
}

// arrowRune picks the arrowhead for a scene-space direction. Screen y grows
// downwards, as does scene y.
func arrowRune(dx, dy float64) rune {
	angle := math.Atan2(dy/cellH, dx/cellW)
	octant := int(math.Round(angle/(math.Pi/4))) & 7
	return arrowRunes[octant]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (ed *Editor) drawStatusBar(w, h int) {
	y := h - 1

	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleStatus)
	}

	fileInfo := "[New]"
	if ed.filename != "" {
		if len(ed.filename) > 30 {
			fileInfo = filepath.Base(ed.filename)
		} else {
			fileInfo = ed.filename
		}
	}
	if ed.modified {
		fileInfo += " *"
	}
	ed.drawString(1, y, fileInfo, styleStatus)

	modeStr := ed.modeString()
	ed.drawString(w/2-len(modeStr)/2, y, modeStr, styleStatus)

	if ed.message != "" {
		style := styleMsgInfo
		switch ed.messageType {
		case MsgError:
			style = styleMsgError
		case MsgSuccess:
			style = styleMsgSuccess
		case MsgWarning:
			style = styleMsgWarning
		}
		if start := ed.messageFlashStart.Load(); start > 0 && flashes(ed.messageType) &&
			flashInverted(nowMillis()-start) {
			style = style.Reverse(true)
		}
		msg := truncate(ed.message, w/2-2)
		ed.drawString(w-len([]rune(msg))-2, y, msg, style)
	}

	// Help bar
	y = h - 2
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleDefault)
	}
	ed.drawString(1, y, truncate(ed.helpString(), w-2), styleHelp)

	info := ed.stateString()
	if len(info)+4 < w-len(ed.helpString()) {
		ed.drawString(w-len(info)-1, y, info, styleHelp)
	}
}

// stateString summarises the binding state for the help bar.
func (ed *Editor) stateString() string {
	bind := "on"
	if ed.state.BindingDisabled {
		bind = "off"
	}
	return fmt.Sprintf("bind:%s bound:%d zoom:%g (%d,%d)", bind, ed.bindingsMade, ed.state.Zoom, ed.cursorX, ed.cursorY)
}

func (ed *Editor) drawInputBox(w, h int) {
	boxW := 50
	boxH := 3
	boxX := (w - boxW) / 2
	boxY := (h - boxH) / 2

	ed.drawBox(boxX, boxY, boxW, boxH, styleInput)
	ed.drawString(boxX+2, boxY+1, ed.inputPrompt, styleInput)
	ed.drawString(boxX+2+len(ed.inputPrompt), boxY+1, ed.inputBuffer+"_", styleInput)
}

func (ed *Editor) drawBox(x, y, w, h int, style tcell.Style) {
	ed.screen.SetContent(x, y, '┌', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y, '┐', nil, styleBorder)
	ed.screen.SetContent(x, y+h-1, '└', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y+h-1, '┘', nil, styleBorder)

	for i := x + 1; i < x+w-1; i++ {
		ed.screen.SetContent(i, y, '─', nil, styleBorder)
		ed.screen.SetContent(i, y+h-1, '─', nil, styleBorder)
	}
	for i := y + 1; i < y+h-1; i++ {
		ed.screen.SetContent(x, i, '│', nil, styleBorder)
		ed.screen.SetContent(x+w-1, i, '│', nil, styleBorder)
	}

	for row := y + 1; row < y+h-1; row++ {
		for col := x + 1; col < x+w-1; col++ {
			ed.screen.SetContent(col, row, ' ', nil, style)
		}
	}
}

func (ed *Editor) drawString(x, y int, s string, style tcell.Style) {
	i := 0
	for _, r := range s {
		ed.screen.SetContent(x+i, y, r, nil, style)
		i++
	}
}

func (ed *Editor) modeString() string {
	switch ed.mode {
	case ModeLine:
		return "LINE"
	case ModeInput:
		return "INPUT"
	default:
		if ed.moving != nil {
			return "MOVE"
		}
		return ""
	}
}

func (ed *Editor) helpString() string {
	switch ed.mode {
	case ModeLine:
		return "Arrows:Extend  Enter:Finish  Esc:Cancel  B:Binding"
	case ModeInput:
		return "Type text  Enter:Confirm  Esc:Cancel"
	default:
		return "R/E/D:Shape  T:Text  L:Line  X:Delete  B:Binding  F:Focus  C:Check  +/-:Zoom  ^S:Save  ^E:Export  Q:Quit"
	}
}

// flashes reports whether messages of type t flash when shown.
func flashes(t MessageType) bool {
	switch t {
	case MsgError, MsgSuccess, MsgWarning:
		return true
	default:
		return false
	}
}

// flashInverted reports whether a flashing message is drawn inverted
// elapsed milliseconds after it was shown.
func flashInverted(elapsed int64) bool {
	if elapsed < 0 || elapsed >= flashDuration {
		return false
	}
	phase := elapsed / flashPhase
	return phase == 1 || phase == 3
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		if maxLen < 0 {
			maxLen = 0
		}
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
