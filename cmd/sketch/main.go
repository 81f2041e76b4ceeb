// Command sketch is a CLI tool for inspecting and binding sketch documents.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ha1tch/sketch-toolkit/pkg/binding"
	"github.com/ha1tch/sketch-toolkit/pkg/config"
	"github.com/ha1tch/sketch-toolkit/pkg/element"
	"github.com/ha1tch/sketch-toolkit/pkg/geom"
	"github.com/ha1tch/sketch-toolkit/pkg/scene"
	"github.com/ha1tch/sketch-toolkit/pkg/sketchfile"
	"github.com/ha1tch/sketch-toolkit/pkg/telemetry"
)

const usage = `sketch - diagram binding toolkit

Usage:
  sketch [-config file] [-v] <command> [options]

Commands:
  bind       Bind a line's endpoints as if the pointer were released at x,y
  check      Report binding consistency problems
  convert    Convert between formats (json, sketch)
  info       Show document information
  render     Export to PNG or SVG
  stats      Bind every line to the shapes under its endpoints and print metrics

Examples:
  sketch info diagram.sketch
  sketch bind diagram.json -line a1 -x 50 -y 50 -o bound.json
  sketch check diagram.sketch
  sketch render diagram.sketch -o diagram.svg --focus
  sketch convert diagram.json -o diagram.sketch

Use "sketch <command> -h" for more information about a command.
`

// cli carries what every command needs.
type cli struct {
	stdout  io.Writer
	stderr  io.Writer
	cfg     config.Config
	logger  *zap.Logger
	metrics *telemetry.Collector
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	configPath := config.Path()
	verbose := false

	for len(args) > 0 && strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case "-config", "--config":
			if len(args) < 2 {
				fmt.Fprintln(stderr, "Missing value for -config")
				return 1
			}
			configPath = args[1]
			args = args[1:]
		case "-v", "--verbose":
			verbose = true
		case "-h", "--help":
			fmt.Fprint(stdout, usage)
			return 0
		default:
			fmt.Fprintf(stderr, "Unknown flag: %s\n", args[0])
			fmt.Fprint(stderr, usage)
			return 1
		}
		args = args[1:]
	}

	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	logger, err := config.NewLogger(cfg.Log, verbose)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	c := &cli{
		stdout:  stdout,
		stderr:  stderr,
		cfg:     cfg,
		logger:  logger,
		metrics: telemetry.NewCollector("sketch"),
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "bind":
		return c.cmdBind(rest)
	case "check":
		return c.cmdCheck(rest)
	case "convert":
		return c.cmdConvert(rest)
	case "info":
		return c.cmdInfo(rest)
	case "render":
		return c.cmdRender(rest)
	case "stats":
		return c.cmdStats(rest)
	case "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(stderr, usage)
		return 1
	}
}

// load reads a document and reports failures on stderr.
func (c *cli) load(path string) (*sketchfile.Document, bool) {
	doc, err := sketchfile.Load(path)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error loading %s: %v\n", path, err)
		return nil, false
	}
	c.logger.Debug("document loaded",
		zap.String("path", path),
		zap.Int("elements", len(doc.Elements)),
	)
	return doc, true
}

// appState builds the binding state: configured tolerance and zoom,
// overridden by the document's own settings.
func (c *cli) appState(doc *sketchfile.Document) scene.AppState {
	st := scene.DefaultAppState()
	st.Zoom = c.cfg.Editor.Zoom
	if doc.Zoom > 0 {
		st.Zoom = doc.Zoom
	}
	st.Tolerance = doc.Settings.Tolerance(c.cfg.Tolerance())
	return st
}

// coordinator wires a binding coordinator and mutation metrics to s.
func (c *cli) coordinator(s *scene.Scene) *binding.Coordinator {
	s.Subscribe(func(ch scene.Change) {
		c.metrics.RecordMutation(string(ch.Element.Common().Type))
	})
	return binding.New(s, binding.WithLogger(c.logger), binding.WithMetrics(c.metrics))
}

func (c *cli) save(path string, doc *sketchfile.Document) int {
	if err := sketchfile.Save(path, doc); err != nil {
		fmt.Fprintf(c.stderr, "Error writing %s: %v\n", path, err)
		return 1
	}
	fmt.Fprintf(c.stdout, "Written: %s\n", path)
	return 0
}

func (c *cli) cmdInfo(args []string) int {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(c.stderr, "Usage: sketch info <file>")
		return 1
	}
	doc, ok := c.load(args[0])
	if !ok {
		return 1
	}

	counts := make(map[element.Type]int)
	deleted := 0
	backRefs := 0
	var bindings []string
	for _, el := range doc.Elements {
		base := el.Common()
		if base.IsDeleted {
			deleted++
			continue
		}
		counts[base.Type]++
		backRefs += len(base.BoundElementIDs)
		if l, ok := el.(*element.Linear); ok {
			for _, ep := range []element.Endpoint{element.Start, element.End} {
				if b := l.Binding(ep); b != nil {
					bindings = append(bindings, fmt.Sprintf("%s %-5s -> %s focus %s gap %.2f",
						l.ID, ep, b.ElementID, b.FocusPoint, b.Gap))
				}
			}
		}
	}

	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)

	fmt.Fprintf(c.stdout, "Elements:    %d\n", len(doc.Elements)-deleted)
	for _, t := range types {
		fmt.Fprintf(c.stdout, "  %-10s %d\n", t, counts[element.Type(t)])
	}
	if deleted > 0 {
		fmt.Fprintf(c.stdout, "Deleted:     %d\n", deleted)
	}
	if doc.Zoom > 0 {
		fmt.Fprintf(c.stdout, "Zoom:        %g\n", doc.Zoom)
	}
	fmt.Fprintf(c.stdout, "Bindings:    %d\n", len(bindings))
	for _, b := range bindings {
		fmt.Fprintf(c.stdout, "  %s\n", b)
	}
	fmt.Fprintf(c.stdout, "Back-refs:   %d\n", backRefs)
	return 0
}

func (c *cli) cmdBind(args []string) int {
	const bindUsage = "Usage: sketch bind <file> -line <id> -x <x> -y <y> [-start <id>] [-o output]"
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(c.stderr, bindUsage)
		return 1
	}

	input := args[0]
	output := input
	var lineID, startID string
	var x, y float64
	haveX, haveY := false, false

	for i := 1; i < len(args); i++ {
		if i+1 >= len(args) {
			fmt.Fprintf(c.stderr, "Missing value for %s\n", args[i])
			return 1
		}
		val := args[i+1]
		var err error
		switch args[i] {
		case "-line", "--line":
			lineID = val
		case "-start", "--start":
			startID = val
		case "-x":
			x, err = strconv.ParseFloat(val, 64)
			haveX = true
		case "-y":
			y, err = strconv.ParseFloat(val, 64)
			haveY = true
		case "-o", "--output":
			output = val
		default:
			fmt.Fprintf(c.stderr, "Unknown option: %s\n", args[i])
			return 1
		}
		if err != nil {
			fmt.Fprintf(c.stderr, "Invalid %s: %v\n", args[i], err)
			return 1
		}
		i++
	}
	if lineID == "" || !haveX || !haveY {
		fmt.Fprintln(c.stderr, bindUsage)
		return 1
	}

	doc, ok := c.load(input)
	if !ok {
		return 1
	}
	s := doc.Scene()

	l, ok := s.Get(lineID).(*element.Linear)
	if !ok {
		fmt.Fprintf(c.stderr, "No line or arrow with id %s\n", lineID)
		return 1
	}
	if len(l.Points) < 2 {
		fmt.Fprintf(c.stderr, "Line %s has fewer than two points\n", lineID)
		return 1
	}

	state := c.appState(doc)
	if startID != "" {
		start, ok := element.AsBindable(s.Get(startID))
		if !ok {
			fmt.Fprintf(c.stderr, "Element %s cannot be a binding target\n", startID)
			return 1
		}
		state.BoundElement = start
	}

	c.coordinator(s).AttachIfHovering(l, state, geom.Pt(x, y))

	for _, ep := range []element.Endpoint{element.Start, element.End} {
		if b := l.Binding(ep); b != nil {
			fmt.Fprintf(c.stdout, "%-5s -> %s focus %s gap %.2f\n", ep, b.ElementID, b.FocusPoint, b.Gap)
		} else {
			fmt.Fprintf(c.stdout, "%-5s unbound\n", ep)
		}
	}

	doc.Elements = s.Elements()
	return c.save(output, doc)
}

func (c *cli) cmdCheck(args []string) int {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(c.stderr, "Usage: sketch check <file>")
		return 1
	}
	doc, ok := c.load(args[0])
	if !ok {
		return 1
	}

	issues := doc.Scene().Check()
	if len(issues) == 0 {
		fmt.Fprintf(c.stdout, "%s: %d elements, bindings consistent\n", args[0], len(doc.Elements))
		return 0
	}
	for _, issue := range issues {
		fmt.Fprintln(c.stdout, issue)
	}
	fmt.Fprintf(c.stderr, "%s: %d binding issue(s)\n", args[0], len(issues))
	return 1
}

func (c *cli) cmdRender(args []string) int {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(c.stderr, "Usage: sketch render <file> [-o output.png|output.svg] [--focus]")
		return 1
	}

	input := args[0]
	var output string
	showFocus := false
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-o", "--output":
			if i+1 < len(args) {
				output = args[i+1]
				i++
			}
		case "--focus":
			showFocus = true
		}
	}
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + "." + c.cfg.Editor.ExportFormat
	}

	doc, ok := c.load(input)
	if !ok {
		return 1
	}

	var err error
	switch ext := strings.ToLower(filepath.Ext(output)); ext {
	case ".png":
		err = c.writePNG(output, doc, showFocus)
	case ".svg":
		opts := sketchfile.DefaultSVGOptions()
		opts.Width, opts.Height = c.cfg.Render.Width, c.cfg.Render.Height
		opts.Padding = c.cfg.Render.Padding
		opts.StrokeWidth = c.cfg.Render.Stroke
		opts.ShowFocus = showFocus
		err = os.WriteFile(output, []byte(sketchfile.GenerateSVG(doc.Elements, opts)), 0644)
	default:
		fmt.Fprintf(c.stderr, "Unknown output format: %s\n", ext)
		return 1
	}
	if err != nil {
		fmt.Fprintf(c.stderr, "Error writing %s: %v\n", output, err)
		return 1
	}
	fmt.Fprintf(c.stdout, "Written: %s\n", output)
	return 0
}

func (c *cli) writePNG(path string, doc *sketchfile.Document, showFocus bool) error {
	opts := sketchfile.DefaultPNGOptions()
	opts.Width, opts.Height = c.cfg.Render.Width, c.cfg.Render.Height
	opts.Padding = int(c.cfg.Render.Padding)
	opts.StrokeWidth = c.cfg.Render.Stroke
	opts.ShowFocus = showFocus

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := sketchfile.RenderPNG(doc.Elements, f, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (c *cli) cmdConvert(args []string) int {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(c.stderr, "Usage: sketch convert <input> [-o output]")
		return 1
	}

	input := args[0]
	var output string
	for i := 1; i < len(args); i++ {
		if (args[i] == "-o" || args[i] == "--output") && i+1 < len(args) {
			output = args[i+1]
			i++
		}
	}

	if output == "" {
		// Default: swap extension
		ext := filepath.Ext(input)
		base := strings.TrimSuffix(input, ext)
		if strings.EqualFold(ext, ".json") {
			output = base + ".sketch"
		} else {
			output = base + ".json"
		}
	}

	doc, ok := c.load(input)
	if !ok {
		return 1
	}
	return c.save(output, doc)
}

func (c *cli) cmdStats(args []string) int {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(c.stderr, "Usage: sketch stats <file> [-o output]")
		return 1
	}
	input := args[0]
	var output string
	for i := 1; i < len(args); i++ {
		if (args[i] == "-o" || args[i] == "--output") && i+1 < len(args) {
			output = args[i+1]
			i++
		}
	}

	doc, ok := c.load(input)
	if !ok {
		return 1
	}
	s := doc.Scene()
	state := c.appState(doc)
	coord := c.coordinator(s)

	lines := 0
	for _, el := range s.NonDeleted() {
		l, ok := el.(*element.Linear)
		if !ok || len(l.Points) < 2 {
			continue
		}
		lines++
		pts := l.AbsolutePoints()

		// Replay the drag: the start target is whatever sat under the
		// first point, the pointer is released on the last one.
		st := state
		st.BoundElement = binding.FindBoundTarget(s, state, pts[0])
		coord.AttachIfHovering(l, st, pts[len(pts)-1])
	}

	snap, err := c.metrics.Snapshot()
	if err != nil {
		fmt.Fprintf(c.stderr, "Error gathering metrics: %v\n", err)
		return 1
	}
	fmt.Fprintf(c.stdout, "Lines:       %d\n", lines)
	fmt.Fprint(c.stdout, telemetry.Format(snap))

	if output == "" {
		return 0
	}
	doc.Elements = s.Elements()
	return c.save(output, doc)
}
