// rungraph reconciles workflow definitions with execution step records and
// renders the result.
//
//	rungraph render   --definition def.json [--steps steps.json] [--format json|mermaid|png]
//	rungraph validate --definition def.json
//	rungraph watch    --definition-id ID --run-id ID [--format mermaid]
//	rungraph serve    (MCP over stdio)
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/docuphase/rungraph/internal/graph"
	"github.com/docuphase/rungraph/internal/logging"
	"github.com/docuphase/rungraph/internal/poller"
	"github.com/docuphase/rungraph/internal/query"
	"github.com/docuphase/rungraph/internal/render"
	"github.com/docuphase/rungraph/internal/store"
	"github.com/docuphase/rungraph/internal/validation"
	"github.com/docuphase/rungraph/pkg/mcp"
	"github.com/docuphase/rungraph/pkg/schema"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := loadConfig()
	logger := newLogger(cfg.LogLevel)

	var err error
	switch os.Args[1] {
	case "render":
		err = cmdRender(os.Args[2:], logger)
	case "validate":
		err = cmdValidate(os.Args[2:])
	case "select":
		err = cmdSelect(os.Args[2:])
	case "watch":
		err = cmdWatch(os.Args[2:], cfg, logger)
	case "serve":
		err = cmdServe(cfg, logger)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: rungraph <command> [flags]

commands:
  render    build a graph from definition and/or step files
  validate  check a definition document
  select    run a jq program over step payloads
  watch     poll a stored run and print the graph on change
  serve     expose graph tools over MCP stdio`)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(handler))
}

// cmdRender builds one of the three graph flavors depending on which inputs
// are given: definition only, steps only, or both (live-merged).
func cmdRender(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	defPath := fs.String("definition", "", "path to a definition document (v1 array or v2 object)")
	stepsPath := fs.String("steps", "", "path to a JSON array of step records")
	format := fs.String("format", "json", "output format: json, mermaid or png")
	out := fs.String("out", "", "output file (default: stdout; required for png)")
	title := fs.String("title", "", "graph title")
	filter := fs.String("filter", "", "node predicate, optionally prefixed with cel: or expr:")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *defPath == "" && *stepsPath == "" {
		return fmt.Errorf("at least one of --definition or --steps is required")
	}

	var g *graph.Graph
	switch {
	case *defPath != "" && *stepsPath != "":
		def, steps, err := loadInputs(*defPath, *stepsPath)
		if err != nil {
			return err
		}
		g = graph.BuildLiveRunGraph(def, steps)
	case *defPath != "":
		doc, err := os.ReadFile(*defPath)
		if err != nil {
			return err
		}
		g = graph.BuildDefinitionGraph(schema.NormalizeDocument(doc))
	default:
		steps, err := loadSteps(*stepsPath)
		if err != nil {
			return err
		}
		g = graph.BuildRunGraph(steps)
	}

	if *filter != "" {
		filtered, err := applyFilter(*filter, g)
		if err != nil {
			return err
		}
		g = filtered
	}

	logger.Info("graph built", slog.Int("nodes", len(g.Nodes)), slog.Int("edges", len(g.Edges)))
	return writeGraph(g, *title, *format, *out)
}

func cmdValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	defPath := fs.String("definition", "", "path to a definition document")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *defPath == "" {
		return fmt.Errorf("--definition is required")
	}

	doc, err := os.ReadFile(*defPath)
	if err != nil {
		return err
	}

	validator, err := validation.NewDocumentValidator()
	if err != nil {
		return err
	}
	result := validator.ValidateDocument(doc)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if !result.Valid() {
		return fmt.Errorf("document is invalid")
	}
	return nil
}

// cmdSelect runs a jq program over the input or output payload of every
// step in a steps file and prints one JSON result per line.
func cmdSelect(args []string) error {
	fs := flag.NewFlagSet("select", flag.ExitOnError)
	stepsPath := fs.String("steps", "", "path to a JSON array of step records")
	expression := fs.String("expr", ".", "jq program")
	field := fs.String("field", "output", "payload to query: input or output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *stepsPath == "" {
		return fmt.Errorf("--steps is required")
	}

	steps, err := loadSteps(*stepsPath)
	if err != nil {
		return err
	}

	jq := query.NewGoJQEngine()
	enc := json.NewEncoder(os.Stdout)
	for i := range steps {
		payload := steps[i].Output
		if *field == "input" {
			payload = steps[i].Input
		}
		if len(payload) == 0 {
			continue
		}
		results, err := jq.SelectFromRaw(context.Background(), *expression, payload)
		if err != nil {
			return err
		}
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// cmdWatch polls a stored run and prints the graph each time it changes.
func cmdWatch(args []string, cfg Config, logger *slog.Logger) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	definitionID := fs.String("definition-id", "", "stored definition id")
	runID := fs.String("run-id", "", "run id to watch")
	format := fs.String("format", "mermaid", "output format: json or mermaid")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *definitionID == "" || *runID == "" {
		return fmt.Errorf("--definition-id and --run-id are required")
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	def, err := st.GetDefinition(context.Background(), *definitionID)
	if err != nil {
		return err
	}

	p, err := poller.New(st, schema.NormalizeDocument(def.Document), *runID,
		poller.Config{Interval: cfg.pollInterval(), SnapshotCron: cfg.SnapshotCron}, logger)
	if err != nil {
		return err
	}
	p.OnUpdate(func(u poller.Update) {
		if err := writeGraph(u.Graph, def.Name, *format, ""); err != nil {
			logger.Error("write graph", slog.String("error", err.Error()))
		}
	})
	p.OnSnapshot(func(u poller.Update) {
		data, err := json.Marshal(u.Graph)
		if err != nil {
			return
		}
		snap := &store.Snapshot{RunID: u.RunID, Title: def.Name, Format: "json", Graph: data}
		if err := st.SaveSnapshot(context.Background(), snap); err != nil {
			logger.Error("save snapshot", slog.String("error", err.Error()))
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return p.Stop()
}

func cmdServe(cfg Config, logger *slog.Logger) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	srv, err := mcp.NewGraphServer(mcp.GraphServerDeps{Store: st, Logger: logger})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("serving MCP over stdio")
	return srv.Serve(ctx)
}

func openStore(cfg Config) (*store.LibSQLStore, error) {
	if err := os.MkdirAll(rungraphDir(), 0o755); err != nil {
		return nil, err
	}
	st, err := store.NewLibSQLStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(context.Background()); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func loadInputs(defPath, stepsPath string) (schema.NormalizedDefinition, []schema.Step, error) {
	doc, err := os.ReadFile(defPath)
	if err != nil {
		return schema.NormalizedDefinition{}, nil, err
	}
	steps, err := loadSteps(stepsPath)
	if err != nil {
		return schema.NormalizedDefinition{}, nil, err
	}
	return schema.NormalizeDocument(doc), steps, nil
}

func loadSteps(path string) ([]schema.Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var steps []schema.Step
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("parse steps %s: %w", path, err)
	}
	return steps, nil
}

func applyFilter(expression string, g *graph.Graph) (*graph.Graph, error) {
	engineName, body := query.SplitExpression(expression)

	var eng query.Engine
	switch engineName {
	case "cel":
		cel, err := query.NewCELEngine()
		if err != nil {
			return nil, err
		}
		eng = cel
	case "expr":
		eng = query.NewExprEngine()
	default:
		return nil, fmt.Errorf("engine %q cannot filter nodes", engineName)
	}

	nodes, err := query.FilterNodes(context.Background(), eng, body, g)
	if err != nil {
		return nil, err
	}

	kept := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		kept[n.ID] = true
	}
	filtered := &graph.Graph{Nodes: nodes}
	for _, e := range g.Edges {
		if kept[e.From] && kept[e.To] {
			filtered.Edges = append(filtered.Edges, e)
		}
	}
	return filtered, nil
}

func writeGraph(g *graph.Graph, title, format, out string) error {
	var data []byte
	switch format {
	case "json":
		var err error
		data, err = json.MarshalIndent(g, "", "  ")
		if err != nil {
			return err
		}
		data = append(data, '\n')
	case "mermaid":
		data = []byte(render.RenderMermaid(g, title) + "\n")
	case "png":
		if out == "" {
			return fmt.Errorf("--out is required for png output")
		}
		png, err := render.RenderImage(g, title)
		if err != nil {
			return err
		}
		data = png
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	if out == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(out, data, 0o644)
}
