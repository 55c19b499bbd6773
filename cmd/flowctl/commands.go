package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gyaneshwarpardhi/caseflow/internal/flow"
	"github.com/gyaneshwarpardhi/caseflow/internal/flowio"
	"github.com/gyaneshwarpardhi/caseflow/internal/handoff"
	"github.com/gyaneshwarpardhi/caseflow/internal/handoff/chatbot"
	"github.com/gyaneshwarpardhi/caseflow/internal/preview"
)

// load reads a document from path and imports it into a fresh graph.
func load(path string, f flowio.Format) (*flow.Graph, *flowio.Report, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()
	doc, err := flowio.Decode(file, f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	g := flow.NewGraph()
	report, err := flowio.Import(g, doc)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, report, nil
}

func formatFlag(fs *flag.FlagSet) *string {
	return fs.String("format", "", "document format: json or yaml (default: from the file extension)")
}

func resolveFormat(flagValue, path string) (flowio.Format, error) {
	if flagValue == "" {
		return flowio.FormatForPath(path), nil
	}
	return flowio.ParseFormat(flagValue)
}

func runInspect(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	format := formatFlag(fs)
	path, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	f, err := resolveFormat(*format, path)
	if err != nil {
		return err
	}
	g, report, err := load(path, f)
	if err != nil {
		return err
	}

	var cases, answers int
	for _, n := range g.Nodes() {
		if n.Type() == flow.NodeTypeCase {
			cases++
		} else {
			answers++
		}
	}
	root := "(none)"
	if r := g.Root(); r != nil {
		root = r.ID()
	}
	fmt.Fprintf(out, "cases: %d\nanswers: %d\nconnections: %d\nroot: %s\n",
		cases, answers, len(g.Connections()), root)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tROWS\tTEXT")
	for _, n := range g.Nodes() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", n.ID(), n.Type(), len(n.Rows()), summary(n))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if lost := unreachable(g); len(lost) > 0 {
		fmt.Fprintf(out, "unreachable from root: %s\n", strings.Join(lost, ", "))
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(out, "warning: %s: %s\n", w.Kind, w.Message)
	}
	return nil
}

func summary(n flow.Node) string {
	var s string
	switch v := n.(type) {
	case *flow.CaseNode:
		s = v.Prompt()
	case *flow.AnswerNode:
		s = v.ResponseText()
	}
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 40 {
		s = string(r[:39]) + "…"
	}
	return s
}

// unreachable lists nodes a preview starting at the root can never reach.
func unreachable(g *flow.Graph) []string {
	root := g.Root()
	if root == nil {
		return nil
	}
	seen := map[string]bool{root.ID(): true}
	queue := []string{root.ID()}
	conns := g.Connections()
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, c := range conns {
			if c.From.NodeID == id && !seen[c.To.NodeID] {
				seen[c.To.NodeID] = true
				queue = append(queue, c.To.NodeID)
			}
		}
	}
	var out []string
	for _, n := range g.Nodes() {
		if !seen[n.ID()] {
			out = append(out, n.ID())
		}
	}
	return out
}

func runConvert(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	format := formatFlag(fs)
	to := fs.String("to", "yaml", "output format: json or yaml")
	output := fs.String("o", "", "output file (default: stdout)")
	path, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	in, err := resolveFormat(*format, path)
	if err != nil {
		return err
	}
	target, err := flowio.ParseFormat(*to)
	if err != nil {
		return err
	}
	g, report, err := load(path, in)
	if err != nil {
		return err
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", w.Kind, w.Message)
	}

	doc := flowio.Export(g, time.Now())
	if *output == "" {
		return flowio.Encode(out, doc, target)
	}
	file, err := os.Create(*output)
	if err != nil {
		return err
	}
	if err := flowio.Encode(file, doc, target); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func runPreview(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	format := formatFlag(fs)
	botURL := fs.String("chatbot", "", "hand finished walks to this chatbot URL")
	path, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	f, err := resolveFormat(*format, path)
	if err != nil {
		return err
	}
	g, _, err := load(path, f)
	if err != nil {
		return err
	}

	var resolver preview.Resolver
	if *botURL != "" {
		reg := handoff.NewRegistry()
		reg.Register(chatbot.New())
		b, err := reg.Bind("chatbot", map[string]interface{}{"url": *botURL})
		if err != nil {
			return err
		}
		resolver = b
	}

	s := preview.New(g, resolver)
	turn, err := s.Reset(ctx)
	if err != nil {
		return err
	}
	printTurn(out, turn)

	scanner := bufio.NewScanner(in)
	for !turn.State.Terminal() {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case line == "/reset":
			turn, err = s.Reset(ctx)
		default:
			if i, convErr := strconv.Atoi(line); convErr == nil {
				turn, err = s.Choose(ctx, i-1)
			} else {
				turn, err = s.Say(ctx, line)
			}
		}
		if err != nil {
			fmt.Fprintf(out, "! %v\n", err)
			turn = s.Current()
			continue
		}
		printTurn(out, turn)
	}
	return nil
}

func printTurn(out io.Writer, t *preview.Turn) {
	for _, m := range t.Messages {
		if m.Speaker == preview.SpeakerUser {
			continue
		}
		fmt.Fprintf(out, "bot: %s\n", m.Text)
		if m.VideoID != "" {
			fmt.Fprintf(out, "     [video https://www.youtube.com/watch?v=%s]\n", m.VideoID)
		}
	}
	for i, c := range t.Choices {
		fmt.Fprintf(out, "  %d) %s\n", i+1, c.Label)
	}
	switch t.State {
	case preview.StateIdle:
		fmt.Fprintln(out, "(flow has no case to start from)")
	case preview.StateStalled:
		fmt.Fprintln(out, "(conversation stalled)")
	case preview.StateHandoff:
		if t.Handoff != nil && t.Handoff.URL != "" {
			fmt.Fprintf(out, "(handed off to %s: %s)\n", t.Handoff.Title, t.Handoff.URL)
		} else {
			fmt.Fprintln(out, "(end of flow)")
		}
	}
}
