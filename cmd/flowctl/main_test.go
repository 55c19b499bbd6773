package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gyaneshwarpardhi/caseflow/internal/flowio"
)

const sampleFlow = `meta:
  version: 1
nodes:
  - id: case_1
    type: case
    q: How can we help?
    root: true
    rows:
      - match: Billing
        resp: Billing
      - match: Other
        resp: Other
  - id: ans_2
    type: answer
    text: Billing questions go here.
  - id: ans_3
    type: answer
    text: Orphan
connections:
  - from: {node: case_1, port: row, index: 0}
    to: {node: ans_2, port: in}
    owner: case_1
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.yaml")
	if err := os.WriteFile(path, []byte(sampleFlow), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func TestRun_Usage(t *testing.T) {
	cases := [][]string{
		nil,
		{"explode"},
		{"inspect"},
		{"convert", "a.json", "b.json"},
	}
	for _, args := range cases {
		err := run(context.Background(), args, strings.NewReader(""), &bytes.Buffer{})
		if !errors.Is(err, errUsage) {
			t.Errorf("%v: expected usage error, got %v", args, err)
		}
	}
}

func TestInspect(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"inspect", writeSample(t)}, nil, &out); err != nil {
		t.Fatalf("inspect error: %v", err)
	}
	got := out.String()
	for _, want := range []string{"cases: 1", "answers: 2", "connections: 1", "root: case_1", "unreachable from root: ans_3"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output, got:\n%s", want, got)
		}
	}
}

func TestConvert(t *testing.T) {
	path := writeSample(t)
	dst := filepath.Join(t.TempDir(), "flow.json")
	if err := run(context.Background(), []string{"convert", "-to", "json", "-o", dst, path}, nil, &bytes.Buffer{}); err != nil {
		t.Fatalf("convert error: %v", err)
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	doc, err := flowio.Decode(f, flowio.FormatJSON)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(doc.Nodes) != 3 || len(doc.Connections) != 1 {
		t.Errorf("expected 3 nodes and 1 connection, got %d and %d", len(doc.Nodes), len(doc.Connections))
	}
	if !doc.Nodes[0].Root {
		t.Error("expected root flag to survive conversion")
	}
}

func TestPreview(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "choose by number",
			input: "1\n",
			want:  []string{"bot: How can we help?", "1) Billing", "bot: Billing questions go here.", "(end of flow)"},
		},
		{
			name:  "say by label",
			input: "other\n",
			want:  []string{"(conversation stalled)"},
		},
		{
			name:  "bad choice then quit",
			input: "9\n/quit\n",
			want:  []string{"! "},
		},
	}
	path := writeSample(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(context.Background(), []string{"preview", path}, strings.NewReader(tc.input), &out); err != nil {
				t.Fatalf("preview error: %v", err)
			}
			for _, want := range tc.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("expected %q in output, got:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestPreview_Chatbot(t *testing.T) {
	var out bytes.Buffer
	args := []string{"preview", "-chatbot", "https://bots.example.com", writeSample(t)}
	if err := run(context.Background(), args, strings.NewReader("billing\n"), &out); err != nil {
		t.Fatalf("preview error: %v", err)
	}
	if !strings.Contains(out.String(), "https://bots.example.com") {
		t.Errorf("expected hand-off url in output, got:\n%s", out.String())
	}
}
