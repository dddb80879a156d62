package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackzampolin/doctag/internal/describe"
	"github.com/jackzampolin/doctag/internal/doc"
	"github.com/jackzampolin/doctag/internal/mode"
)

func figureNode(id string) *doc.MockNode {
	return &doc.MockNode{
		NodeID: id,
		Type:   "Figure",
		Bounds: &doc.Region{Page: 0, Llx: 10, Lly: 10, Urx: 110, Ury: 60},
	}
}

func documentConfig(d *doc.MockDocument, client describe.Client) Config {
	return Config{
		Task:       describe.TaskAltText,
		Mode:       mode.Document,
		Input:      "in.pdf",
		Output:     "out.pdf",
		TagPattern: "Figure|Formula",
		Engine:     &doc.MockEngine{Doc: d},
		Describer:  client,
	}
}

func TestRunDocument(t *testing.T) {
	t.Run("all nodes succeed", func(t *testing.T) {
		d := doc.NewMockDocument(&doc.MockNode{NodeID: "root", Type: "Document", Kids: []*doc.MockNode{
			figureNode("fig-1"),
			{NodeID: "p-1", Type: "P"},
			figureNode("fig-2"),
		}})
		client := describe.NewMockClient()

		o, err := New(documentConfig(d, client))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		report, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}

		if report.Matched != 2 || report.Written != 2 || report.Failed != 0 || report.Skipped != 0 {
			t.Errorf("report = matched %d written %d skipped %d failed %d",
				report.Matched, report.Written, report.Skipped, report.Failed)
		}
		if !report.Success() {
			t.Error("run must succeed")
		}
		if !report.Saved || len(d.SavedTo) != 1 || d.SavedTo[0] != "out.pdf" {
			t.Errorf("saved = %v %v", report.Saved, d.SavedTo)
		}
		if !d.Closed {
			t.Error("document must be closed")
		}
		if client.Requests() != 2 {
			t.Errorf("service calls = %d, want 2", client.Requests())
		}
	})

	t.Run("one node fails, run still succeeds", func(t *testing.T) {
		d := doc.NewMockDocument(&doc.MockNode{NodeID: "root", Type: "Document", Kids: []*doc.MockNode{
			figureNode("fig-1"),
			figureNode("fig-2"),
		}})
		client := describe.NewMockClient()
		client.Err = &describe.ServiceError{Reason: describe.ReasonUnknown, Err: errors.New("boom")}
		client.FailOn = 1

		o, err := New(documentConfig(d, client))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		report, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}

		if report.Written != 1 || report.Failed != 1 {
			t.Errorf("written %d failed %d", report.Written, report.Failed)
		}
		if !report.Success() {
			t.Error("partial success is still success")
		}
		if !report.Saved {
			t.Error("document with one written node must be saved")
		}
		if len(report.Failures) != 1 || report.Failures[0].NodeID != "fig-1" {
			t.Errorf("failures = %+v", report.Failures)
		}
	})

	t.Run("all nodes fail", func(t *testing.T) {
		d := doc.NewMockDocument(&doc.MockNode{NodeID: "root", Type: "Document", Kids: []*doc.MockNode{
			figureNode("fig-1"),
			figureNode("fig-2"),
		}})
		client := describe.NewMockClient()
		client.Err = &describe.ServiceError{Reason: describe.ReasonAuth, Err: errors.New("bad key")}

		o, err := New(documentConfig(d, client))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		report, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}

		if report.Success() {
			t.Error("zero written with failures must not succeed")
		}
		if report.Saved || len(d.SavedTo) != 0 {
			t.Error("nothing written, document must not be saved")
		}
		if report.Failures[0].Reason != "description:authentication" {
			t.Errorf("failure reason = %s", report.Failures[0].Reason)
		}
	})

	t.Run("existing values skipped without service calls", func(t *testing.T) {
		fig := figureNode("fig-1")
		fig.Attrs = map[string]string{doc.AttrAlt: "already described"}
		d := doc.NewMockDocument(&doc.MockNode{NodeID: "root", Type: "Document", Kids: []*doc.MockNode{fig}})
		client := describe.NewMockClient()

		o, err := New(documentConfig(d, client))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		report, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}

		if report.Skipped != 1 || report.Written != 0 {
			t.Errorf("skipped %d written %d", report.Skipped, report.Written)
		}
		if !report.Success() {
			t.Error("skipped-only run is a successful no-op")
		}
		if report.Saved || len(d.SavedTo) != 0 {
			t.Error("skipped-only run must leave the document untouched")
		}
		if client.Requests() != 0 {
			t.Errorf("service calls = %d, skipped nodes must not reach the service", client.Requests())
		}
		if fig.Attrs[doc.AttrAlt] != "already described" {
			t.Error("existing value must survive")
		}
	})

	t.Run("overwrite regenerates existing values", func(t *testing.T) {
		fig := figureNode("fig-1")
		fig.Attrs = map[string]string{doc.AttrAlt: "stale"}
		d := doc.NewMockDocument(&doc.MockNode{NodeID: "root", Type: "Document", Kids: []*doc.MockNode{fig}})
		client := describe.NewMockClient()

		cfg := documentConfig(d, client)
		cfg.Overwrite = true
		o, err := New(cfg)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		report, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}

		if report.Written != 1 {
			t.Errorf("written = %d", report.Written)
		}
		if fig.Attrs[doc.AttrAlt] != "mock description" {
			t.Errorf("attr = %q", fig.Attrs[doc.AttrAlt])
		}
		if !report.Saved {
			t.Error("rewritten document must be saved")
		}
	})

	t.Run("no matches is a successful no-op", func(t *testing.T) {
		d := doc.NewMockDocument(&doc.MockNode{NodeID: "root", Type: "Document", Kids: []*doc.MockNode{
			{NodeID: "p-1", Type: "P"},
		}})
		client := describe.NewMockClient()

		o, err := New(documentConfig(d, client))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		report, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}

		if report.Matched != 0 || !report.Success() {
			t.Errorf("matched %d success %v", report.Matched, report.Success())
		}
		if report.Saved {
			t.Error("no-op run must not save")
		}
	})

	t.Run("role mapped tags match", func(t *testing.T) {
		chart := figureNode("chart-1")
		chart.Type = "Chart"
		chart.Role = "Figure"
		d := doc.NewMockDocument(&doc.MockNode{NodeID: "root", Type: "Document", Kids: []*doc.MockNode{chart}})
		client := describe.NewMockClient()

		o, err := New(documentConfig(d, client))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		report, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if report.Matched != 1 || report.Written != 1 {
			t.Errorf("matched %d written %d", report.Matched, report.Written)
		}
	})

	t.Run("extraction failure classified", func(t *testing.T) {
		fig := figureNode("fig-1")
		fig.Bounds = nil
		d := doc.NewMockDocument(&doc.MockNode{NodeID: "root", Type: "Document", Kids: []*doc.MockNode{fig}})
		client := describe.NewMockClient()

		o, err := New(documentConfig(d, client))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		report, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}

		if report.Failed != 1 || report.Failures[0].Reason != "extraction" {
			t.Errorf("failures = %+v", report.Failures)
		}
		if client.Requests() != 0 {
			t.Error("extraction failure must not reach the service")
		}
	})

	t.Run("save failure is fatal", func(t *testing.T) {
		d := doc.NewMockDocument(&doc.MockNode{NodeID: "root", Type: "Document", Kids: []*doc.MockNode{
			figureNode("fig-1"),
		}})
		d.SaveErr = errors.New("disk full")
		client := describe.NewMockClient()

		o, err := New(documentConfig(d, client))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		report, err := o.Run(context.Background())
		var pe *PersistError
		if !errors.As(err, &pe) {
			t.Fatalf("expected PersistError, got %v", err)
		}
		if report.Saved {
			t.Error("failed save must not be reported as saved")
		}
	})

	t.Run("cancellation aborts between nodes", func(t *testing.T) {
		d := doc.NewMockDocument(&doc.MockNode{NodeID: "root", Type: "Document", Kids: []*doc.MockNode{
			figureNode("fig-1"),
		}})
		client := describe.NewMockClient()

		o, err := New(documentConfig(d, client))
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := o.Run(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if client.Requests() != 0 {
			t.Error("cancelled run must not call the service")
		}
	})

	t.Run("open failure is fatal", func(t *testing.T) {
		client := describe.NewMockClient()
		cfg := documentConfig(nil, client)
		cfg.Engine = &doc.MockEngine{OpenErr: errors.New("not a tagged pdf")}

		o, err := New(cfg)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if _, err := o.Run(context.Background()); err == nil {
			t.Fatal("expected open failure to be fatal")
		}
	})
}

func TestRunDocumentMathML(t *testing.T) {
	formula := &doc.MockNode{
		NodeID: "formula-1",
		Type:   "Formula",
		Bounds: &doc.Region{Page: 0, Llx: 10, Lly: 10, Urx: 60, Ury: 30},
	}
	d := doc.NewMockDocument(&doc.MockNode{NodeID: "root", Type: "Document", Kids: []*doc.MockNode{formula}})
	client := describe.NewMockClient()
	client.ResponseText = "<math><mi>x</mi></math>"

	o, err := New(Config{
		Task:          describe.TaskMathML,
		Mode:          mode.Document,
		Input:         "in.pdf",
		Output:        "out.pdf",
		TagPattern:    "Formula",
		MathMLVersion: "mathml-4",
		Engine:        &doc.MockEngine{Doc: d},
		Describer:     client,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Written != 1 {
		t.Errorf("written = %d", report.Written)
	}
	if len(d.Attached) != 1 {
		t.Fatalf("attached = %d", len(d.Attached))
	}
	if d.Attached[0].Role != "mathml-4" || string(d.Attached[0].Data) != client.ResponseText {
		t.Errorf("attachment = %+v", d.Attached[0])
	}
	if len(client.Opts) == 0 || client.Opts[0].MathMLVersion != "mathml-4" {
		t.Errorf("options = %+v", client.Opts)
	}
}

func TestRunStandalone(t *testing.T) {
	pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

	t.Run("markup to text", func(t *testing.T) {
		dir := t.TempDir()
		in := filepath.Join(dir, "formula.xml")
		out := filepath.Join(dir, "out.txt")
		if err := os.WriteFile(in, []byte("<math><mi>x</mi></math>"), 0o644); err != nil {
			t.Fatal(err)
		}
		client := describe.NewMockClient()
		client.ResponseText = "x"

		o, err := New(Config{
			Task:      describe.TaskAltText,
			Mode:      mode.Markup,
			Input:     in,
			Output:    out,
			Describer: client,
		})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		report, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}

		if report.Matched != 1 || report.Written != 1 || !report.Saved {
			t.Errorf("report = %+v", report)
		}
		got, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "x" {
			t.Errorf("output = %q", got)
		}
		if len(client.Payloads) != 1 || client.Payloads[0].Markup == "" {
			t.Error("markup payload expected")
		}
	})

	t.Run("image to text", func(t *testing.T) {
		dir := t.TempDir()
		in := filepath.Join(dir, "fig.png")
		out := filepath.Join(dir, "out.txt")
		if err := os.WriteFile(in, append(append([]byte{}, pngHeader...), 'x'), 0o644); err != nil {
			t.Fatal(err)
		}
		client := describe.NewMockClient()

		o, err := New(Config{
			Task:      describe.TaskAltText,
			Mode:      mode.Image,
			Input:     in,
			Output:    out,
			Describer: client,
		})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		report, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if report.Written != 1 {
			t.Errorf("written = %d", report.Written)
		}
		if len(client.Payloads) != 1 || client.Payloads[0].MIMEType != "image/png" {
			t.Errorf("payloads = %+v", client.Payloads)
		}
	})

	t.Run("missing input reported, not fatal", func(t *testing.T) {
		dir := t.TempDir()
		client := describe.NewMockClient()

		o, err := New(Config{
			Task:      describe.TaskAltText,
			Mode:      mode.Image,
			Input:     filepath.Join(dir, "missing.png"),
			Output:    filepath.Join(dir, "out.txt"),
			Describer: client,
		})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		report, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if report.Success() {
			t.Error("failed standalone run must not succeed")
		}
		if report.Failed != 1 {
			t.Errorf("failed = %d", report.Failed)
		}
	})
}

func TestNewValidation(t *testing.T) {
	client := describe.NewMockClient()

	if _, err := New(Config{Task: "bogus", Describer: client}); err == nil {
		t.Error("unknown task must be rejected")
	}
	if _, err := New(Config{Task: describe.TaskAltText}); err == nil {
		t.Error("missing describer must be rejected")
	}
	if _, err := New(Config{Task: describe.TaskAltText, Mode: mode.Document, Describer: client}); err == nil {
		t.Error("document mode without engine must be rejected")
	}
	if _, err := New(Config{
		Task: describe.TaskAltText, Mode: mode.Document,
		Describer: client, Engine: &doc.MockEngine{},
		TagPattern: "Fig(",
	}); err == nil {
		t.Error("invalid pattern must be rejected")
	}
}

func TestReportSuccess(t *testing.T) {
	tests := []struct {
		name    string
		written int
		failed  int
		want    bool
	}{
		{"all written", 3, 0, true},
		{"partial", 1, 2, true},
		{"nothing done", 0, 0, true},
		{"only failures", 0, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Report{Written: tt.written, Failed: tt.failed}
			if got := r.Success(); got != tt.want {
				t.Errorf("Success = %v, want %v", got, tt.want)
			}
		})
	}
}
