package asmcontext

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/xyproto/vasm/internal/diag"
)

func newCtx() *Context {
	return New(diag.New(nil))
}

func TestAddIncludePathDedups(t *testing.T) {
	c := newCtx()
	c.AddIncludePath("foo")
	c.AddIncludePath("./foo")
	c.AddIncludePath("bar")
	got := c.IncludePaths()
	if len(got) != 2 {
		t.Fatalf("expected 2 deduplicated include paths, got %v", got)
	}
}

func TestRecordDependencyDedupsAndPreservesOrder(t *testing.T) {
	c := newCtx()
	c.RecordDependency("a.s")
	c.RecordDependency("b.s")
	c.RecordDependency("a.s")

	var buf bytes.Buffer
	c.Options.DependMode = "list"
	if err := c.WriteDependencies(&buf, "out"); err != nil {
		t.Fatalf("WriteDependencies: %v", err)
	}
	if buf.String() != "a.s\nb.s\n" {
		t.Fatalf("dependency list = %q", buf.String())
	}
}

func TestWriteDependenciesMakeFormatQuotesSpaces(t *testing.T) {
	c := newCtx()
	c.RecordDependency("has space.s")
	c.Options.DependMode = "make"

	var buf bytes.Buffer
	if err := c.WriteDependencies(&buf, "a.out"); err != nil {
		t.Fatalf("WriteDependencies: %v", err)
	}
	want := "a.out: \"has space.s\"\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestAbortRemovesOutputOnlyOnFailure(t *testing.T) {
	c := newCtx()
	dir := t.TempDir()
	path := filepath.Join(dir, "a.out")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	c.Options.OutputPath = path
	c.MarkOutputOpened()

	if err := c.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Abort should not remove the output file on a clean run: %v", err)
	}

	c.Diag.General(22, "x") // force a failure
	if err := c.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("Abort should remove the output file once the run failed")
	}
}
