package progress

import (
	"bytes"
	"testing"
)

func TestNewReporterCI(t *testing.T) {
	t.Setenv("CI", "true")
	if _, ok := NewReporter("Importing contacts").(*CIReporter); !ok {
		t.Error("expected CIReporter when CI is set")
	}
}

func TestCIReporterOutput(t *testing.T) {
	var buf bytes.Buffer
	r := &CIReporter{description: "Importing contacts", out: &buf}
	r.Start(2)
	r.Update(1, "alice")
	r.Update(2, "bob")
	r.Finish()

	want := "Importing contacts: 2 items\n[1/2] alice\n[2/2] bob\nImporting contacts: done\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}
