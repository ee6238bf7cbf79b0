package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type recordingImporter struct {
	batches [][]string
	failAt  int
}

func (r *recordingImporter) ImportKnownContacts(_ context.Context, ids []string) (int, error) {
	r.batches = append(r.batches, append([]string(nil), ids...))
	if r.failAt > 0 && len(r.batches) == r.failAt {
		return 0, errors.New("storage full")
	}
	return len(ids), nil
}

type nopReporter struct {
	started  int
	last     int
	finished bool
}

func (n *nopReporter) Start(total int)              { n.started = total }
func (n *nopReporter) Update(current int, _ string) { n.last = current }
func (n *nopReporter) Finish()                      { n.finished = true }

func TestReadContactIDs(t *testing.T) {
	in := "alice\n\n  bob  \n# comment\ncarol\n"
	ids, err := readContactIDs(strings.NewReader(in))
	if err != nil {
		t.Fatalf("readContactIDs: %v", err)
	}
	want := []string{"alice", "bob", "carol"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestImportContactsBatches(t *testing.T) {
	ids := make([]string, importBatchSize*2+5)
	for i := range ids {
		ids[i] = "c" + strings.Repeat("x", i%3) + string(rune('a'+i%26))
	}
	imp := &recordingImporter{}
	rep := &nopReporter{}

	n, err := importContacts(context.Background(), imp, ids, rep)
	if err != nil {
		t.Fatalf("importContacts: %v", err)
	}
	if n != len(ids) {
		t.Errorf("imported = %d, want %d", n, len(ids))
	}
	if len(imp.batches) != 3 || len(imp.batches[2]) != 5 {
		t.Errorf("unexpected batching: %d batches", len(imp.batches))
	}
	if rep.started != len(ids) || rep.last != len(ids) || !rep.finished {
		t.Errorf("reporter = %+v", rep)
	}
}

func TestImportContactsStopsOnError(t *testing.T) {
	ids := make([]string, importBatchSize*3)
	for i := range ids {
		ids[i] = "c"
	}
	imp := &recordingImporter{failAt: 2}
	rep := &nopReporter{}

	n, err := importContacts(context.Background(), imp, ids, rep)
	if err == nil {
		t.Fatal("expected error")
	}
	if n != importBatchSize {
		t.Errorf("imported = %d, want %d", n, importBatchSize)
	}
	if len(imp.batches) != 2 {
		t.Errorf("expected import to stop after failing batch, got %d batches", len(imp.batches))
	}
	if !rep.finished {
		t.Error("reporter not finished")
	}
}
