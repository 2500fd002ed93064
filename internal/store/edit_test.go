package store

import (
	"errors"
	"testing"

	"ganttline/internal/model"
)

func newEditFixture(t *testing.T) (*Store, model.Item, *EditSession) {
	t.Helper()
	s := New()
	it := item("1", "Kickoff", "2021-01-01", "2021-01-03")
	if err := s.Replace("file", []model.Item{it}); err != nil {
		t.Fatal(err)
	}
	return s, it, NewEditSession(s)
}

func TestEditCommitOnEnter(t *testing.T) {
	s, it, e := newEditFixture(t)

	if e.State() != EditIdle {
		t.Fatalf("initial state = %s", e.State())
	}
	if err := e.Begin(it); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if e.State() != EditEditing || e.Buffer() != "Kickoff" {
		t.Fatalf("after Begin: state %s buffer %q", e.State(), e.Buffer())
	}
	if err := e.Input("Kickoff meeting"); err != nil {
		t.Fatalf("Input: %v", err)
	}
	if err := e.Key("a"); err != nil {
		t.Fatalf("ignored key: %v", err)
	}
	if err := e.Key("Enter"); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if e.State() != EditCommitted || !e.Renamed() {
		t.Fatalf("after Enter: state %s renamed %v", e.State(), e.Renamed())
	}
	if got, _ := s.Get("1"); got.Name != "Kickoff meeting" {
		t.Fatalf("name = %q", got.Name)
	}
}

func TestEditBlurCommits(t *testing.T) {
	s, it, e := newEditFixture(t)
	if err := e.Begin(it); err != nil {
		t.Fatal(err)
	}
	if err := e.Input("Blurred"); err != nil {
		t.Fatal(err)
	}
	if err := e.Blur(); err != nil {
		t.Fatalf("Blur: %v", err)
	}
	if got, _ := s.Get("1"); got.Name != "Blurred" {
		t.Fatalf("name = %q", got.Name)
	}
}

func TestEditEscapeCancels(t *testing.T) {
	s, it, e := newEditFixture(t)
	v := s.Version()
	if err := e.Begin(it); err != nil {
		t.Fatal(err)
	}
	if err := e.Input("Discarded"); err != nil {
		t.Fatal(err)
	}
	if err := e.Key("Escape"); err != nil {
		t.Fatalf("Escape: %v", err)
	}
	if e.State() != EditCancelled {
		t.Fatalf("state = %s", e.State())
	}
	if got, _ := s.Get("1"); got.Name != "Kickoff" || s.Version() != v {
		t.Fatalf("cancel changed the store: %q v%d", got.Name, s.Version())
	}
}

func TestEditBlankCommitKeepsName(t *testing.T) {
	s, it, e := newEditFixture(t)
	v := s.Version()
	if err := e.Begin(it); err != nil {
		t.Fatal(err)
	}
	if err := e.Input("   "); err != nil {
		t.Fatal(err)
	}
	if err := e.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if e.State() != EditCommitted || e.Renamed() {
		t.Fatalf("blank commit: state %s renamed %v", e.State(), e.Renamed())
	}
	if got, _ := s.Get("1"); got.Name != "Kickoff" || s.Version() != v {
		t.Fatalf("blank commit changed the store: %q", got.Name)
	}
}

func TestEditInvalidTransitions(t *testing.T) {
	_, it, e := newEditFixture(t)

	for name, fn := range map[string]func() error{
		"input":  func() error { return e.Input("x") },
		"commit": e.Commit,
		"cancel": e.Cancel,
	} {
		if err := fn(); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s while idle: err = %v", name, err)
		}
	}

	if err := e.Begin(it); err != nil {
		t.Fatal(err)
	}
	if err := e.Begin(it); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double Begin err = %v", err)
	}
	if err := e.Cancel(); err != nil {
		t.Fatal(err)
	}
	if err := e.Commit(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("commit after cancel err = %v", err)
	}
	// A finished session can start over.
	if err := e.Begin(it); err != nil {
		t.Fatalf("Begin after cancel: %v", err)
	}
}

func TestEditCommitUnknownItem(t *testing.T) {
	_, _, e := newEditFixture(t)
	if err := e.Begin(item("ghost", "Ghost", "2021-01-01", "2021-01-01")); err != nil {
		t.Fatal(err)
	}
	if err := e.Input("Still ghost"); err != nil {
		t.Fatal(err)
	}
	if err := e.Commit(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("commit unknown err = %v", err)
	}
}
