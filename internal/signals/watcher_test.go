package signals

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStopFileTriggersCancel(t *testing.T) {
	dir := t.TempDir()

	cancelled := make(chan string, 1)
	w, err := NewWatcher(dir, func(conversationID string) bool {
		cancelled <- conversationID
		return true
	}, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := RequestStop(dir, "conv1"); err != nil {
		t.Fatalf("RequestStop: %v", err)
	}

	select {
	case id := <-cancelled:
		if id != "conv1" {
			t.Errorf("cancelled %q, want conv1", id)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("stop signal was not delivered")
	}

	// The stop file is consumed once acted on.
	waitForGone(t, filepath.Join(dir, "stop-conv1"))
}

func TestPreexistingStopFilesAreHonored(t *testing.T) {
	dir := t.TempDir()
	if err := RequestStop(dir, "early"); err != nil {
		t.Fatal(err)
	}

	cancelled := make(chan string, 1)
	w, err := NewWatcher(dir, func(conversationID string) bool {
		cancelled <- conversationID
		return true
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	select {
	case id := <-cancelled:
		if id != "early" {
			t.Errorf("cancelled %q, want early", id)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("pre-existing stop file was not honored")
	}
}

func TestUnrelatedFilesAreIgnored(t *testing.T) {
	dir := t.TempDir()

	cancelled := make(chan string, 1)
	w, err := NewWatcher(dir, func(conversationID string) bool {
		cancelled <- conversationID
		return true
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case id := <-cancelled:
		t.Errorf("unexpected cancel for %q", id)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestAnswerFileDeliversToOwner(t *testing.T) {
	dir := t.TempDir()

	type delivery struct {
		id     string
		answer string
	}
	got := make(chan delivery, 1)
	w, err := NewWatcher(dir, nil, func(escalationID, answer string) bool {
		got <- delivery{escalationID, answer}
		return true
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := RequestAnswer(dir, "esc1", "ship it"); err != nil {
		t.Fatalf("RequestAnswer: %v", err)
	}

	select {
	case d := <-got:
		if d.id != "esc1" || d.answer != "ship it" {
			t.Errorf("delivered %+v, want esc1 / ship it", d)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("answer was not delivered")
	}

	// The answer file is consumed once the owning process accepted it.
	waitForGone(t, filepath.Join(dir, "answer-esc1"))
}

func TestAnswerFileStaysWhenNotOwned(t *testing.T) {
	dir := t.TempDir()

	// This process does not host the suspended branch.
	w, err := NewWatcher(dir, nil, func(escalationID, answer string) bool {
		return false
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := RequestAnswer(dir, "esc1", "ship it"); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	raw, err := os.ReadFile(filepath.Join(dir, "answer-esc1"))
	if err != nil {
		t.Fatalf("answer file should stay for the owning process: %v", err)
	}
	if string(raw) != "ship it" {
		t.Errorf("answer file body = %q", raw)
	}
}

func waitForGone(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("signal file %s was not removed", filepath.Base(path))
}
