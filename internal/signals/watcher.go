// Package signals watches a directory for out-of-band requests to a
// running orchestration. A file named stop-<conversation-id> cancels
// that conversation; a file named answer-<escalation-id> carries a
// human answer for a suspended branch. A signal file is removed only by
// the process that acted on it, so one written next to a process that
// does not host the target stays in place for the process that does.
package signals

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

const (
	stopPrefix   = "stop-"
	answerPrefix = "answer-"
)

// CancelFunc is invoked with the conversation id named by a stop file.
// It returns true when a running orchestration was cancelled.
type CancelFunc func(conversationID string) bool

// AnswerFunc delivers an escalation answer. It returns true when this
// process hosted the suspended branch and accepted the answer.
type AnswerFunc func(escalationID, answer string) bool

// Watcher delivers filesystem signals to the orchestrator.
type Watcher struct {
	dir     string
	cancel  CancelFunc
	answer  AnswerFunc
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher creates the signal directory if needed and starts watching
// it. Signal files already present when the watcher starts are honored.
func NewWatcher(dir string, cancel CancelFunc, answer AnswerFunc) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		dir:     dir,
		cancel:  cancel,
		answer:  answer,
		watcher: fw,
		done:    make(chan struct{}),
	}

	// Sweep for signals written before the watcher existed.
	if entries, err := os.ReadDir(dir); err == nil {
		for _, entry := range entries {
			w.handle(entry.Name())
		}
	}

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.handle(filepath.Base(event.Name))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[signals] watch error: %v", err)
		}
	}
}

func (w *Watcher) handle(name string) {
	switch {
	case strings.HasPrefix(name, stopPrefix):
		conversationID := strings.TrimPrefix(name, stopPrefix)
		if conversationID == "" || w.cancel == nil {
			return
		}
		if w.cancel(conversationID) {
			log.Printf("[signals] stop signal honored for conversation %s", conversationID)
			os.Remove(filepath.Join(w.dir, name))
		}

	case strings.HasPrefix(name, answerPrefix):
		escalationID := strings.TrimPrefix(name, answerPrefix)
		if escalationID == "" || w.answer == nil {
			return
		}
		raw, err := os.ReadFile(filepath.Join(w.dir, name))
		if err != nil {
			return
		}
		if w.answer(escalationID, strings.TrimSpace(string(raw))) {
			log.Printf("[signals] answer delivered for escalation %s", escalationID)
			os.Remove(filepath.Join(w.dir, name))
		}
	}
}

// RequestStop writes a stop file for the conversation. Any watcher on
// the same directory will pick it up.
func RequestStop(dir, conversationID string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	path := filepath.Join(dir, stopPrefix+conversationID)
	return os.WriteFile(path, []byte(conversationID), 0644)
}

// RequestAnswer writes an answer file for the escalation. The file body
// is the answer text. It is written to a temp name and renamed into
// place so a watcher never reads a partial answer.
func RequestAnswer(dir, escalationID, answer string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".answer-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(answer); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, answerPrefix+escalationID))
}

// Close stops the watcher.
func (w *Watcher) Close() {
	close(w.done)
	w.watcher.Close()
}
