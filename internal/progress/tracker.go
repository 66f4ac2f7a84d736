// Package progress keeps the per-conversation project ledger agents use
// to record and query status: phases, decisions, file changes, and
// checkpoints for context re-injection after long runs.
package progress

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mfontane/borgata/internal/fault"
)

// PhaseStatus is the state of one project phase.
type PhaseStatus string

const (
	PhasePending    PhaseStatus = "pending"
	PhaseInProgress PhaseStatus = "in_progress"
	PhaseCompleted  PhaseStatus = "completed"
	PhaseBlocked    PhaseStatus = "blocked"
)

// Phase is the only mutable-in-place progress entity; only status,
// result, assignee, and the blocking reason change after creation.
type Phase struct {
	Name      string      `json:"name"`
	Status    PhaseStatus `json:"status"`
	Assignee  string      `json:"assignee,omitempty"`
	Result    string      `json:"result,omitempty"`
	BlockedBy string      `json:"blocked_by,omitempty"`
}

// Decision is one append-only decision log entry.
type Decision struct {
	Topic     string    `json:"topic"`
	Question  string    `json:"question"`
	Decision  string    `json:"decision"`
	Rationale string    `json:"rationale"`
	Author    string    `json:"author"`
	Phase     string    `json:"phase,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FileChangeKind classifies a file change ledger entry.
type FileChangeKind string

const (
	FileCreated  FileChangeKind = "created"
	FileModified FileChangeKind = "modified"
	FileDeleted  FileChangeKind = "deleted"
)

// FileChange is one append-only file change ledger entry.
type FileChange struct {
	Path        string         `json:"path"`
	Kind        FileChangeKind `json:"kind"`
	Description string         `json:"description"`
	Author      string         `json:"author,omitempty"`
	Phase       string         `json:"phase,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Checkpoint compresses history for re-injection into agent context.
type Checkpoint struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	PendingTasks []string  `json:"pending_tasks"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary is the full structured snapshot returned by GetSummary.
type Summary struct {
	ProjectName  string       `json:"project_name"`
	Objective    string       `json:"objective"`
	Status       string       `json:"status"`
	CurrentPhase string       `json:"current_phase,omitempty"`
	Phases       []Phase      `json:"phases"`
	Decisions    []Decision   `json:"decisions"`
	FileChanges  []FileChange `json:"file_changes"`
	Checkpoints  []Checkpoint `json:"checkpoints"`
}

// Tracker holds the progress state for one conversation. All mutating
// operations are serialized by the tracker's mutex; agents in different
// branches may call concurrently.
type Tracker struct {
	mu sync.Mutex

	initialized  bool
	projectName  string
	objective    string
	status       string
	currentPhase string
	phases       []*Phase
	decisions    []Decision
	fileChanges  []FileChange
	checkpoints  []Checkpoint
}

// NewTracker creates an uninitialized tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// IsInitialized distinguishes "never initialized" from "initialized
// with zero phases".
func (t *Tracker) IsInitialized() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.initialized
}

// InitializeProject sets the project name, objective, and initial
// phase list. Re-initializing replaces the phase list but keeps the
// append-only logs.
func (t *Tracker) InitializeProject(name, objective string, initialPhases []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.initialized = true
	t.projectName = name
	t.objective = objective
	t.phases = t.phases[:0]
	for _, phase := range initialPhases {
		t.phases = append(t.phases, &Phase{Name: phase, Status: PhasePending})
	}
}

// AddPhase appends a new pending phase.
func (t *Tracker) AddPhase(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.initialized = true
	t.phases = append(t.phases, &Phase{Name: name, Status: PhasePending})
}

// StartPhase transitions a phase from pending (or blocked) to
// in_progress, recording the assignee if given.
func (t *Tracker) StartPhase(name, assignee string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.findPhase(name)
	if p == nil {
		return fault.NotFound("phase", name)
	}
	if p.Status == PhaseCompleted || p.Status == PhaseInProgress {
		return &fault.InvalidTransitionError{Entity: "phase " + name, From: string(p.Status), To: string(PhaseInProgress)}
	}
	p.Status = PhaseInProgress
	p.BlockedBy = ""
	if assignee != "" {
		p.Assignee = assignee
	}
	t.currentPhase = name
	return nil
}

// CompletePhase transitions a phase to completed with its result.
// Completing an unknown or already-terminal phase is an error.
func (t *Tracker) CompletePhase(name, result string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.findPhase(name)
	if p == nil {
		return fault.NotFound("phase", name)
	}
	if p.Status == PhaseCompleted {
		return &fault.InvalidTransitionError{Entity: "phase " + name, From: string(p.Status), To: string(PhaseCompleted)}
	}
	p.Status = PhaseCompleted
	p.Result = result
	p.BlockedBy = ""
	if t.currentPhase == name {
		t.currentPhase = ""
	}
	return nil
}

// BlockPhase transitions a phase to blocked, recording what blocks it.
func (t *Tracker) BlockPhase(name, blockedBy string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.findPhase(name)
	if p == nil {
		return fault.NotFound("phase", name)
	}
	if p.Status == PhaseCompleted {
		return &fault.InvalidTransitionError{Entity: "phase " + name, From: string(p.Status), To: string(PhaseBlocked)}
	}
	p.Status = PhaseBlocked
	p.BlockedBy = blockedBy
	return nil
}

// RecordDecision appends a decision log entry. The log never loses an
// entry to a race.
func (t *Tracker) RecordDecision(d Decision) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.initialized = true
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	t.decisions = append(t.decisions, d)
}

// RecordFileChange appends a file change ledger entry.
func (t *Tracker) RecordFileChange(fc FileChange) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.initialized = true
	if fc.CreatedAt.IsZero() {
		fc.CreatedAt = time.Now()
	}
	t.fileChanges = append(t.fileChanges, fc)
}

// CreateCheckpoint records a compressed snapshot with the tasks still
// pending at that point.
func (t *Tracker) CreateCheckpoint(name, description string, pendingTasks []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.initialized = true
	t.checkpoints = append(t.checkpoints, Checkpoint{
		Name:         name,
		Description:  description,
		PendingTasks: append([]string(nil), pendingTasks...),
		CreatedAt:    time.Now(),
	})
}

// UpdateStatus records the conversation-level status line and,
// optionally, the current phase. Last writer wins.
func (t *Tracker) UpdateStatus(status, currentPhase string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.initialized = true
	t.status = status
	if currentPhase != "" {
		t.currentPhase = currentPhase
	}
}

// GetSummary returns a full structured snapshot. Slices are copied so
// the snapshot is stable after release of the lock.
func (t *Tracker) GetSummary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	phases := make([]Phase, len(t.phases))
	for i, p := range t.phases {
		phases[i] = *p
	}
	return Summary{
		ProjectName:  t.projectName,
		Objective:    t.objective,
		Status:       t.status,
		CurrentPhase: t.currentPhase,
		Phases:       phases,
		Decisions:    append([]Decision(nil), t.decisions...),
		FileChanges:  append([]FileChange(nil), t.fileChanges...),
		Checkpoints:  append([]Checkpoint(nil), t.checkpoints...),
	}
}

// BuildContextSummary returns a condensed digest of phases, decisions,
// and the latest checkpoint, sized for re-injection into a limited
// context window. Output is deterministic for unchanged state: repeated
// calls during a turn are stable.
func (t *Tracker) BuildContextSummary() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return "No project has been initialized for this conversation."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\nObjective: %s\n", t.projectName, t.objective)
	if t.status != "" {
		fmt.Fprintf(&b, "Status: %s\n", t.status)
	}
	if t.currentPhase != "" {
		fmt.Fprintf(&b, "Current phase: %s\n", t.currentPhase)
	}

	if len(t.phases) > 0 {
		b.WriteString("Phases:\n")
		for _, p := range t.phases {
			fmt.Fprintf(&b, "- %s [%s]", p.Name, p.Status)
			if p.Assignee != "" {
				fmt.Fprintf(&b, " (assignee: %s)", p.Assignee)
			}
			if p.Status == PhaseBlocked && p.BlockedBy != "" {
				fmt.Fprintf(&b, " blocked by: %s", p.BlockedBy)
			}
			if p.Status == PhaseCompleted && p.Result != "" {
				fmt.Fprintf(&b, " result: %s", truncate(p.Result, 120))
			}
			b.WriteString("\n")
		}
	}

	if len(t.decisions) > 0 {
		// Most recent decisions carry the most weight for the next turn.
		b.WriteString("Recent decisions:\n")
		start := len(t.decisions) - 5
		if start < 0 {
			start = 0
		}
		for _, d := range t.decisions[start:] {
			fmt.Fprintf(&b, "- [%s] %s (%s)\n", d.Topic, truncate(d.Decision, 160), d.Author)
		}
	}

	if len(t.checkpoints) > 0 {
		cp := t.checkpoints[len(t.checkpoints)-1]
		fmt.Fprintf(&b, "Latest checkpoint: %s: %s\n", cp.Name, truncate(cp.Description, 200))
		if len(cp.PendingTasks) > 0 {
			fmt.Fprintf(&b, "Pending tasks: %s\n", strings.Join(cp.PendingTasks, "; "))
		}
	}

	return b.String()
}

func (t *Tracker) findPhase(name string) *Phase {
	for _, p := range t.phases {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
