// internal/service/worker/process.go

package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	domain "github.com/koo5/hillview-sub009/internal/domain/worker"
)

// Process is one in-flight workload. Cancellation is cooperative: the abort
// flag is observed at suspension points, and the attached context is
// cancelled alongside it so open connections actually close.
type Process struct {
	ID        string
	Kind      domain.ProcessKind
	UpdateID  uint64
	StartedAt time.Time

	abortRequested atomic.Bool
	cancel         context.CancelFunc
}

// AbortRequested reports whether the process was asked to stop.
func (p *Process) AbortRequested() bool {
	return p.abortRequested.Load()
}

func (p *Process) requestAbort() {
	if p.abortRequested.CompareAndSwap(false, true) {
		p.cancel()
	}
}

// ProcessManager creates, tracks and priority-preempts in-flight workloads.
// Preemption follows a single rule: a new process aborts every existing
// non-aborted process whose priority tier is strictly lower; equal priority
// never preempts.
type ProcessManager struct {
	mu        sync.Mutex
	processes map[string]*Process
}

// NewProcessManager creates an empty manager.
func NewProcessManager() *ProcessManager {
	return &ProcessManager{processes: make(map[string]*Process)}
}

// StartProcess registers a new process, first abort-flagging every
// strictly-lower-priority non-aborted process. It returns the process and
// the context its workload must run under.
func (m *ProcessManager) StartProcess(kind domain.ProcessKind, updateID uint64) (*Process, context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.processes {
		if !existing.AbortRequested() && existing.Kind.Priority() < kind.Priority() {
			existing.requestAbort()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	proc := &Process{
		ID:        uuid.NewString(),
		Kind:      kind,
		UpdateID:  updateID,
		StartedAt: time.Now(),
		cancel:    cancel,
	}
	m.processes[proc.ID] = proc
	return proc, ctx
}

// ShouldAbort reports whether the given process was asked to stop. Unknown
// ids read as aborted.
func (m *ProcessManager) ShouldAbort(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	proc, ok := m.processes[id]
	if !ok {
		return true
	}
	return proc.AbortRequested()
}

// CleanupProcess removes a completed process.
func (m *ProcessManager) CleanupProcess(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if proc, ok := m.processes[id]; ok {
		proc.cancel()
		delete(m.processes, id)
	}
}

// HasActiveProcesses reports whether any non-aborted process exists.
func (m *ProcessManager) HasActiveProcesses() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, proc := range m.processes {
		if !proc.AbortRequested() {
			return true
		}
	}
	return false
}

// HighestActivePriority returns the top priority among non-aborted
// processes, or 0 when none are active.
func (m *ProcessManager) HighestActivePriority() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	highest := 0
	for _, proc := range m.processes {
		if !proc.AbortRequested() && proc.Kind.Priority() > highest {
			highest = proc.Kind.Priority()
		}
	}
	return highest
}

// AbortAllProcesses flags every process for cooperative abort.
func (m *ProcessManager) AbortAllProcesses() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, proc := range m.processes {
		proc.requestAbort()
	}
}

// ClearAllProcesses drops every tracked process, cancelling their contexts.
func (m *ProcessManager) ClearAllProcesses() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, proc := range m.processes {
		proc.cancel()
		delete(m.processes, id)
	}
}
