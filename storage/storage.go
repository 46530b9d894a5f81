// Package storage archives runs.
//
// A RunRecord summarizes one walk of a model: who ran what with which
// params, what fired, what was said, and why it stopped.
package storage

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/NicValentine/LoFi-Cafe/core"

	"github.com/oklog/ulid/v2"
)

// RunRecord is the archived form of a run.
type RunRecord struct {
	// Id is a ULID, so ids sort by start time.
	Id string `json:"id"`

	Model   string            `json:"model"`
	Version string            `json:"version,omitempty"`
	Agent   string            `json:"agent,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
	Started time.Time         `json:"started"`

	// Ticks is the scheduler's clock when the run stopped.
	Ticks int `json:"ticks"`

	Fired          []string        `json:"fired,omitempty"`
	Lines          []*core.Line    `json:"lines,omitempty"`
	StoppedBecause core.StopReason `json:"stoppedBecause"`
	Error          string          `json:"error,omitempty"`

	// Memories gives the final size of each memory.
	Memories map[string]int `json:"memories,omitempty"`
}

// NewRecord makes a record for a finished walk.
func NewRecord(s *core.Scheduler, params map[string]string, started time.Time, w *core.Walked) *RunRecord {
	m := s.Model
	r := &RunRecord{
		Id:             NewId(started),
		Model:          m.Name,
		Version:        m.Version,
		Params:         params,
		Started:        started.UTC(),
		Ticks:          s.Tick(),
		Fired:          w.Fired(),
		Lines:          w.Lines(),
		StoppedBecause: w.StoppedBecause,
		Error:          w.ErrorMessage,
		Memories:       make(map[string]int, len(m.Memories)),
	}
	for _, spec := range m.Memories {
		if mem := s.Memory(spec.Name); mem != nil {
			r.Memories[spec.Name] = mem.Len()
		}
	}
	return r
}

// Summary returns a copy of the record without its lines.
func (r *RunRecord) Summary() *RunRecord {
	acc := *r
	acc.Lines = nil
	return &acc
}

var (
	entropyLock sync.Mutex
	entropy     = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewId makes a ULID for the given time.
func NewId(t time.Time) string {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// NotFound is returned by GetRun for an unknown run.
var NotFound = errors.New("run not found")

// Storage is a persistence interface for run records.
type Storage interface {
	WriteRun(ctx context.Context, r *RunRecord) error

	// GetRun returns NotFound if there's no such run.
	GetRun(ctx context.Context, model, id string) (*RunRecord, error)

	// ListRuns returns summaries (without lines) in id order.  An
	// empty model means every model.
	ListRuns(ctx context.Context, model string) ([]*RunRecord, error)

	Close() error
}
