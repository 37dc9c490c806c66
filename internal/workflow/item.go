package workflow

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mgpai22/verbatim/internal/agent"
	"github.com/mgpai22/verbatim/internal/segment"
	"github.com/mgpai22/verbatim/internal/validate"
)

type Transition struct {
	From Status    `json:"from"`
	To   Status    `json:"to"`
	At   time.Time `json:"at"`
}

// Item is one recording moving through the workflow. Result fields are
// written only by the step that owns the item, so read them once no step is
// running.
type Item struct {
	ID        string
	MediaPath string
	// converted audio handed to models, filled on first use
	AudioPath string
	Duration  *float64

	Segments *segment.Document
	Report   *validate.Report
	Audit    *agent.AuditResult

	Draft     string
	Corrected string

	Aligned       *segment.Document
	AlignedReport *validate.Report

	Err error

	mu      sync.Mutex
	status  Status
	history []Transition
	busy    atomic.Bool
}

func NewItem(mediaPath string) *Item {
	return &Item{
		ID:        uuid.NewString(),
		MediaPath: mediaPath,
		status:    StatusIdle,
	}
}

func (it *Item) Status() Status {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.status
}

func (it *Item) History() []Transition {
	it.mu.Lock()
	defer it.mu.Unlock()
	out := make([]Transition, len(it.history))
	copy(out, it.history)
	return out
}

// SetCorrected stores the human-edited transcript. Only allowed once a draft
// exists and before alignment starts.
func (it *Item) SetCorrected(text string) error {
	if s := it.Status(); s != StatusTextReady {
		return &TransitionError{From: s, To: StatusAligning}
	}
	it.Corrected = text
	return nil
}

// the text alignment should use
func (it *Item) Text() string {
	if it.Corrected != "" {
		return it.Corrected
	}
	return it.Draft
}

func (it *Item) moveTo(to Status) error {
	it.mu.Lock()
	defer it.mu.Unlock()

	if !it.status.CanTransition(to) {
		return &TransitionError{From: it.status, To: to}
	}
	it.history = append(it.history, Transition{From: it.status, To: to, At: time.Now()})
	it.status = to
	return nil
}

// acquire marks the item busy; release must follow
func (it *Item) acquire() error {
	if !it.busy.CompareAndSwap(false, true) {
		return ErrItemBusy
	}
	return nil
}

func (it *Item) release() {
	it.busy.Store(false)
}
