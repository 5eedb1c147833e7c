package tap

import (
	"fmt"
	"strings"
	"sync"
)

// Version is the TAP version written as the first line of every report.
const Version = 13

// Ordering controls how a subsection's lines are laid out in its parent.
type Ordering int

const (
	// Serial subsections write a "[description]" header and indent by four spaces.
	Serial Ordering = iota
	// Concurrent subsections prefix every line with "  description|  ".
	Concurrent
)

func (o Ordering) String() string {
	switch o {
	case Serial:
		return "serial"
	case Concurrent:
		return "concurrent"
	default:
		return fmt.Sprintf("Ordering(%d)", int(o))
	}
}

// tree is the state shared by every node of one report.
type tree struct {
	mu     sync.Mutex
	bailed bool
}

// Report is one node of a TAP report tree.
type Report struct {
	tree        *tree
	parent      *Report
	description string
	ordering    Ordering // this node's layout within parent
	children    Ordering // default ordering for Begin
	write       func(line string)

	planned int // -1 when the count line is deferred
	count   int
	open    [2]int
	wrote   bool
	success bool
	ended   bool
}

// Option configures a root report.
type Option func(*Report)

// WithPlan emits the count line "1..n" immediately instead of at End.
func WithPlan(n int) Option {
	return func(r *Report) { r.planned = n }
}

// WithOrdering sets the ordering used by Begin on the root.
func WithOrdering(o Ordering) Option {
	return func(r *Report) { r.children = o }
}

// Begin starts a root report on sink and writes the version line.
func Begin(sink Sink, opts ...Option) *Report {
	r := &Report{
		tree:    &tree{},
		planned: -1,
		success: true,
	}
	r.write = func(line string) {
		r.wrote = true
		sink(line)
	}
	for _, opt := range opts {
		opt(r)
	}

	r.emit(fmt.Sprintf("TAP version %d", Version))
	if r.planned >= 0 {
		r.emit(fmt.Sprintf("1..%d", r.planned))
	}
	return r
}

// Description returns the node's description; empty for the root.
func (r *Report) Description() string {
	return r.description
}

// Success reports whether no failure has been recorded on this node or any
// ended subsection. It never returns to true once false.
func (r *Report) Success() bool {
	r.tree.mu.Lock()
	defer r.tree.mu.Unlock()
	return r.success
}

// Ended reports whether End has succeeded on this node.
func (r *Report) Ended() bool {
	r.tree.mu.Lock()
	defer r.tree.mu.Unlock()
	return r.ended
}

// Begin starts a subsection using the node's default ordering.
func (r *Report) Begin(description string) (*Report, error) {
	return r.BeginOrdered(description, r.children)
}

// BeginOrdered starts a subsection with an explicit ordering.
func (r *Report) BeginOrdered(description string, ordering Ordering) (*Report, error) {
	r.tree.mu.Lock()
	defer r.tree.mu.Unlock()
	if err := r.usable("begin"); err != nil {
		return nil, err
	}

	child := &Report{
		tree:        r.tree,
		parent:      r,
		description: description,
		ordering:    ordering,
		children:    r.children,
		planned:     -1,
		success:     true,
	}
	prefix := "    "
	if ordering == Concurrent {
		prefix = "  " + description + "|  "
	}
	child.write = func(line string) {
		if !child.wrote {
			child.wrote = true
			if ordering == Serial {
				r.write("[" + description + "]")
			}
		}
		r.write(prefix + line)
	}
	r.open[ordering]++
	return child, nil
}

// Diagnostic writes message as "# " lines, one per embedded line.
func (r *Report) Diagnostic(message string) error {
	r.tree.mu.Lock()
	defer r.tree.mu.Unlock()
	if err := r.usable("diagnostic"); err != nil {
		return err
	}
	r.diagnostic(message)
	return nil
}

// Fail records a failure: a "not ok" line with the cause's message followed
// by an empty diagnostic block. It counts toward the node's count line.
func (r *Report) Fail(cause error) error {
	r.tree.mu.Lock()
	defer r.tree.mu.Unlock()
	if err := r.usable("fail"); err != nil {
		return err
	}

	r.success = false
	r.count++
	line := "not ok"
	if msg := causeMessage(cause); msg != "" {
		line += " - " + msg
	}
	r.emit(line)
	r.emit("  ---")
	r.emit("  ...")
	return nil
}

// End finalizes the node.
func (r *Report) End() error {
	return r.end("")
}

// EndWith finalizes the node with a message. On a subsection the message is
// appended to the parent's result line as a directive; on the root it is
// written as a diagnostic.
func (r *Report) EndWith(message string) error {
	return r.end(message)
}

func (r *Report) end(message string) error {
	r.tree.mu.Lock()
	defer r.tree.mu.Unlock()
	if err := r.usable("end"); err != nil {
		return err
	}
	if r.open[Serial]+r.open[Concurrent] > 0 {
		return &Error{Op: "end", Description: r.description, Err: ErrChildrenOpen}
	}

	r.ended = true
	if r.planned < 0 && r.wrote {
		r.emit(fmt.Sprintf("1..%d", r.count))
	}

	p := r.parent
	if p == nil {
		if message != "" {
			r.diagnostic(message)
		}
		return nil
	}

	p.open[r.ordering]--
	p.count++
	status := "ok"
	if !r.success {
		status = "not ok"
	}
	line := status + " - " + r.description
	if message != "" {
		line += " # " + message
	}
	p.emit(line)
	p.success = p.success && r.success
	return nil
}

// BailOut writes "Bail out!" with the cause's message and terminates the
// whole tree. Only the first bail-out of a tree is written.
func (r *Report) BailOut(cause error) {
	r.tree.mu.Lock()
	defer r.tree.mu.Unlock()
	if r.tree.bailed {
		return
	}

	line := "Bail out!"
	if msg := causeMessage(cause); msg != "" {
		line += " " + msg
	}
	r.emit(line)
	r.tree.bailed = true
}

// BailedOut reports whether any node of the tree has bailed out.
func (r *Report) BailedOut() bool {
	r.tree.mu.Lock()
	defer r.tree.mu.Unlock()
	return r.tree.bailed
}

func (r *Report) usable(op string) error {
	if r.tree.bailed {
		return &Error{Op: op, Description: r.description, Err: ErrBailedOut}
	}
	if r.ended {
		return &Error{Op: op, Description: r.description, Err: ErrAlreadyEnded}
	}
	return nil
}

func (r *Report) diagnostic(message string) {
	for _, line := range splitLines(message) {
		r.write("# " + line)
	}
}

// emit writes text, splitting embedded line breaks.
func (r *Report) emit(text string) {
	for _, line := range splitLines(text) {
		r.write(line)
	}
}

// causeMessage flattens an error message onto a single line.
func causeMessage(cause error) string {
	if cause == nil {
		return ""
	}
	var parts []string
	for _, line := range splitLines(cause.Error()) {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}
