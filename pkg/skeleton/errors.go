package skeleton

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by this package wraps exactly one of them.
var (
	// ErrImport marks a missing or malformed source scene.
	ErrImport = errors.New("import error")
	// ErrConsistency marks structural corruption found while building a model.
	ErrConsistency = errors.New("consistency error")
	// ErrPrecondition marks an API misuse by the caller.
	ErrPrecondition = errors.New("precondition error")
)

// Error carries enough context to locate the offending asset.
type Error struct {
	Kind   error  // ErrImport, ErrConsistency or ErrPrecondition
	Op     string // operation that failed, e.g. "bind meshes"
	Node   string // node or channel name, if any
	Mesh   string // mesh name, if any
	Bone   int    // bone id, NoBone if not applicable
	Stream string // keyframe stream, if any
	Msg    string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Mesh != "" {
		fmt.Fprintf(&b, ": mesh %q", e.Mesh)
	}
	if e.Node != "" {
		fmt.Fprintf(&b, ": node %q", e.Node)
	}
	if e.Bone != NoBone {
		fmt.Fprintf(&b, ": bone %d", e.Bone)
	}
	if e.Stream != "" {
		fmt.Fprintf(&b, ": %s stream", e.Stream)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	return b.String()
}

// Unwrap exposes the error kind to errors.Is.
func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Bone: NoBone, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) node(name string) *Error {
	e.Node = name
	return e
}

func (e *Error) mesh(name string) *Error {
	e.Mesh = name
	return e
}

func (e *Error) bone(id int) *Error {
	e.Bone = id
	return e
}

func (e *Error) stream(s Stream) *Error {
	e.Stream = s.String()
	return e
}
