package skeleton

import "fmt"

// Diagnostic codes.
const (
	DiagChannelNoNode     = "channel-no-node"
	DiagChannelNotBone    = "channel-not-bone"
	DiagVertexFormat      = "vertex-format-mismatch"
	DiagWeightSum         = "weights-not-normalized"
	DiagDefaultTickRate   = "default-ticks-per-second"
	DiagUnnamedNode       = "unnamed-node"
	DiagUnusedBoneBinding = "empty-bone-binding"
	DiagEmptyClip         = "empty-clip"
)

// Diagnostic is a non-fatal finding about the imported data.
type Diagnostic struct {
	Code    string
	Node    string
	Mesh    string
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s", d.Code, d.Message)
}

// Diagnostics is the list of warnings produced while building a model.
// Callers decide whether and how to log them.
type Diagnostics []Diagnostic

func (d *Diagnostics) add(code, node, mesh, format string, args ...any) {
	*d = append(*d, Diagnostic{
		Code:    code,
		Node:    node,
		Mesh:    mesh,
		Message: fmt.Sprintf(format, args...),
	})
}

// Count returns how many diagnostics carry the given code.
func (d Diagnostics) Count(code string) int {
	n := 0
	for _, diag := range d {
		if diag.Code == code {
			n++
		}
	}
	return n
}
