package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies engine errors per the runtime's taxonomy.
type ErrorCode string

const (
	// CodeConfig covers malformed graphs, unknown node ids and kinds,
	// and duplicate registrations.
	CodeConfig ErrorCode = "Config"

	// CodeCycle is returned when topological validation fails.
	CodeCycle ErrorCode = "Cycle"

	// CodeParse covers rule and expression parser failures.
	CodeParse ErrorCode = "Parse"

	// CodeEval covers runtime failures evaluating an expression or node.
	CodeEval ErrorCode = "Eval"

	// CodeIo surfaces collaborator failures (databases, models, RPC).
	CodeIo ErrorCode = "Io"

	// CodeTimeout marks a saga step or breaker probe deadline overrun.
	CodeTimeout ErrorCode = "Timeout"

	// CodeCancelled marks an execution cancelled through its context.
	CodeCancelled ErrorCode = "Cancelled"
)

// Error is the structured error produced by the engine. NodeID is set
// whenever the failure is attributable to a single node.
type Error struct {
	Code    ErrorCode
	NodeID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	if e.NodeID != "" {
		sb.WriteString(" [node ")
		sb.WriteString(e.NodeID)
		sb.WriteString("]")
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	return sb.String()
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Cause }

// CycleError reports a failed topological validation along with the
// residual node set that could not be ordered.
type CycleError struct {
	Nodes []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("Cycle: graph contains a cycle through nodes %v", e.Nodes)
}

func configErr(nodeID, format string, args ...any) *Error {
	return &Error{Code: CodeConfig, NodeID: nodeID, Message: fmt.Sprintf(format, args...)}
}

func evalErr(nodeID string, cause error) *Error {
	return &Error{Code: CodeEval, NodeID: nodeID, Message: cause.Error(), Cause: cause}
}

// HasCode reports whether err is (or wraps) a graph.Error with the
// given code.
func HasCode(err error, code ErrorCode) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code == code
	}
	return false
}

// IsCycle reports whether err is a cycle-validation failure.
func IsCycle(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce)
}
