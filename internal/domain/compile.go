package domain

import "context"

type CompileRequest struct {
	Code     string   `json:"code"`
	Language Language `json:"language"`
}

type CompileResult struct {
	Output string `json:"output"`
}

// Compiler is the opaque code-execution collaborator.
type Compiler interface {
	Compile(ctx context.Context, req CompileRequest) (*CompileResult, error)
}

// DefaultCompileError is shown when the collaborator gives no reason.
const DefaultCompileError = "An error occurred"

// CompileError is a failure reported by the code-execution service itself.
type CompileError struct {
	StatusCode int
	Message    string
}

func (e *CompileError) Error() string {
	if e.Message == "" {
		return DefaultCompileError
	}
	return e.Message
}
