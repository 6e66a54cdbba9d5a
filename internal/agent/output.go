package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/hilthontt/collaby/internal/domain"
)

const (
	OutputPlaceholder = "Output will appear here..."
	OutputCompiling   = "Compiling..."
)

// OutputPane holds the last compile result. Failures are shown, never returned.
type OutputPane struct {
	mu      sync.RWMutex
	text    string
	running bool
	failed  bool
}

func NewOutputPane() *OutputPane {
	return &OutputPane{text: OutputPlaceholder}
}

func (p *OutputPane) Run(ctx context.Context, compiler domain.Compiler, req domain.CompileRequest) string {
	p.mu.Lock()
	p.running = true
	p.failed = false
	p.text = OutputCompiling
	p.mu.Unlock()

	text, failed := render(compiler.Compile(ctx, req))

	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	p.failed = failed
	p.text = text
	return text
}

func render(res *domain.CompileResult, err error) (string, bool) {
	if err != nil {
		var compileErr *domain.CompileError
		if errors.As(err, &compileErr) {
			return compileErr.Error(), true
		}
		return domain.DefaultCompileError, true
	}
	if res == nil {
		return domain.DefaultCompileError, true
	}
	return res.Output, false
}

func (p *OutputPane) Text() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.text
}

func (p *OutputPane) Running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

func (p *OutputPane) Failed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.failed
}
