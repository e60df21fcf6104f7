package sandbox

import "context"

// FaultKind classifies deterministic user-code faults reported by the
// sandbox. Infra problems (the daemon being unreachable, a container that
// never started) are returned as plain errors instead and may be retried.
type FaultKind string

const (
	FaultTimeout     FaultKind = "timeout"
	FaultOutOfMemory FaultKind = "out_of_memory"
	FaultCrash       FaultKind = "crash"
	FaultCompile     FaultKind = "compile"
)

type Fault struct {
	Kind    FaultKind `json:"kind"`
	Message string    `json:"message,omitempty"`
}

// CompileRequest asks the sandbox to compile a program once. The returned
// artifact id is passed to subsequent runs of the same submission.
type CompileRequest struct {
	Language      string `json:"language"`
	Code          string `json:"code"`
	MemoryLimitKb int    `json:"memory_limit_kb"`
}

type CompileResult struct {
	OK         bool   `json:"ok"`
	ArtifactID string `json:"artifact_id,omitempty"`
	Output     string `json:"output,omitempty"`
}

type RunRequest struct {
	Language      string `json:"language"`
	Code          string `json:"code,omitempty"`        // interpreted languages
	ArtifactID    string `json:"artifact_id,omitempty"` // compiled languages
	Stdin         string `json:"stdin"`
	TimeLimitMs   int    `json:"time_limit_ms"`
	MemoryLimitKb int    `json:"memory_limit_kb"`
}

type RunResult struct {
	Stdout   string `json:"stdout"`
	ExitCode int    `json:"exit_code"`
	TimeMs   int    `json:"time_ms"`
	Fault    *Fault `json:"fault,omitempty"`
}

// Runner is the external isolation capability. The daemon enforces the
// wall-clock and memory ceilings; worker logic never does.
type Runner interface {
	Compile(ctx context.Context, req CompileRequest) (*CompileResult, error)
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
}
