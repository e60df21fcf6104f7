package worker

import (
	"context"

	"codecampus/internal/app/grading"
	"codecampus/internal/domain/model"
	"codecampus/internal/platform/sandbox"
)

// Executor is the per-language judging strategy. Execute runs the code
// against every test case under the challenge's ceilings and returns one
// graded input per case. A non-nil error is an infra fault (sandbox did not
// run the code at all) and may be retried; user-code faults travel inside
// the run results and never are.
type Executor interface {
	Language() model.Language
	Execute(ctx context.Context, code string, testCases []model.TestCase, timeLimitMs, memoryLimitKb int) ([]grading.CaseInput, error)
}

// NewRegistry builds the language -> strategy dispatch table. Interpreted
// languages run straight from source; compiled ones compile once per
// submission and reuse the artifact across cases.
func NewRegistry(runner sandbox.Runner) map[model.Language]Executor {
	return map[model.Language]Executor{
		model.LangPython: &interpretedExecutor{lang: model.LangPython, runner: runner},
		model.LangNodeJS: &interpretedExecutor{lang: model.LangNodeJS, runner: runner},
		model.LangCPP:    &compiledExecutor{lang: model.LangCPP, runner: runner},
		model.LangJava:   &compiledExecutor{lang: model.LangJava, runner: runner},
	}
}

// RegisteredLanguages lists the keys of a registry in the fixed language
// order, for dispatcher configuration.
func RegisteredLanguages(registry map[model.Language]Executor) []model.Language {
	ordered := []model.Language{model.LangPython, model.LangNodeJS, model.LangCPP, model.LangJava}
	var out []model.Language
	for _, l := range ordered {
		if _, ok := registry[l]; ok {
			out = append(out, l)
		}
	}
	return out
}

type interpretedExecutor struct {
	lang   model.Language
	runner sandbox.Runner
}

func (e *interpretedExecutor) Language() model.Language { return e.lang }

func (e *interpretedExecutor) Execute(ctx context.Context, code string, testCases []model.TestCase, timeLimitMs, memoryLimitKb int) ([]grading.CaseInput, error) {
	inputs := make([]grading.CaseInput, 0, len(testCases))
	for _, tc := range testCases {
		run, err := e.runner.Run(ctx, sandbox.RunRequest{
			Language:      string(e.lang),
			Code:          code,
			Stdin:         tc.Input,
			TimeLimitMs:   timeLimitMs,
			MemoryLimitKb: memoryLimitKb,
		})
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, grading.CaseInput{TestCaseID: tc.ID, Expected: tc.ExpectedOutput, Run: run})
	}
	return inputs, nil
}

type compiledExecutor struct {
	lang   model.Language
	runner sandbox.Runner
}

func (e *compiledExecutor) Language() model.Language { return e.lang }

func (e *compiledExecutor) Execute(ctx context.Context, code string, testCases []model.TestCase, timeLimitMs, memoryLimitKb int) ([]grading.CaseInput, error) {
	compiled, err := e.runner.Compile(ctx, sandbox.CompileRequest{
		Language:      string(e.lang),
		Code:          code,
		MemoryLimitKb: memoryLimitKb,
	})
	if err != nil {
		return nil, err
	}

	if !compiled.OK {
		// Compile failure is deterministic: every case carries the fault so
		// grading sees a uniform outcome.
		fault := &sandbox.Fault{Kind: sandbox.FaultCompile, Message: compiled.Output}
		inputs := make([]grading.CaseInput, 0, len(testCases))
		for _, tc := range testCases {
			inputs = append(inputs, grading.CaseInput{
				TestCaseID: tc.ID,
				Expected:   tc.ExpectedOutput,
				Run:        &sandbox.RunResult{Fault: fault},
			})
		}
		return inputs, nil
	}

	inputs := make([]grading.CaseInput, 0, len(testCases))
	for _, tc := range testCases {
		run, err := e.runner.Run(ctx, sandbox.RunRequest{
			Language:      string(e.lang),
			ArtifactID:    compiled.ArtifactID,
			Stdin:         tc.Input,
			TimeLimitMs:   timeLimitMs,
			MemoryLimitKb: memoryLimitKb,
		})
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, grading.CaseInput{TestCaseID: tc.ID, Expected: tc.ExpectedOutput, Run: run})
	}
	return inputs, nil
}
