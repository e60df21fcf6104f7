package grading

import (
	"math"
	"strings"

	"codecampus/internal/domain/model"
	"codecampus/internal/platform/sandbox"
)

// CaseInput pairs a test case expectation with what the sandbox produced
// for it. A nil Run means the case never executed (e.g. compile failed
// before any run); the fault then explains why.
type CaseInput struct {
	TestCaseID string
	Expected   string
	Run        *sandbox.RunResult
}

type CaseVerdict struct {
	TestCaseID   string
	Status       model.SubmissionStatus
	Passed       bool
	TimeMs       int
	ActualOutput string
	ErrorMessage string
}

type Result struct {
	Status      model.SubmissionStatus
	Score       int // round(100 * passed / total)
	TimeMsTotal int
	Cases       []CaseVerdict
}

// Normalize prepares an output for comparison: trailing whitespace is
// stripped per line and trailing blank lines are removed. Everything else
// is exact and case-sensitive.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	end := len(lines)
	for end > 0 && lines[end-1] == "" {
		end--
	}
	return strings.Join(lines[:end], "\n")
}

// Evaluate grades a full submission. A case passes only if its run produced
// no fault and the normalized outputs match. Overall status priority: any
// timeout wins, then any other fault, then all-pass, then wrong answer.
func Evaluate(inputs []CaseInput) Result {
	result := Result{Status: model.StatusWrongAnswer}
	if len(inputs) == 0 {
		return result
	}

	passed := 0
	sawTimeout := false
	sawFault := false

	for _, in := range inputs {
		verdict := gradeCase(in)
		if verdict.Passed {
			passed++
		}
		switch verdict.Status {
		case model.StatusTimeLimitExceeded:
			sawTimeout = true
		case model.StatusRuntimeError:
			sawFault = true
		}
		result.TimeMsTotal += verdict.TimeMs
		result.Cases = append(result.Cases, verdict)
	}

	result.Score = int(math.Round(100 * float64(passed) / float64(len(inputs))))

	switch {
	case sawTimeout:
		result.Status = model.StatusTimeLimitExceeded
	case sawFault:
		result.Status = model.StatusRuntimeError
	case passed == len(inputs):
		result.Status = model.StatusAccepted
	default:
		result.Status = model.StatusWrongAnswer
	}
	return result
}

func gradeCase(in CaseInput) CaseVerdict {
	verdict := CaseVerdict{TestCaseID: in.TestCaseID}

	if in.Run == nil {
		verdict.Status = model.StatusRuntimeError
		verdict.ErrorMessage = "no execution result"
		return verdict
	}
	verdict.TimeMs = in.Run.TimeMs
	verdict.ActualOutput = in.Run.Stdout

	if fault := in.Run.Fault; fault != nil {
		verdict.ErrorMessage = fault.Message
		if fault.Kind == sandbox.FaultTimeout {
			verdict.Status = model.StatusTimeLimitExceeded
		} else {
			// Crash, out-of-memory and compile failure all surface as
			// runtime errors; the public status set has no finer grain.
			verdict.Status = model.StatusRuntimeError
		}
		return verdict
	}

	if Normalize(in.Run.Stdout) == Normalize(in.Expected) {
		verdict.Status = model.StatusAccepted
		verdict.Passed = true
	} else {
		verdict.Status = model.StatusWrongAnswer
	}
	return verdict
}
