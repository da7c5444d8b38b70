// Package services implements the board operations: hierarchy resolution,
// ownership checks, scoped name uniqueness, delete guards and read views,
// plus account registration and authentication.
//
// Expected conditions (missing entity, wrong owner, duplicate name, live
// children, empty update, invalid input) come back as a Result with
// Success=false. Only infrastructure failures are returned as errors.
package services

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeNotFound        Code = "not_found"
	CodeUnauthorized    Code = "unauthorized"
	CodeDuplicateName   Code = "duplicate_name"
	CodeHasDependents   Code = "has_dependents"
	CodeNoChanges       Code = "no_changes"
	CodeValidation      Code = "validation_error"
	// CodeUnauthenticated covers bad credentials and unusable bearer tokens.
	CodeUnauthenticated Code = "unauthenticated"
)

// Level names the entity a failure refers to.
type Level string

const (
	LevelUser      Level = "user"
	LevelWorkspace Level = "workspace"
	LevelList      Level = "list"
	LevelTask      Level = "task"
)

// Result is the envelope every operation returns.
type Result struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Data     any    `json:"data"`
	Code     Code   `json:"code,omitempty"`
	Resource Level  `json:"resource,omitempty"`
}

// Failure is an expected, reportable condition.
type Failure struct {
	Code     Code
	Resource Level
	Message  string
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Result() *Result {
	return &Result{Success: false, Message: f.Message, Code: f.Code, Resource: f.Resource}
}

func succeed(message string, data any) (*Result, error) {
	return &Result{Success: true, Message: message, Data: data}, nil
}

// finish turns a Failure into an unsuccessful Result and lets any other
// error through untouched.
func finish(res *Result, err error) (*Result, error) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Result(), nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func notFound(level Level) *Failure {
	return &Failure{Code: CodeNotFound, Resource: level, Message: fmt.Sprintf("%s not found", level)}
}

func notFoundIn(level, parent Level) *Failure {
	return &Failure{Code: CodeNotFound, Resource: level, Message: fmt.Sprintf("%s not found in %s", level, parent)}
}

func duplicate(level Level, name string) *Failure {
	return &Failure{
		Code:     CodeDuplicateName,
		Resource: level,
		Message:  fmt.Sprintf("a %s named %q already exists", level, name),
	}
}

func hasDependents(level, child Level) *Failure {
	return &Failure{
		Code:     CodeHasDependents,
		Resource: level,
		Message:  fmt.Sprintf("cannot delete %s: it still has %ss", level, child),
	}
}

func noChanges(level Level) *Failure {
	return &Failure{Code: CodeNoChanges, Resource: level, Message: "no changes requested"}
}

func invalid(err error) *Failure {
	return &Failure{Code: CodeValidation, Message: err.Error()}
}

func invalidf(format string, args ...any) *Failure {
	return &Failure{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}
