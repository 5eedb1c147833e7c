package ducktest

import (
	"errors"
	"fmt"
)

// StructuralError is a violation of the framework's usage contract, as
// opposed to a failed assertion about the code under test. It is never
// recorded as a test failure; it bails out the whole report.
type StructuralError struct {
	// Code identifies the violation.
	Code StructuralErrorCode

	// Message is written verbatim after "Bail out!".
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// StructuralErrorCode categorizes structural errors.
type StructuralErrorCode string

const (
	// ErrCodeDuplicateSubcase indicates a subcase name repeated within one pass.
	ErrCodeDuplicateSubcase StructuralErrorCode = "DUPLICATE_SUBCASE"

	// ErrCodeUnexpectedSubcase indicates a subcase that matches neither the
	// current path nor a registrable child.
	ErrCodeUnexpectedSubcase StructuralErrorCode = "UNEXPECTED_SUBCASE"

	// ErrCodeOutsideTestcase indicates Subcase, Message or SoftFail called with
	// no active testcase.
	ErrCodeOutsideTestcase StructuralErrorCode = "OUTSIDE_TESTCASE"

	// ErrCodeNestedFixture indicates a fixture registered inside a fixture.
	ErrCodeNestedFixture StructuralErrorCode = "NESTED_FIXTURE"

	// ErrCodeNestedTestcase indicates a testcase or fixture registered from a
	// testcase body.
	ErrCodeNestedTestcase StructuralErrorCode = "NESTED_TESTCASE"

	// ErrCodeAlreadyReported indicates registration or reporting after the
	// suite has been reported.
	ErrCodeAlreadyReported StructuralErrorCode = "ALREADY_REPORTED"

	// ErrCodeReport indicates a misuse of the underlying report tree.
	ErrCodeReport StructuralErrorCode = "REPORT"
)

func (e *StructuralError) Error() string {
	return e.Message
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// IsStructural reports whether err is or wraps a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

func structural(code StructuralErrorCode, message string) *StructuralError {
	return &StructuralError{Code: code, Message: message}
}

// reportError wraps a report-tree error.
func reportError(err error) *StructuralError {
	var se *StructuralError
	if errors.As(err, &se) {
		return se
	}
	return &StructuralError{Code: ErrCodeReport, Message: err.Error(), Err: err}
}

var (
	errDuplicateSubcase  = structural(ErrCodeDuplicateSubcase, "duplicate subcase name encountered during run")
	errUnexpectedSubcase = structural(ErrCodeUnexpectedSubcase, "encountered unexpected subcase")
	errSubcaseOutside    = structural(ErrCodeOutsideTestcase, "subcase should occur within testcase")
	errMessageOutside    = structural(ErrCodeOutsideTestcase, "message should occur within testcase")
	errSoftFailOutside   = structural(ErrCodeOutsideTestcase, "soft failure should occur within testcase")
	errNestedFixture     = structural(ErrCodeNestedFixture, "fixtures may not be nested")
	errTestcaseNested    = structural(ErrCodeNestedTestcase, "testcase should not occur within testcase")
	errFixtureNested     = structural(ErrCodeNestedTestcase, "fixture should not occur within testcase")
	errAlreadyReported   = structural(ErrCodeAlreadyReported, "suite already reported")
)

// asStructural extracts a StructuralError from err, including one carried by
// a recovered panic.
func asStructural(err error) (*StructuralError, bool) {
	var se *StructuralError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// raise unwinds the calling body with a structural error.
func raise(err *StructuralError) {
	panic(err)
}

// raiseErr unwinds with err, which must carry a structural error.
func raiseErr(err error) {
	se, ok := asStructural(err)
	if !ok {
		se = &StructuralError{Code: ErrCodeReport, Message: fmt.Sprintf("unexpected error: %v", err), Err: err}
	}
	panic(se)
}
