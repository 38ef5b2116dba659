package util

import "errors"

var (
	ErrInvalidChunkSize      = errors.New("chunk size must be positive")
	ErrGraderUnavailable     = errors.New("grader unavailable")
	ErrGraderEmptyResponse   = errors.New("grader returned an empty response")
	ErrMalformedGraderOutput = errors.New("grader output is not valid JSON")
	ErrEvaluationFailed      = errors.New("no usable grader output for question")
	ErrRunInProgress         = errors.New("an evaluation run is already in progress")
	ErrSubjectNotFound       = errors.New("subject not found")
)
