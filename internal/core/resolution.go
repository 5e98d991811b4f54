package core

import (
	"fmt"
	"strings"

	"envlock/internal/types"
)

// FailedAttempt records one descriptor that failed to resolve in one
// input.
type FailedAttempt struct {
	InstallID types.InstallID
	InputRef  string
}

// ResolutionFailure lists, per attempt, which install ID failed in
// which input.
type ResolutionFailure []FailedAttempt

// GroupResult is the outcome of resolving one group: either the full
// set of locked packages, or the accumulated failed attempts.
// Exactly one side is meaningful; Resolved reports which.
type GroupResult struct {
	pkgs    types.SystemPackages
	failure ResolutionFailure
	ok      bool
}

func resolvedGroup(pkgs types.SystemPackages) GroupResult {
	return GroupResult{pkgs: pkgs, ok: true}
}

func failedGroup(failure ResolutionFailure) GroupResult {
	return GroupResult{failure: failure}
}

// Resolved reports whether the group resolved against some input.
func (r GroupResult) Resolved() bool { return r.ok }

// Packages returns the locked packages of a resolved group.
func (r GroupResult) Packages() types.SystemPackages { return r.pkgs }

// Failure returns the failed attempts of an unresolved group.
func (r GroupResult) Failure() ResolutionFailure { return r.failure }

func describeFailure(msg *strings.Builder, name types.GroupName, failure ResolutionFailure) {
	fmt.Fprintf(msg, "  in '%s':\n", name)
	for _, attempt := range failure {
		fmt.Fprintf(msg, "    failed to resolve '%s' in input '%s'\n", attempt.InstallID, attempt.InputRef)
	}
}
