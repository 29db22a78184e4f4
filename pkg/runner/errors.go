package runner

import (
	"fmt"
	"strings"
)

// UnresolvedDependencyError reports that the fetch phase's dependency
// rerun loop ended — by exhausting its iteration bound or reaching a
// fixed point — with cases still missing evidence they declared as a
// dependency.
type UnresolvedDependencyError struct {
	Cases []CaseID
}

func (e *UnresolvedDependencyError) Error() string {
	names := make([]string, len(e.Cases))
	for i, c := range e.Cases {
		names[i] = c.String()
	}
	return fmt.Sprintf("runner: unresolved evidence dependencies for: %s", strings.Join(names, ", "))
}

// NewUnresolvedDependencyError constructs an UnresolvedDependencyError.
func NewUnresolvedDependencyError(cases []CaseID) *UnresolvedDependencyError {
	return &UnresolvedDependencyError{Cases: cases}
}
