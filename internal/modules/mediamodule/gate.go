package mediamodule

import "strings"

// SubmissionGate decides whether an entity form may be submitted. The
// rule is uniform across entity kinds: every required field filled and
// at least one asset queued. It only reads; it never mutates the
// session or the form.
type SubmissionGate struct {
	requiredFields []string
}

// NewSubmissionGate creates a gate for the given required field names
func NewSubmissionGate(requiredFields []string) *SubmissionGate {
	return &SubmissionGate{requiredFields: requiredFields}
}

// RequiredFields returns the field names the gate checks
func (g *SubmissionGate) RequiredFields() []string {
	fields := make([]string, len(g.requiredFields))
	copy(fields, g.requiredFields)
	return fields
}

// CanSubmit validates a form against the gate's required fields and the
// session's queue. A nil error means submission may proceed. Whitespace
// does not count as filled.
func (g *SubmissionGate) CanSubmit(fields map[string]string, session *BatchSession) *ValidationError {
	var missing []string
	for _, name := range g.requiredFields {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}

	emptyQueue := session == nil || session.TaskCount() == 0

	if len(missing) == 0 && !emptyQueue {
		return nil
	}
	return &ValidationError{Missing: missing, EmptyQueue: emptyQueue}
}
