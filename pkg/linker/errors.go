package linker

import "fmt"

// ErrorReporter accumulates semantic link errors (undefined symbols,
// illegal relocations against a PIE, relocation overflow) across a phase
// instead of aborting on the first one, the way a real linker reports
// every offending symbol in one run rather than one per invocation.
// Programming invariants still go through utils.Fatal/utils.Assert and
// abort immediately; this type is only for errors that are a property of
// the input, not a bug in this program.
type ErrorReporter struct {
	messages []string
}

func NewErrorReporter() *ErrorReporter {
	return &ErrorReporter{}
}

func (r *ErrorReporter) Add(format string, args ...any) {
	r.messages = append(r.messages, fmt.Sprintf(format, args...))
}

func (r *ErrorReporter) HasErrors() bool {
	return len(r.messages) > 0
}

func (r *ErrorReporter) Messages() []string {
	return r.messages
}

func (r *ErrorReporter) Error() string {
	s := ""
	for i, m := range r.messages {
		if i > 0 {
			s += "\n"
		}
		s += m
	}
	return s
}
