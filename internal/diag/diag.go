// Package diag implements the compiler's error-handling design (spec §7):
// a closed set of fatal error kinds that abort the current top-level
// compile, and a warning bag that never does.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xrash/smetrics"

	"github.com/wasmlang/tscc/internal/source"
)

// Kind is one of the five compile-time error kinds spec §7 names.
type Kind int

const (
	TypeMismatch Kind = iota
	UnresolvedIdentifier
	UnresolvedMember
	GenericInstantiationFailed
	Unimplemented
)

func (k Kind) String() string {
	switch k {
	case TypeMismatch:
		return "type mismatch"
	case UnresolvedIdentifier:
		return "unresolved identifier"
	case UnresolvedMember:
		return "unresolved member"
	case GenericInstantiationFailed:
		return "generic instantiation failed"
	case Unimplemented:
		return "unimplemented"
	default:
		return "unknown"
	}
}

// Error is a single compile-time diagnostic. It implements the error
// interface so it can be returned and wrapped like any other Go error.
type Error struct {
	Kind       Kind
	Span       source.Span
	Message    string
	Suggestion string // "did you mean X?", empty if none
	Excerpt    string // the offending source line, if available
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s: %s", e.Span, e.Kind, e.Message)
	if e.Suggestion != "" {
		fmt.Fprintf(&b, " (did you mean %q?)", e.Suggestion)
	}
	if e.Excerpt != "" {
		fmt.Fprintf(&b, "\n\t%s", e.Excerpt)
	}
	return b.String()
}

// NewUnresolvedIdentifier builds an UnresolvedIdentifier error for name,
// computing a suggestion against the candidate names visible at the use
// site (spec §4.9).
func NewUnresolvedIdentifier(span source.Span, name string, candidates []string) *Error {
	e := &Error{
		Kind:    UnresolvedIdentifier,
		Span:    span,
		Message: fmt.Sprintf("cannot find name %q", name),
	}
	e.Suggestion = Suggest(name, candidates)
	return e
}

// NewUnresolvedMember builds an UnresolvedMember error for a member access
// whose receiver shape is known but does not declare name.
func NewUnresolvedMember(span source.Span, typeName, name string, candidates []string) *Error {
	e := &Error{
		Kind:    UnresolvedMember,
		Span:    span,
		Message: fmt.Sprintf("property %q does not exist on type %q", name, typeName),
	}
	e.Suggestion = Suggest(name, candidates)
	return e
}

// NewTypeMismatch builds a TypeMismatch error.
func NewTypeMismatch(span source.Span, from, to string) *Error {
	return &Error{
		Kind:    TypeMismatch,
		Span:    span,
		Message: fmt.Sprintf("cannot cast %q to %q", from, to),
	}
}

// NewGenericInstantiationFailed builds a GenericInstantiationFailed error.
func NewGenericInstantiationFailed(span source.Span, owner string, param string) *Error {
	return &Error{
		Kind:    GenericInstantiationFailed,
		Span:    span,
		Message: fmt.Sprintf("cannot infer type argument %q of %q", param, owner),
	}
}

// suggestionThreshold is the minimum Jaro-Winkler similarity (0..1) for a
// candidate to be offered as a suggestion. Chosen empirically so that
// single-character typos ("lenght" vs "length") match but unrelated names
// don't.
const suggestionThreshold = 0.82

// Suggest returns the closest candidate to name by Jaro-Winkler similarity,
// or "" if nothing clears suggestionThreshold.
func Suggest(name string, candidates []string) string {
	best := ""
	bestScore := 0.0
	// Sort first so that ties break deterministically regardless of the
	// order Scope.VisibleNames happens to enumerate in.
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	for _, c := range sorted {
		if c == name {
			continue
		}
		score := smetrics.JaroWinkler(name, c, 0.7, 4)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if bestScore < suggestionThreshold {
		return ""
	}
	return best
}

// Unimplement is recorded (not returned as an error) when the builder
// recognizes an AST shape it does not yet lower (spec §4.8): downstream
// code generation replaces the corresponding IR node with `unreachable`.
type Unimplement struct {
	Span   source.Span
	Detail string
}

func (u Unimplement) String() string {
	return fmt.Sprintf("%s: unimplemented: %s", u.Span, u.Detail)
}

// Bag accumulates warnings for one compile() call. Warnings never abort
// compilation; they're flushed by the caller (cmd/tscc) once compilation
// finishes.
type Bag struct {
	Warnings     []string
	Unimplements []Unimplement
}

// Flush logs every accumulated warning through log at warn level, one
// entry per warning, tagged with phase (the pipeline stage that produced
// this bag, e.g. "build" or "codegen"). Unimplement markers additionally
// carry a "span" field so a logrus JSON formatter preserves the source
// location structurally instead of only in the message text.
func (b *Bag) Flush(log *logrus.Logger, phase string) {
	unimplementAt := make(map[string]source.Span, len(b.Unimplements))
	for _, u := range b.Unimplements {
		unimplementAt[u.String()] = u.Span
	}
	for _, w := range b.Warnings {
		entry := log.WithField("phase", phase)
		if span, ok := unimplementAt[w]; ok {
			entry = entry.WithField("span", span.String())
		}
		entry.Warn(w)
	}
}

// Warn appends a formatted warning.
func (b *Bag) Warn(format string, args ...any) {
	b.Warnings = append(b.Warnings, fmt.Sprintf(format, args...))
}

// WarnUnimplemented records an Unimplement marker and its warning text.
func (b *Bag) WarnUnimplemented(span source.Span, detail string) {
	u := Unimplement{Span: span, Detail: detail}
	b.Unimplements = append(b.Unimplements, u)
	b.Warn("%s", u.String())
}

// Empty reports whether no warnings were recorded.
func (b *Bag) Empty() bool {
	return len(b.Warnings) == 0
}
