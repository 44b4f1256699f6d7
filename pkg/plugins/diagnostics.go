package plugins

import "fmt"

// DiagnosticKind classifies why a diagnostic was emitted
type DiagnosticKind string

const (
	KindInvalidMetadata       DiagnosticKind = "invalid_metadata"
	KindDuplicateIdentity     DiagnosticKind = "duplicate_identity"
	KindProcessFilterMismatch DiagnosticKind = "process_filter_mismatch"
	KindIncompatible          DiagnosticKind = "incompatible"
	KindHostVersionMismatch   DiagnosticKind = "host_version_mismatch"
	KindMissingHardDependency DiagnosticKind = "missing_hard_dependency"
	KindDependsOnInvalidUnit  DiagnosticKind = "depends_on_invalid_unit"
	KindDependencyCycle       DiagnosticKind = "dependency_cycle"
	KindLoadFailure           DiagnosticKind = "load_failure"
	KindModuleSkipped         DiagnosticKind = "module_skipped"
	KindRunFailure            DiagnosticKind = "run_failure"
)

// Severity of a diagnostic
type Severity string

const (
	SeverityDebug   Severity = "debug"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is one human-readable entry of a run's diagnostic log
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind"`
	Severity Severity       `json:"severity"`
	GUID     string         `json:"guid,omitempty"`
	Message  string         `json:"message"`
}

func (d Diagnostic) String() string {
	return d.Message
}

// IsFault reports whether the diagnostic describes a problem rather than an
// expected skip or a fast-path note
func (d Diagnostic) IsFault() bool {
	switch d.Kind {
	case KindProcessFilterMismatch, KindModuleSkipped:
		return false
	}
	return d.Severity == SeverityWarning || d.Severity == SeverityError
}

// Diagnostics is the append-only diagnostic log owned by a single run.
// Entries are never removed or reordered.
type Diagnostics struct {
	entries []Diagnostic
	sink    func(Diagnostic)
}

// NewDiagnostics creates an empty log. sink, if non-nil, observes every entry as
// it is appended.
func NewDiagnostics(sink func(Diagnostic)) *Diagnostics {
	return &Diagnostics{sink: sink}
}

// Add appends a diagnostic
func (d *Diagnostics) Add(diag Diagnostic) {
	d.entries = append(d.entries, diag)
	if d.sink != nil {
		d.sink(diag)
	}
}

// Addf appends a formatted diagnostic
func (d *Diagnostics) Addf(kind DiagnosticKind, severity Severity, guid, format string, args ...interface{}) {
	d.Add(Diagnostic{
		Kind:     kind,
		Severity: severity,
		GUID:     guid,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Len returns the number of entries
func (d *Diagnostics) Len() int {
	return len(d.entries)
}

// All returns a copy of every entry in append order
func (d *Diagnostics) All() []Diagnostic {
	out := make([]Diagnostic, len(d.entries))
	copy(out, d.entries)
	return out
}

// Strings returns every message in append order
func (d *Diagnostics) Strings() []string {
	out := make([]string, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, e.Message)
	}
	return out
}

// Errors returns the fault-class entries, the equivalent of a dependency error list
func (d *Diagnostics) Errors() []Diagnostic {
	var out []Diagnostic
	for _, e := range d.entries {
		if e.IsFault() {
			out = append(out, e)
		}
	}
	return out
}

// OfKind returns the entries of one kind
func (d *Diagnostics) OfKind(kind DiagnosticKind) []Diagnostic {
	var out []Diagnostic
	for _, e := range d.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
