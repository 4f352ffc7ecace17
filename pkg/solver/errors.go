package solver

import "fmt"

// EncodingError is returned when a domain or constraint cannot be lowered
// into a SAT encoding.
type EncodingError struct {
	Reason string
}

func (e *EncodingError) Error() string { return e.Reason }

func errEmptyDomain(name string) *EncodingError {
	return &EncodingError{Reason: fmt.Sprintf("domain %q has no values", name)}
}

func errUnknownDomainType(name, kind string) *EncodingError {
	return &EncodingError{Reason: fmt.Sprintf("domain %q has unknown type %q", name, kind)}
}

func errUnsupportedExpr(shape string) *EncodingError {
	return &EncodingError{Reason: fmt.Sprintf("input constraint uses an unsupported expression shape: %s", shape)}
}

func errUnknownConstraintVar(name string) *EncodingError {
	return &EncodingError{Reason: fmt.Sprintf("constraint references unknown domain %q", name)}
}

func errNoLiteralForValue(domain string) *EncodingError {
	return &EncodingError{Reason: fmt.Sprintf("no SAT literal for that value in domain %q", domain)}
}

// SearchError is returned when the SAT search itself cannot proceed, as
// distinct from returning an ordinary UNSAT result.
type SearchError struct {
	Reason string
}

func (e *SearchError) Error() string { return e.Reason }

func errUnknownCoverageDomain(name string) *SearchError {
	return &SearchError{Reason: fmt.Sprintf("unknown domain %q in coverage target", name)}
}
