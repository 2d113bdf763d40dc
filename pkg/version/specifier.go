// Package version parses requested data set version specifiers and resolves
// them against the concrete versions of a data set.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the parsed shape of a version specifier.
type Kind int

const (
	// Latest means the request carried no usable constraint ("", "latest")
	// and should be served the data set's latest live version.
	Latest Kind = iota
	// Exact pins all three components.
	Exact
	// WildcardAny ("*") matches the highest published version overall.
	WildcardAny
	// WildcardMinor ("2.*") pins the major component only.
	WildcardMinor
	// WildcardPatch ("2.1.*") pins major and minor.
	WildcardPatch
)

// Specifier is a parsed version request. Only the components fixed by Kind
// are meaningful; the rest are zero.
type Specifier struct {
	Kind  Kind
	Major int
	Minor int
	Patch int
}

// ErrMalformed reports an unparseable specifier. Callers surface it as
// not-found, never as a validation error, so a typo is indistinguishable from
// a genuinely absent version.
type ErrMalformed struct {
	Input string
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("malformed version specifier %q", e.Input)
}

// Parse interprets a requested version string. An empty string or the literal
// "latest" yields a Latest specifier. An optional leading "v" is accepted.
// A specifier with patch omitted ("1.2") pins patch zero.
func Parse(input string) (Specifier, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || strings.EqualFold(trimmed, "latest") {
		return Specifier{Kind: Latest}, nil
	}
	trimmed = strings.TrimPrefix(trimmed, "v")

	if trimmed == "*" {
		return Specifier{Kind: WildcardAny}, nil
	}

	parts := strings.Split(trimmed, ".")
	if len(parts) < 1 || len(parts) > 3 {
		return Specifier{}, &ErrMalformed{Input: input}
	}

	major, err := parseComponent(parts[0])
	if err != nil {
		return Specifier{}, &ErrMalformed{Input: input}
	}

	if len(parts) == 1 {
		// A bare major ("2") pins the first release of that major.
		return Specifier{Kind: Exact, Major: major}, nil
	}

	if parts[1] == "*" {
		if len(parts) != 2 {
			return Specifier{}, &ErrMalformed{Input: input}
		}
		return Specifier{Kind: WildcardMinor, Major: major}, nil
	}

	minor, err := parseComponent(parts[1])
	if err != nil {
		return Specifier{}, &ErrMalformed{Input: input}
	}

	if len(parts) == 2 {
		return Specifier{Kind: Exact, Major: major, Minor: minor}, nil
	}

	if parts[2] == "*" {
		return Specifier{Kind: WildcardPatch, Major: major, Minor: minor}, nil
	}

	patch, err := parseComponent(parts[2])
	if err != nil {
		return Specifier{}, &ErrMalformed{Input: input}
	}

	return Specifier{Kind: Exact, Major: major, Minor: minor, Patch: patch}, nil
}

func parseComponent(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty component")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative component")
	}
	return n, nil
}
