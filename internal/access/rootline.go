// Package access models the access rootline: the chain of frontend user
// groups a visitor needs at each level above a page in order to see it.
//
// The textual form is a list of elements joined by "/". Each element is
// "<pageId>:<groups>" for a page, "c:<groups>" for the page content or
// "r:<groups>" for a record, with groups as a comma-separated list, e.g.
//
//	12:1,2/c:0
package access

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/page-indexer/pkg/errors"
)

const (
	elementSeparator = "/"
	typeSeparator    = ":"
	groupSeparator   = ","
)

// ElementType distinguishes what a rootline element restricts.
type ElementType int

const (
	ElementPage ElementType = iota
	ElementContent
	ElementRecord
)

// Element is one level of the rootline.
type Element struct {
	Type   ElementType
	PageID int
	Groups []int
}

// String renders the element in rootline notation.
func (e Element) String() string {
	var prefix string
	switch e.Type {
	case ElementContent:
		prefix = "c"
	case ElementRecord:
		prefix = "r"
	default:
		prefix = strconv.Itoa(e.PageID)
	}
	return prefix + typeSeparator + joinGroups(e.Groups)
}

// Rootline is an ordered list of elements. The zero value is an empty
// rootline, meaning no access restriction.
type Rootline struct {
	elements []Element
}

// NewRootline builds a rootline from the given elements.
func NewRootline(elements ...Element) Rootline {
	out := make([]Element, len(elements))
	copy(out, elements)
	return Rootline{elements: out}
}

// Parse reads the textual rootline form. Surrounding whitespace is ignored
// and an empty string yields an empty rootline.
func Parse(s string) (Rootline, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Rootline{}, nil
	}
	parts := strings.Split(s, elementSeparator)
	elements := make([]Element, 0, len(parts))
	for _, part := range parts {
		el, err := parseElement(part)
		if err != nil {
			return Rootline{}, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "access rootline %q: %v", s, err)
		}
		elements = append(elements, el)
	}
	return Rootline{elements: elements}, nil
}

func parseElement(s string) (Element, error) {
	prefix, groups, ok := strings.Cut(s, typeSeparator)
	if !ok {
		return Element{}, fmt.Errorf("element %q has no type separator", s)
	}
	var el Element
	switch prefix {
	case "c":
		el.Type = ElementContent
	case "r":
		el.Type = ElementRecord
	default:
		id, err := strconv.Atoi(prefix)
		if err != nil || id < 0 {
			return Element{}, fmt.Errorf("element %q has invalid page id", s)
		}
		el.Type = ElementPage
		el.PageID = id
	}
	if groups == "" {
		return el, nil
	}
	for _, g := range strings.Split(groups, groupSeparator) {
		id, err := strconv.Atoi(strings.TrimSpace(g))
		if err != nil {
			return Element{}, fmt.Errorf("element %q has invalid group %q", s, g)
		}
		el.Groups = append(el.Groups, id)
	}
	return el, nil
}

// Elements returns a copy of the rootline elements.
func (r Rootline) Elements() []Element {
	out := make([]Element, len(r.elements))
	copy(out, r.elements)
	return out
}

// Groups returns every group id of every element, in rootline order.
// Duplicates are kept; see CleanGroupArray.
func (r Rootline) Groups() []int {
	var groups []int
	for _, el := range r.elements {
		groups = append(groups, el.Groups...)
	}
	return groups
}

// String renders the canonical textual form.
func (r Rootline) String() string {
	parts := make([]string, len(r.elements))
	for i, el := range r.elements {
		parts[i] = el.String()
	}
	return strings.Join(parts, elementSeparator)
}

// CleanGroupArray drops the public placeholder group 0 and duplicate ids,
// keeping the first occurrence of each. The result is not sorted.
func CleanGroupArray(groups []int) []int {
	seen := make(map[int]struct{}, len(groups))
	cleaned := make([]int, 0, len(groups))
	for _, g := range groups {
		if g == 0 {
			continue
		}
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		cleaned = append(cleaned, g)
	}
	return cleaned
}

func joinGroups(groups []int) string {
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = strconv.Itoa(g)
	}
	return strings.Join(parts, groupSeparator)
}
