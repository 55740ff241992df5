// Package validator checks build requests before they reach the document
// builder and reports every failing field at once.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/access"
	"github.com/Adithya-Monish-Kumar-K/page-indexer/internal/ingestion"
)

const maxURLLength = 2048

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, e.Fields[name])
	}
	return strings.Join(parts, "; ")
}

// ValidateBuildRequest returns a *ValidationError when req cannot be built.
func ValidateBuildRequest(req *ingestion.BuildRequest) error {
	errs := make(map[string]string)

	if req.Page.ID <= 0 {
		errs["page.uid"] = "page uid must be positive"
	}
	if req.Page.Type < 0 {
		errs["page.type"] = "page type must not be negative"
	}
	if req.Page.LanguageUID < 0 {
		errs["page.sys_language_uid"] = "language uid must not be negative"
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		errs["url"] = "url is required"
	} else if len(url) > maxURLLength {
		errs["url"] = fmt.Sprintf("url must be at most %d characters", maxURLLength)
	}
	if _, err := access.Parse(req.AccessRootline); err != nil {
		errs["access_rootline"] = err.Error()
	}
	if strings.ContainsAny(req.MountPoint, "/ ") {
		errs["mount_point"] = "mount point must not contain slashes or spaces"
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
