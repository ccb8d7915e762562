// Package upload holds the attachment acceptance policy. The policy
// is a pure value: given the same filename, size and configuration it
// always returns the same verdict, performs no I/O and mutates
// nothing, so it can be checked for every file of a submission before
// anything is written anywhere.
package upload

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Policy decides whether a proposed attachment may be accepted.
// MaxBytes is the largest accepted declared size; AllowedExt is the
// set of accepted filename extensions, lower-cased and including the
// leading dot (".pdf"). Zero-length files are filtered out by the
// caller before the policy runs.
type Policy struct {
	MaxBytes   int64
	AllowedExt map[string]bool
}

// NewPolicy builds a Policy from a size limit and a comma-separated
// extension list such as ".pdf,.docx,.xlsx".
func NewPolicy(maxBytes int64, extList string) Policy {
	allowed := make(map[string]bool)
	for _, e := range strings.Split(extList, ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		allowed[e] = true
	}
	return Policy{MaxBytes: maxBytes, AllowedExt: allowed}
}

// IsAllowed reports whether a file with the given name and declared
// size passes the policy. When it does not, the returned reason names
// the exact rule that was violated so the caller can report one
// actionable message per file.
func (p Policy) IsAllowed(filename string, size int64) (bool, string) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || !p.AllowedExt[ext] {
		return false, fmt.Sprintf("file type %q is not allowed (accepted: %s)", ext, p.extList())
	}
	if size > p.MaxBytes {
		return false, fmt.Sprintf("file is %d bytes, which exceeds the %d byte limit", size, p.MaxBytes)
	}
	return true, ""
}

// extList renders the allowed extensions in stable order for error
// messages.
func (p Policy) extList() string {
	exts := make([]string, 0, len(p.AllowedExt))
	for e := range p.AllowedExt {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}
