// Package status resolves the readiness of a document-to-speech job from the
// object-storage layout alone. There is no tracked job entity: the job's
// identity is implicit in the output prefix structure, and every query
// recomputes it from a storage listing, which keeps status resolution
// stateless and crash-safe.
package status

import (
	"regexp"
	"strings"
)

// uploadPrefixPattern matches the numeric upload-time prefix that the upload
// path prepends to filenames, e.g. "1699999999-report".
var uploadPrefixPattern = regexp.MustCompile(`^\d+-`)

// supportedExtensions are the input document extensions stripped when deriving
// a base name from a storage key.
var supportedExtensions = []string{".txt", ".md"}

// DeriveBase extracts the job base name from a storage object key: the final
// path component with a trailing .txt/.md extension removed. An upload-time
// numeric prefix, if any, is kept.
func DeriveBase(key string) string {
	if key == "" {
		return ""
	}

	name := key
	if slash := strings.LastIndex(key, "/"); slash >= 0 {
		name = key[slash+1:]
	}

	lowered := strings.ToLower(name)
	for _, extension := range supportedExtensions {
		if strings.HasSuffix(lowered, extension) {
			return name[:len(name)-len(extension)]
		}
	}

	return name
}

// StripUploadPrefix removes a leading run of digits followed by a dash from a
// base name. A name without such a prefix is returned unchanged.
func StripUploadPrefix(base string) string {
	return uploadPrefixPattern.ReplaceAllString(base, "")
}

// Candidates derives the ordered list of base names to probe for a storage
// key: an explicit hint when provided, then the derived base, then its
// upload-prefix-stripped variant. Duplicates and empty entries are dropped
// while preserving first occurrence.
func Candidates(key, hint string) []string {
	derived := DeriveBase(key)

	ordered := []string{strings.TrimSpace(hint), derived, StripUploadPrefix(derived)}

	seen := make(map[string]struct{}, len(ordered))
	candidates := make([]string, 0, len(ordered))

	for _, candidate := range ordered {
		if candidate == "" {
			continue
		}

		if _, duplicate := seen[candidate]; duplicate {
			continue
		}

		seen[candidate] = struct{}{}
		candidates = append(candidates, candidate)
	}

	return candidates
}
