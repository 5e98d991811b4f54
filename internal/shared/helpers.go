// Package shared provides common utility functions used across
// multiple packages in the envlock codebase.
package shared

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// JoinAttrPath renders an attribute path as a dotted string.
func JoinAttrPath(path []string) string {
	return strings.Join(path, ".")
}

// PathFromURL maps a file: URL or bare filesystem path to a local
// path, dropping any query suffix.
func PathFromURL(url string) string {
	trimmed := strings.TrimSpace(url)
	trimmed = strings.TrimPrefix(trimmed, "file://")
	trimmed = strings.TrimPrefix(trimmed, "file:")
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return trimmed
}

// HashBytes fingerprints content as a 16-hex-digit digest.
func HashBytes(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// UniqueStrings drops duplicates while preserving first-seen order.
func UniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
