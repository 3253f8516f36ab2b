// Package docpath normalizes and splits slash-delimited document paths.
package docpath

import (
	"fmt"
	"strings"

	"github.com/pantrywisely/pantry/pkg/types"
)

// forbidden lists characters the hosted realtime database rejects in keys.
const forbidden = ".$#[]"

// Clean trims surrounding slashes, collapses repeated slashes and validates
// every segment. It returns types.ErrInvalidPath for an empty path or a
// segment containing a forbidden character or a control character.
func Clean(path string) (string, error) {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s == "" {
			continue
		}
		if strings.ContainsAny(s, forbidden) {
			return "", fmt.Errorf("%w: segment %q contains one of %q", types.ErrInvalidPath, s, forbidden)
		}
		for _, r := range s {
			if r < 0x20 || r == 0x7f {
				return "", fmt.Errorf("%w: segment %q contains a control character", types.ErrInvalidPath, s)
			}
		}
		segs = append(segs, s)
	}
	if len(segs) == 0 {
		return "", fmt.Errorf("%w: empty path", types.ErrInvalidPath)
	}
	return strings.Join(segs, "/"), nil
}

// Join joins elements with slashes and cleans the result.
func Join(elems ...string) (string, error) {
	return Clean(strings.Join(elems, "/"))
}

// Base returns the last segment of a clean path.
func Base(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Parent returns everything before the last segment of a clean path, or ""
// for a single-segment path.
func Parent(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return ""
}
