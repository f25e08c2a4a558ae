// internal/markup/extract.go
package markup

import (
	"errors"
	"fmt"
	"strings"
)

const (
	openMarker  = "{{"
	closeMarker = "}}"
)

// ErrUnbalanced matches every StructuralError.
var ErrUnbalanced = errors.New("markup: unbalanced tag brackets")

// StructuralError reports opening and closing markers that do not pair up.
// Offset is the byte position of a stray closing marker, or -1 when the
// text ended with tags still open.
type StructuralError struct {
	Depth  int
	Offset int
}

func (e *StructuralError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("markup: closing %q at offset %d has no opening tag", closeMarker, e.Offset)
	}
	return fmt.Sprintf("markup: %d tag(s) left open at end of input", e.Depth)
}

func (e *StructuralError) Is(target error) bool {
	return target == ErrUnbalanced
}

type marker struct {
	pos     int
	opening bool
}

// Extract returns the bodies of the top-level tags in text, in order.
// Tags nested inside a body are left in it verbatim. If the markers do not
// balance, no bodies are returned.
func Extract(text string) ([]string, error) {
	var bodies []string
	depth, start := 0, 0
	for _, m := range markers(text) {
		if m.opening {
			if depth == 0 {
				start = m.pos + len(openMarker)
			}
			depth++
			continue
		}
		if depth == 0 {
			return nil, &StructuralError{Depth: 0, Offset: m.pos}
		}
		depth--
		if depth == 0 {
			bodies = append(bodies, text[start:m.pos])
		}
	}
	if depth != 0 {
		return nil, &StructuralError{Depth: depth, Offset: -1}
	}
	return bodies, nil
}

// markers merges the positions of both marker kinds into one ordered stream.
func markers(text string) []marker {
	opens := indices(text, openMarker)
	closes := indices(text, closeMarker)
	out := make([]marker, 0, len(opens)+len(closes))
	i, j := 0, 0
	for i < len(opens) || j < len(closes) {
		if j == len(closes) || (i < len(opens) && opens[i] < closes[j]) {
			out = append(out, marker{pos: opens[i], opening: true})
			i++
		} else {
			out = append(out, marker{pos: closes[j]})
			j++
		}
	}
	return out
}

// indices returns the non-overlapping positions of sep in s, left to right.
func indices(s, sep string) []int {
	var out []int
	offset := 0
	for {
		i := strings.Index(s[offset:], sep)
		if i < 0 {
			return out
		}
		out = append(out, offset+i)
		offset += i + len(sep)
	}
}
