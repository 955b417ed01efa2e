package manifest

import (
	"bytes"
	"sort"

	snarferrors "github.com/coursekit/snarf/core/errors"
)

// FormatHandler parses one historical manifest shape into the canonical
// tree. Handlers register themselves from their package init, mirroring
// how embedded format plugins register.
type FormatHandler interface {
	// Name returns the handler's format name (e.g., "flatjson").
	Name() string

	// Detect reports whether the raw body looks like this format. It is
	// a cheap structural sniff, not a full parse.
	Detect(data []byte) bool

	// Parse converts the raw body into a canonical Root. Missing
	// required fields are a FormatError, never a silently empty tree.
	Parse(data []byte) (*Root, error)
}

// formatRegistry holds all registered format handlers.
var formatRegistry = make(map[string]FormatHandler)

// RegisterFormat registers a format handler by its name.
func RegisterFormat(h FormatHandler) {
	if h != nil && h.Name() != "" {
		formatRegistry[h.Name()] = h
	}
}

// Format returns a registered handler by name, or nil if not found.
func Format(name string) FormatHandler {
	return formatRegistry[name]
}

// Formats returns all registered handlers sorted by name.
func Formats() []FormatHandler {
	names := make([]string, 0, len(formatRegistry))
	for name := range formatRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]FormatHandler, 0, len(names))
	for _, name := range names {
		out = append(out, formatRegistry[name])
	}
	return out
}

// ClearFormats clears all registered handlers (for testing).
func ClearFormats() {
	formatRegistry = make(map[string]FormatHandler)
}

// Parse normalizes a raw manifest body into a canonical Root. When
// formatHint names a registered handler that handler is used directly;
// otherwise the body is sniffed once and exactly one handler parses it.
// Parse never falls through handlers on parse failure: a body that sniffs
// as a format but fails to parse is a FormatError for that format.
func Parse(data []byte, formatHint string) (*Root, error) {
	if formatHint != "" {
		h := Format(formatHint)
		if h == nil {
			return nil, &snarferrors.FormatError{Format: formatHint, Message: "unknown format"}
		}
		return h.Parse(data)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &snarferrors.FormatError{Message: "empty manifest body"}
	}

	for _, h := range Formats() {
		if h.Detect(data) {
			return h.Parse(data)
		}
	}
	return nil, &snarferrors.FormatError{Message: "manifest body matches no known shape"}
}

// SniffLead returns the first non-whitespace byte of data after skipping
// a UTF-8 BOM, or 0 when the body is all whitespace. Handlers use it for
// the JSON-vs-XML split before inspecting tags or keys.
func SniffLead(data []byte) byte {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
