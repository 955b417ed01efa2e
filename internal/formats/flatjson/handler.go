// Package flatjson provides the manifest format handler for the flat JSON
// shape: a top-level array of objects, one per assignment, with no grouping.
//
//	[{"label": "HW1", "description": "First homework", "url": "https://x/hw1.zip"}]
//
// Optional per-object fields: "excludes" (array of glob patterns) and
// "blake3" (hex digest of the archive).
package flatjson

import (
	"encoding/json"
	"fmt"

	snarferrors "github.com/coursekit/snarf/core/errors"
	"github.com/coursekit/snarf/core/manifest"
)

// FormatName identifies this handler in the registry.
const FormatName = "flatjson"

// Handler implements manifest.FormatHandler for the flat JSON shape.
type Handler struct{}

// Register registers this handler with the manifest format registry.
func Register() {
	manifest.RegisterFormat(&Handler{})
}

// init automatically registers this handler when the package is imported.
func init() {
	Register()
}

// Name implements manifest.FormatHandler.Name.
func (h *Handler) Name() string { return FormatName }

// Detect implements manifest.FormatHandler.Detect. The flat shape is the
// only JSON shape, so a leading '[' is decisive.
func (h *Handler) Detect(data []byte) bool {
	return manifest.SniffLead(data) == '['
}

// jsonEntry is the wire form of one array element.
type jsonEntry struct {
	Label       string   `json:"label"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Excludes    []string `json:"excludes"`
	BLAKE3      string   `json:"blake3"`
}

// Parse implements manifest.FormatHandler.Parse.
func (h *Handler) Parse(data []byte) (*manifest.Root, error) {
	var wire []jsonEntry
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &snarferrors.FormatError{
			Format:  FormatName,
			Message: "body is not a JSON array",
			Err:     err,
		}
	}

	root := &manifest.Root{}
	for i, w := range wire {
		if w.Label == "" {
			return nil, &snarferrors.FormatError{
				Format:  FormatName,
				Field:   "label",
				Message: indexMessage(i, "entry has no label"),
			}
		}
		if w.URL == "" {
			return nil, &snarferrors.FormatError{
				Format:  FormatName,
				Field:   "url",
				Message: indexMessage(i, "entry has no url"),
			}
		}
		root.Entries = append(root.Entries, &manifest.Entry{
			Label:           w.Label,
			Description:     w.Description,
			Endpoints:       []manifest.Endpoint{{URI: w.URL}},
			ExcludePatterns: w.Excludes,
			Digest:          w.BLAKE3,
		})
	}
	return root, nil
}

func indexMessage(i int, msg string) string {
	return fmt.Sprintf("entry %d: %s", i, msg)
}
