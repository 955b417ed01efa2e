// Package targetsxml provides the manifest format handler for the
// attribute-decorated XML shape used by submission-target documents:
//
//	<submission-targets name="CS 201">
//	  <exclude pattern="*.gdoc"/>
//	  <assignment-group name="Projects">
//	    <assignment name="HW1" description="First homework">
//	      <transport uri="https://submit.example/handin">
//	        <param name="course" value="cs201"/>
//	        <file-param name="file1" value="${user}.zip"/>
//	      </transport>
//	    </assignment>
//	  </assignment-group>
//	</submission-targets>
//
// All data rides on attributes; element bodies are empty. Groups nest one
// level deep and assignments may also appear directly under the root.
package targetsxml

import (
	"bytes"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	snarferrors "github.com/coursekit/snarf/core/errors"
	"github.com/coursekit/snarf/core/manifest"
)

// FormatName identifies this handler in the registry.
const FormatName = "targetsxml"

// Compiled child selectors. Relative expressions so they can be evaluated
// against any element node.
var (
	selExcludes    = xpath.MustCompile("exclude")
	selGroups      = xpath.MustCompile("assignment-group")
	selAssignments = xpath.MustCompile("assignment")
	selTransports  = xpath.MustCompile("transport")
	selParams      = xpath.MustCompile("param")
	selFileParams  = xpath.MustCompile("file-param")
)

// Handler implements manifest.FormatHandler for the attribute-XML shape.
type Handler struct{}

// Register registers this handler with the manifest format registry.
func Register() {
	manifest.RegisterFormat(&Handler{})
}

func init() {
	Register()
}

// Name implements manifest.FormatHandler.Name.
func (h *Handler) Name() string { return FormatName }

// Detect implements manifest.FormatHandler.Detect. The root element name
// distinguishes this shape from the element-XML snarf-site shape.
func (h *Handler) Detect(data []byte) bool {
	return manifest.SniffLead(data) == '<' && bytes.Contains(data, []byte("<submission-targets"))
}

// Parse implements manifest.FormatHandler.Parse.
func (h *Handler) Parse(data []byte) (*manifest.Root, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &snarferrors.FormatError{Format: FormatName, Message: "malformed XML", Err: err}
	}

	rootEl := xmlquery.FindOne(doc, "/submission-targets")
	if rootEl == nil {
		return nil, &snarferrors.FormatError{
			Format:  FormatName,
			Field:   "submission-targets",
			Message: "root element missing",
		}
	}

	root := &manifest.Root{
		Label:           rootEl.SelectAttr("name"),
		ExcludePatterns: excludePatterns(rootEl),
	}

	for _, groupEl := range xmlquery.QuerySelectorAll(rootEl, selGroups) {
		group, err := parseGroup(groupEl)
		if err != nil {
			return nil, err
		}
		root.Groups = append(root.Groups, group)
	}

	for _, asnEl := range xmlquery.QuerySelectorAll(rootEl, selAssignments) {
		entry, err := parseAssignment(asnEl)
		if err != nil {
			return nil, err
		}
		root.Entries = append(root.Entries, entry)
	}

	return root, nil
}

func parseGroup(el *xmlquery.Node) (*manifest.Group, error) {
	name := el.SelectAttr("name")
	if name == "" {
		return nil, &snarferrors.FormatError{
			Format:  FormatName,
			Field:   "assignment-group name",
			Message: "group has no name attribute",
		}
	}

	// An empty group is preserved so the presented tree shows the
	// manifest is well-formed but sparse.
	group := &manifest.Group{
		Name:            name,
		ExcludePatterns: excludePatterns(el),
	}
	for _, asnEl := range xmlquery.QuerySelectorAll(el, selAssignments) {
		entry, err := parseAssignment(asnEl)
		if err != nil {
			return nil, err
		}
		group.Entries = append(group.Entries, entry)
	}
	return group, nil
}

func parseAssignment(el *xmlquery.Node) (*manifest.Entry, error) {
	name := el.SelectAttr("name")
	if name == "" {
		return nil, &snarferrors.FormatError{
			Format:  FormatName,
			Field:   "assignment name",
			Message: "assignment has no name attribute",
		}
	}

	entry := &manifest.Entry{
		Label:           name,
		Description:     el.SelectAttr("description"),
		ExcludePatterns: excludePatterns(el),
		Digest:          el.SelectAttr("blake3"),
	}

	for _, trEl := range xmlquery.QuerySelectorAll(el, selTransports) {
		ep, err := parseTransport(name, trEl)
		if err != nil {
			return nil, err
		}
		entry.Endpoints = append(entry.Endpoints, *ep)
	}
	if len(entry.Endpoints) == 0 {
		return nil, &snarferrors.FormatError{
			Format:  FormatName,
			Field:   "transport",
			Message: "assignment " + name + " has no transport",
		}
	}
	return entry, nil
}

func parseTransport(assignment string, el *xmlquery.Node) (*manifest.Endpoint, error) {
	uri := el.SelectAttr("uri")
	if uri == "" {
		return nil, &snarferrors.FormatError{
			Format:  FormatName,
			Field:   "transport uri",
			Message: "assignment " + assignment + " has a transport without a uri",
		}
	}

	ep := &manifest.Endpoint{URI: uri}
	for _, pEl := range xmlquery.QuerySelectorAll(el, selParams) {
		p, err := parseParam(assignment, pEl)
		if err != nil {
			return nil, err
		}
		ep.RequestParams = append(ep.RequestParams, *p)
	}
	for _, pEl := range xmlquery.QuerySelectorAll(el, selFileParams) {
		p, err := parseParam(assignment, pEl)
		if err != nil {
			return nil, err
		}
		ep.FileParams = append(ep.FileParams, *p)
	}

	// A transport with neither params nor file-params cannot carry a
	// submission; required-field absence is a FormatError, not a
	// silently empty transport.
	if len(ep.RequestParams) == 0 && len(ep.FileParams) == 0 {
		return nil, &snarferrors.FormatError{
			Format:  FormatName,
			Field:   "param",
			Message: "assignment " + assignment + " has a transport with no params",
		}
	}
	return ep, nil
}

func parseParam(assignment string, el *xmlquery.Node) (*manifest.Param, error) {
	name := el.SelectAttr("name")
	if name == "" {
		return nil, &snarferrors.FormatError{
			Format:  FormatName,
			Field:   "param name",
			Message: "assignment " + assignment + " has a param without a name",
		}
	}
	return &manifest.Param{Name: name, Value: el.SelectAttr("value")}, nil
}

func excludePatterns(el *xmlquery.Node) []string {
	var patterns []string
	for _, exEl := range xmlquery.QuerySelectorAll(el, selExcludes) {
		if p := exEl.SelectAttr("pattern"); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}
