// Package snarfxml provides the manifest format handler for the
// element-bodied XML shape used by snarf-site documents:
//
//	<snarf_site name="CS Fundamentals">
//	  <exclude>*.gdoc</exclude>
//	  <category name="Homework">
//	    <package>
//	      <name>HW1</name>
//	      <description>First homework</description>
//	      <entry url="https://x/hw1.zip"/>
//	    </package>
//	  </category>
//	</snarf_site>
//
// Unlike the attribute-XML shape, package data rides in element bodies;
// only <entry> carries its URL as an attribute. Categories group packages
// one level deep and packages may also appear directly under the root.
package snarfxml

import (
	"bytes"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	snarferrors "github.com/coursekit/snarf/core/errors"
	"github.com/coursekit/snarf/core/manifest"
)

// FormatName identifies this handler in the registry.
const FormatName = "snarfxml"

var (
	selExcludes    = xpath.MustCompile("exclude")
	selCategories  = xpath.MustCompile("category")
	selPackages    = xpath.MustCompile("package")
	selName        = xpath.MustCompile("name")
	selDescription = xpath.MustCompile("description")
	selEntries     = xpath.MustCompile("entry")
	selDigest      = xpath.MustCompile("blake3")
)

// Handler implements manifest.FormatHandler for the snarf-site shape.
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

// Detect implements manifest.FormatHandler.Detect.
func (h *Handler) Detect(data []byte) bool {
	return manifest.SniffLead(data) == '<' && bytes.Contains(data, []byte("<snarf_site"))
}

// Parse implements manifest.FormatHandler.Parse.
func (h *Handler) Parse(data []byte) (*manifest.Root, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &snarferrors.FormatError{Format: FormatName, Message: "malformed XML", Err: err}
	}

	rootEl := xmlquery.FindOne(doc, "/snarf_site")
	if rootEl == nil {
		return nil, &snarferrors.FormatError{
			Format:  FormatName,
			Field:   "snarf_site",
			Message: "root element missing",
		}
	}

	root := &manifest.Root{
		Label:           rootEl.SelectAttr("name"),
		ExcludePatterns: excludePatterns(rootEl),
	}

	for _, catEl := range xmlquery.QuerySelectorAll(rootEl, selCategories) {
		group, err := parseCategory(catEl)
		if err != nil {
			return nil, err
		}
		root.Groups = append(root.Groups, group)
	}

	for _, pkgEl := range xmlquery.QuerySelectorAll(rootEl, selPackages) {
		entry, err := parsePackage(pkgEl)
		if err != nil {
			return nil, err
		}
		root.Entries = append(root.Entries, entry)
	}

	return root, nil
}

func parseCategory(el *xmlquery.Node) (*manifest.Group, error) {
	name := el.SelectAttr("name")
	if name == "" {
		return nil, &snarferrors.FormatError{
			Format:  FormatName,
			Field:   "category name",
			Message: "category has no name attribute",
		}
	}

	// Empty categories are preserved in the tree.
	group := &manifest.Group{
		Name:            name,
		ExcludePatterns: excludePatterns(el),
	}
	for _, pkgEl := range xmlquery.QuerySelectorAll(el, selPackages) {
		entry, err := parsePackage(pkgEl)
		if err != nil {
			return nil, err
		}
		group.Entries = append(group.Entries, entry)
	}
	return group, nil
}

func parsePackage(el *xmlquery.Node) (*manifest.Entry, error) {
	name := childText(el, selName)
	if name == "" {
		return nil, &snarferrors.FormatError{
			Format:  FormatName,
			Field:   "package name",
			Message: "package has no name element",
		}
	}

	entry := &manifest.Entry{
		Label:           name,
		Description:     childText(el, selDescription),
		ExcludePatterns: excludePatterns(el),
		Digest:          childText(el, selDigest),
	}

	for _, entEl := range xmlquery.QuerySelectorAll(el, selEntries) {
		uri := entEl.SelectAttr("url")
		if uri == "" {
			return nil, &snarferrors.FormatError{
				Format:  FormatName,
				Field:   "entry url",
				Message: "package " + name + " has an entry without a url",
			}
		}
		entry.Endpoints = append(entry.Endpoints, manifest.Endpoint{URI: uri})
	}
	if len(entry.Endpoints) == 0 {
		return nil, &snarferrors.FormatError{
			Format:  FormatName,
			Field:   "entry",
			Message: "package " + name + " has no entry element",
		}
	}
	return entry, nil
}

func childText(el *xmlquery.Node, sel *xpath.Expr) string {
	child := xmlquery.QuerySelector(el, sel)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.InnerText())
}

func excludePatterns(el *xmlquery.Node) []string {
	var patterns []string
	for _, exEl := range xmlquery.QuerySelectorAll(el, selExcludes) {
		if p := strings.TrimSpace(exEl.InnerText()); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}
