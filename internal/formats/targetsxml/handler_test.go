package targetsxml

import (
	"errors"
	"testing"

	snarferrors "github.com/coursekit/snarf/core/errors"
)

const sampleDoc = `<?xml version="1.0"?>
<submission-targets name="CS 201">
  <exclude pattern="*.gdoc"/>
  <assignment-group name="Projects">
    <exclude pattern="*.class"/>
    <assignment name="HW1" description="First homework">
      <exclude pattern="*.bak"/>
      <transport uri="https://submit.example/handin">
        <param name="course" value="cs201"/>
        <param name="user" value="${user}"/>
        <file-param name="file1" value="${user}.zip"/>
      </transport>
    </assignment>
    <assignment name="HW2">
      <transport uri="https://submit.example/handin2">
        <param name="course" value="cs201"/>
      </transport>
    </assignment>
  </assignment-group>
  <assignment-group name="Labs"/>
  <assignment name="Exam">
    <transport uri="https://submit.example/exam">
      <file-param name="file1" value="exam.zip"/>
    </transport>
  </assignment>
</submission-targets>`

func TestDetect(t *testing.T) {
	h := &Handler{}
	if !h.Detect([]byte(sampleDoc)) {
		t.Error("Detect() = false for a submission-targets document")
	}
	if h.Detect([]byte(`<snarf_site name="x"/>`)) {
		t.Error("Detect() = true for a snarf-site document")
	}
	if h.Detect([]byte(`[{"label":"HW1"}]`)) {
		t.Error("Detect() = true for a JSON body")
	}
}

func TestParse_WellFormed(t *testing.T) {
	h := &Handler{}
	root, err := h.Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if root.Label != "CS 201" {
		t.Errorf("root label = %q, want CS 201", root.Label)
	}
	if len(root.ExcludePatterns) != 1 || root.ExcludePatterns[0] != "*.gdoc" {
		t.Errorf("root excludes = %v", root.ExcludePatterns)
	}

	// Flattened leaf count matches the assignment elements in the source.
	if got := len(root.Flatten()); got != 3 {
		t.Fatalf("flattened leaf count = %d, want 3", got)
	}

	if len(root.Groups) != 2 {
		t.Fatalf("group count = %d, want 2", len(root.Groups))
	}

	projects := root.Groups[0]
	if projects.Name != "Projects" {
		t.Fatalf("group 0 = %q, want Projects", projects.Name)
	}
	if len(projects.ExcludePatterns) != 1 || projects.ExcludePatterns[0] != "*.class" {
		t.Errorf("group excludes = %v", projects.ExcludePatterns)
	}

	hw1 := projects.Entries[0]
	if hw1.Label != "HW1" || hw1.Description != "First homework" {
		t.Errorf("HW1 = %q / %q", hw1.Label, hw1.Description)
	}
	if len(hw1.ExcludePatterns) != 1 || hw1.ExcludePatterns[0] != "*.bak" {
		t.Errorf("HW1 excludes = %v", hw1.ExcludePatterns)
	}

	ep, err := hw1.Primary()
	if err != nil {
		t.Fatalf("Primary() error: %v", err)
	}
	if ep.URI != "https://submit.example/handin" {
		t.Errorf("endpoint URI = %q, want verbatim source uri", ep.URI)
	}
	if len(ep.RequestParams) != 2 {
		t.Fatalf("request params = %d, want 2 in document order", len(ep.RequestParams))
	}
	if ep.RequestParams[0].Name != "course" || ep.RequestParams[0].Value != "cs201" {
		t.Errorf("param 0 = %+v", ep.RequestParams[0])
	}
	if ep.RequestParams[1].Value != "${user}" {
		t.Errorf("placeholder value = %q, want unresolved ${user}", ep.RequestParams[1].Value)
	}
	if len(ep.FileParams) != 1 || ep.FileParams[0].Value != "${user}.zip" {
		t.Errorf("file params = %+v", ep.FileParams)
	}

	// The empty group is preserved, not dropped.
	labs := root.Groups[1]
	if labs.Name != "Labs" {
		t.Errorf("group 1 = %q, want Labs", labs.Name)
	}
	if len(labs.Entries) != 0 {
		t.Errorf("Labs should be empty, got %d entries", len(labs.Entries))
	}

	// Root-level assignments stay at the root.
	if len(root.Entries) != 1 || root.Entries[0].Label != "Exam" {
		t.Errorf("root entries = %+v", root.Entries)
	}
}

func TestParse_TransportWithoutParams(t *testing.T) {
	doc := `<submission-targets name="CS 201">
  <assignment name="HW1">
    <transport uri="https://submit.example/handin"/>
  </assignment>
</submission-targets>`

	h := &Handler{}
	_, err := h.Parse([]byte(doc))
	if !errors.Is(err, snarferrors.ErrFormat) {
		t.Fatalf("Parse() error = %v, want FormatError", err)
	}
	var fe *snarferrors.FormatError
	if !errors.As(err, &fe) || fe.Field != "param" {
		t.Errorf("Parse() error field = %v, want param", err)
	}
}

func TestParse_AssignmentWithoutTransport(t *testing.T) {
	doc := `<submission-targets name="CS 201">
  <assignment name="HW1"/>
</submission-targets>`

	h := &Handler{}
	if _, err := h.Parse([]byte(doc)); !errors.Is(err, snarferrors.ErrFormat) {
		t.Errorf("Parse() error = %v, want FormatError", err)
	}
}

func TestParse_AssignmentWithoutName(t *testing.T) {
	doc := `<submission-targets name="CS 201">
  <assignment description="nameless">
    <transport uri="https://x"><param name="a" value="b"/></transport>
  </assignment>
</submission-targets>`

	h := &Handler{}
	if _, err := h.Parse([]byte(doc)); !errors.Is(err, snarferrors.ErrFormat) {
		t.Errorf("Parse() error = %v, want FormatError", err)
	}
}

func TestParse_TransportWithoutURI(t *testing.T) {
	doc := `<submission-targets name="CS 201">
  <assignment name="HW1">
    <transport><param name="a" value="b"/></transport>
  </assignment>
</submission-targets>`

	h := &Handler{}
	if _, err := h.Parse([]byte(doc)); !errors.Is(err, snarferrors.ErrFormat) {
		t.Errorf("Parse() error = %v, want FormatError", err)
	}
}

func TestParse_WrongRoot(t *testing.T) {
	h := &Handler{}
	if _, err := h.Parse([]byte(`<other/>`)); !errors.Is(err, snarferrors.ErrFormat) {
		t.Errorf("Parse() error = %v, want FormatError", err)
	}
}

func TestParse_MalformedXML(t *testing.T) {
	h := &Handler{}
	if _, err := h.Parse([]byte(`<submission-targets`)); !errors.Is(err, snarferrors.ErrFormat) {
		t.Errorf("Parse() error = %v, want FormatError", err)
	}
}
