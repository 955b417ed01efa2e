// Package submit implements the package-and-submit pipeline: it collects
// a project's source directories into a zip archive, resolves endpoint
// parameters (including prompted placeholder tokens), posts the multipart
// body to the submission endpoint, and scrapes the acknowledgement page
// for a results URL.
package submit

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	snarferrors "github.com/coursekit/snarf/core/errors"
	"github.com/coursekit/snarf/core/manifest"
	"github.com/coursekit/snarf/internal/archive"
	"github.com/coursekit/snarf/internal/flight"
	"github.com/coursekit/snarf/internal/logging"
	"github.com/coursekit/snarf/internal/ui"
)

// DefaultSourceDirs are the project subdirectories packaged when the
// caller configures none.
var DefaultSourceDirs = []string{"src"}

// Packager drives the submission pipeline.
type Packager struct {
	Host     ui.Host
	Resolver *Resolver

	// SourceDirs are the project subdirectories to package, relative to
	// the project root. Defaults to DefaultSourceDirs.
	SourceDirs []string

	// HTTPClient posts the multipart body. Defaults to a fresh client
	// with the transport default timeout, matching the fetch side.
	HTTPClient *http.Client
}

// New creates a Packager with the given collaborators.
func New(host ui.Host, resolver *Resolver) *Packager {
	return &Packager{Host: host, Resolver: resolver}
}

// Result is a submission acknowledgement.
type Result struct {
	// ResultsURL is the first anchor href scraped from the response
	// body, or empty when the page had none. An empty URL is a soft
	// condition, not a failure: the submission may have succeeded
	// server-side even if the acknowledgement page's shape changed.
	ResultsURL string

	// Files is the number of files packaged.
	Files int
}

// Submit packages projectPath and posts it to endpoint. excludes is the
// effective pattern set for the entry (root, group, and entry patterns);
// the fixed built-ins are always added here.
func (p *Packager) Submit(ctx context.Context, endpoint *manifest.Endpoint, projectPath string, excludes []string) (*Result, error) {
	release, err := flight.Acquire(projectPath)
	if err != nil {
		return nil, err
	}
	defer release()

	effective := manifest.EffectiveExcludes(excludes)

	sourceDirs := p.SourceDirs
	if len(sourceDirs) == 0 {
		sourceDirs = DefaultSourceDirs
	}

	var zipBuf bytes.Buffer
	files, err := archive.WriteZip(&zipBuf, projectPath, sourceDirs, effective)
	if err != nil {
		logging.PipelineError("submit", "package", err, "project", projectPath)
		return nil, err
	}

	body, contentType, err := p.buildMultipart(endpoint, zipBuf.Bytes())
	if err != nil {
		return nil, err
	}

	resultsURL, err := p.post(ctx, endpoint.URI, contentType, body)
	if err != nil {
		return nil, err
	}

	logging.Submission(endpoint.URI, int64(zipBuf.Len()), resultsURL)
	return &Result{ResultsURL: resultsURL, Files: files}, nil
}

// buildMultipart assembles the multipart form: regular fields first, then
// one file field per file-param, each carrying the same zip content under
// its resolved filename. Field order follows the manifest's param order.
func (p *Packager) buildMultipart(endpoint *manifest.Endpoint, zipContent []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, param := range endpoint.RequestParams {
		value, err := p.Resolver.Resolve(param.Value)
		if err != nil {
			return nil, "", err
		}
		if err := mw.WriteField(param.Name, value); err != nil {
			return nil, "", &snarferrors.PackagingError{Err: err}
		}
	}

	for _, param := range endpoint.FileParams {
		filename, err := p.Resolver.Resolve(param.Value)
		if err != nil {
			return nil, "", err
		}
		if filename == "" {
			filename = "submission.zip"
		}
		fw, err := mw.CreateFormFile(param.Name, filename)
		if err != nil {
			return nil, "", &snarferrors.PackagingError{Err: err}
		}
		if _, err := fw.Write(zipContent); err != nil {
			return nil, "", &snarferrors.PackagingError{Err: err}
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", &snarferrors.PackagingError{Err: err}
	}
	return &buf, mw.FormDataContentType(), nil
}

func (p *Packager) post(ctx context.Context, url, contentType string, body *bytes.Buffer) (string, error) {
	client := p.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", &snarferrors.NetworkError{URL: url, Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", &snarferrors.UserCancelledError{Step: "submission"}
		}
		return "", &snarferrors.NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &snarferrors.NetworkError{URL: url, Status: resp.StatusCode}
	}
	logging.Debug("submission_posted", "url", url, "duration_ms", time.Since(start).Milliseconds())

	// Scraping the acknowledgement page is best-effort. The submission
	// already succeeded by this point, so a read failure or a page with
	// no anchor is downgraded to a warning.
	page, err := io.ReadAll(resp.Body)
	if err != nil {
		p.Host.WarnUser("submission accepted, but the acknowledgement page could not be read")
		return "", nil
	}
	resultsURL := FirstAnchorHref(page)
	if resultsURL == "" {
		p.Host.WarnUser("submission accepted, but no results link was found on the acknowledgement page")
	}
	return resultsURL, nil
}

// FirstAnchorHref returns the href of the first <a> element in the HTML
// page, or empty when there is none or the page does not parse.
func FirstAnchorHref(page []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(page))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "a" {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key == "href" && strings.TrimSpace(attr.Val) != "" {
					return attr.Val
				}
			}
		}
	}
}
