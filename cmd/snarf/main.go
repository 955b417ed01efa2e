// Command snarf is the course-support CLI. It scaffolds course projects
// from a remote assignment manifest, manages the workspace JARS library
// cache, and packages and submits assignments to the course submission
// endpoint.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alecthomas/kong"

	snarferrors "github.com/coursekit/snarf/core/errors"
	"github.com/coursekit/snarf/core/manifest"
	"github.com/coursekit/snarf/internal/config"
	"github.com/coursekit/snarf/internal/fetch"
	"github.com/coursekit/snarf/internal/logging"
	"github.com/coursekit/snarf/internal/materialize"
	"github.com/coursekit/snarf/internal/presenter"
	"github.com/coursekit/snarf/internal/scaffold"
	"github.com/coursekit/snarf/internal/submit"
	"github.com/coursekit/snarf/internal/ui"

	// Import manifest format handlers to register all known shapes
	_ "github.com/coursekit/snarf/internal/formats/flatjson"
	_ "github.com/coursekit/snarf/internal/formats/snarfxml"
	_ "github.com/coursekit/snarf/internal/formats/targetsxml"
)

const version = "0.2.0"

// CLI defines the command-line interface for snarf.
var CLI struct {
	// Global flags
	ManifestURL string `name:"manifest-url" short:"m" env:"SNARF_MANIFEST_URL" help:"Course manifest URL"`
	Format      string `help:"Manifest format hint (flatjson, targetsxml, snarfxml); sniffed when empty"`
	Settings    string `help:"Settings store path (defaults to the user config directory)" type:"path"`
	LogLevel    string `name:"log-level" help:"Log level" enum:"debug,info,warn,error" default:"info"`
	LogJSON     bool   `name:"log-json" help:"Emit logs as JSON"`

	Setup   SetupCmd   `cmd:"" help:"Configure the workspace root directory"`
	List    ListCmd    `cmd:"" help:"List assignments from the course manifest"`
	Get     GetCmd     `cmd:"" help:"Download and materialize an assignment into the workspace"`
	Submit  SubmitCmd  `cmd:"" help:"Package a project and submit it to the course endpoint"`
	Jars    JarsCmd    `cmd:"" help:"Populate a project's lib directory from the JARS cache"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// openStore opens the persisted settings store at the configured or
// default location.
func openStore() (*config.Store, error) {
	path := CLI.Settings
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return config.Open(path)
}

// workspaceRoot returns the persisted workspace root, prompting for one
// on first use. There is no implicit default.
func workspaceRoot(store *config.Store, host ui.Host) (string, error) {
	root, ok, err := store.WorkspaceRoot()
	if err != nil {
		return "", err
	}
	if ok {
		return root, nil
	}

	root, err = host.Input("Workspace directory for course projects", func(s string) error {
		if s == "" {
			return fmt.Errorf("a directory is required")
		}
		if !filepath.IsAbs(s) {
			return fmt.Errorf("an absolute path is required")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", &snarferrors.FilesystemError{Op: "create", Path: root, Err: err}
	}
	if err := store.SetWorkspaceRoot(root); err != nil {
		return "", err
	}
	return root, nil
}

// manifestURL returns the configured manifest URL or fails with a usage
// hint.
func manifestURL() (string, error) {
	if CLI.ManifestURL == "" {
		return "", fmt.Errorf("no manifest URL configured (use --manifest-url or SNARF_MANIFEST_URL)")
	}
	return CLI.ManifestURL, nil
}

// signalContext returns a context cancelled by Ctrl-C so a download in
// flight can be cancelled and its partial file cleaned up.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// SetupCmd configures the workspace root directory.
type SetupCmd struct {
	Dir   string `arg:"" optional:"" help:"Workspace directory to use" type:"path"`
	Clear bool   `help:"Clear the stored workspace directory"`
}

func (c *SetupCmd) Run() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	host := ui.NewTerminal()

	if c.Clear {
		if err := store.ClearWorkspaceRoot(); err != nil {
			return err
		}
		host.Notify("Workspace directory cleared.")
		return nil
	}

	if c.Dir != "" {
		if err := os.MkdirAll(c.Dir, 0755); err != nil {
			return &snarferrors.FilesystemError{Op: "create", Path: c.Dir, Err: err}
		}
		if err := store.SetWorkspaceRoot(c.Dir); err != nil {
			return err
		}
		host.Notify(fmt.Sprintf("Workspace directory set to %s", c.Dir))
		return nil
	}

	root, err := workspaceRoot(store, host)
	if err != nil {
		return err
	}
	host.Notify(fmt.Sprintf("Workspace directory is %s", root))
	return nil
}

// ListCmd lists the manifest tree.
type ListCmd struct{}

func (c *ListCmd) Run() error {
	url, err := manifestURL()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	pres := presenter.New(fetch.NewClient(), nil, url, CLI.Format)
	printChildren(ctx, pres, nil, "")
	return nil
}

func printChildren(ctx context.Context, pres *presenter.Presenter, node *presenter.Node, indent string) {
	for _, child := range pres.Children(ctx, node) {
		switch child.Kind {
		case presenter.KindError:
			fmt.Printf("%s! %s: %v\n", indent, child.Label, child.Err)
		case presenter.KindGroup:
			fmt.Printf("%s%s/\n", indent, child.Label)
			printChildren(ctx, pres, child, indent+"  ")
		default:
			if child.Entry.Description != "" {
				fmt.Printf("%s%s - %s\n", indent, child.Label, child.Entry.Description)
			} else {
				fmt.Printf("%s%s\n", indent, child.Label)
			}
		}
	}
}

// GetCmd materializes an assignment into the workspace.
type GetCmd struct {
	Label  string `arg:"" help:"Assignment label as shown by list"`
	NoJars bool   `name:"no-jars" help:"Skip populating the lib directory from the JARS cache"`
	Open   bool   `help:"Open the project folder when done"`
}

func (c *GetCmd) Run() error {
	url, err := manifestURL()
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	host := ui.NewTerminal()
	root, err := workspaceRoot(store, host)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client := fetch.NewClient()
	pres := presenter.New(client, nil, url, CLI.Format)
	tree, err := pres.Root(ctx)
	if err != nil {
		return err
	}

	entry := tree.FindEntry(c.Label)
	if entry == nil {
		return fmt.Errorf("no assignment named %q in the manifest", c.Label)
	}

	var library *scaffold.Library
	if !c.NoJars {
		library = scaffold.ForWorkspace(root)
	}

	pipeline := materialize.New(client, host, library)
	dest, err := pipeline.Materialize(ctx, entry, root)
	if err != nil {
		if snarferrors.Is(err, snarferrors.ErrConflictAborted) {
			host.Notify("Left the existing project untouched.")
			return nil
		}
		return err
	}

	host.Notify(fmt.Sprintf("Materialized %s into %s", entry.Label, dest))
	if c.Open {
		if err := host.OpenBrowser("file://" + dest); err != nil {
			host.WarnUser(fmt.Sprintf("could not open %s: %v", dest, err))
		}
	}
	return nil
}

// SubmitCmd packages and submits a project.
type SubmitCmd struct {
	Label   string   `arg:"" help:"Submission target label as shown by list"`
	Project string   `help:"Project directory (defaults to <workspace>/<sanitized label>)" type:"path"`
	Src     []string `help:"Source subdirectories to package" default:"src"`
}

func (c *SubmitCmd) Run() error {
	url, err := manifestURL()
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	host := ui.NewTerminal()

	ctx, cancel := signalContext()
	defer cancel()

	client := fetch.NewClient()
	pres := presenter.New(client, nil, url, CLI.Format)
	tree, err := pres.Root(ctx)
	if err != nil {
		return err
	}

	entry, excludes := tree.Lookup(c.Label)
	if entry == nil {
		return fmt.Errorf("no submission target named %q in the manifest", c.Label)
	}
	endpoint, err := entry.Primary()
	if err != nil {
		return err
	}

	project := c.Project
	if project == "" {
		root, err := workspaceRoot(store, host)
		if err != nil {
			return err
		}
		project = filepath.Join(root, materialize.SanitizeLabel(entry.Label))
	}
	if _, err := os.Stat(project); err != nil {
		return &snarferrors.FilesystemError{Op: "stat", Path: project, Err: err}
	}

	packager := submit.New(host, submit.NewResolver(host, store))
	packager.SourceDirs = c.Src

	result, err := packager.Submit(ctx, endpoint, project, excludes)
	if err != nil {
		return err
	}

	host.Notify(fmt.Sprintf("Submitted %d file(s) for %s", result.Files, entry.Label))
	if result.ResultsURL != "" {
		host.Notify(fmt.Sprintf("Results: %s", result.ResultsURL))
		if err := host.OpenBrowser(result.ResultsURL); err != nil {
			host.WarnUser(fmt.Sprintf("could not open results page: %v", err))
		}
	}
	return nil
}

// JarsCmd populates an existing project's lib directory.
type JarsCmd struct {
	Project string `arg:"" help:"Project directory" type:"existingdir"`
}

func (c *JarsCmd) Run() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	host := ui.NewTerminal()
	root, err := workspaceRoot(store, host)
	if err != nil {
		return err
	}

	if err := scaffold.ForWorkspace(root).Populate(c.Project); err != nil {
		return err
	}
	host.Notify(fmt.Sprintf("Populated %s from the JARS cache", filepath.Join(c.Project, scaffold.LibDirName)))
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("snarf %s\n", version)
	fmt.Printf("formats:")
	for _, h := range manifest.Formats() {
		fmt.Printf(" %s", h.Name())
	}
	fmt.Println()
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("snarf"),
		kong.Description("snarf - course assignment fetch and submission tool"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	logging.InitLogger(logging.ParseLevel(CLI.LogLevel), logFormat())
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}

func logFormat() logging.Format {
	if CLI.LogJSON {
		return logging.FormatJSON
	}
	return logging.FormatText
}
