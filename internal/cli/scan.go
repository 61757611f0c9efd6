package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/upstream"
	"github.com/git-pkgs/upstream/internal/core"
)

type scanOptions struct {
	engineFlags
	purl         string
	handler      string
	remote       string
	batch        string
	jobs         int
	json         bool
	versionRules []string
	urlRules     []string
}

func newScanCmd() *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan CATEGORY/NAME-VERSION [URL...]",
		Short: "Find newer releases of a package",
		Long: `Scan a package for newer upstream releases.

The package is named as category/name-version. Releases are looked up from
the source URLs given after it, from a package URL (--purl), or from a remote
identity scanned by one handler (--handler with --remote).

With --batch, each line of the file holds a package followed by its source
URLs, and packages are scanned in parallel.`,
		Example: `  upstream scan dev-python/requests-2.31.0 mirror://pypi/r/requests/requests-2.31.0.tar.gz
  upstream scan dev-python/requests-2.31.0 --purl pkg:pypi/requests
  upstream scan dev-libs/foo-1.0 --handler github --remote foo/foo
  upstream scan --batch packages.txt --jobs 4`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.batch != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.batch != "" {
				return runBatch(cmd, opts)
			}
			return runScan(cmd, opts, args)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&opts.purl, "purl", "", "scan the identity named by a package URL")
	cmd.Flags().StringVar(&opts.handler, "handler", "", "scan --remote with this handler only")
	cmd.Flags().StringVar(&opts.remote, "remote", "", "remote identity for --handler (defaults to the package name)")
	cmd.Flags().StringVar(&opts.batch, "batch", "", "read packages and URLs from a file, - for stdin")
	cmd.Flags().IntVar(&opts.jobs, "jobs", 0, "packages scanned at once in batch mode (default 8)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print candidates as JSON")
	cmd.Flags().StringSliceVar(&opts.versionRules, "version-rules", nil, "version mangling rules, e.g. v,gentoo")
	cmd.Flags().StringSliceVar(&opts.urlRules, "url-rules", nil, "download URL mangling rules")
	cmd.MarkFlagsMutuallyExclusive("purl", "handler")
	return cmd
}

func (o scanOptions) options() upstream.Options {
	return upstream.Options{Rules: upstream.Rules{Version: o.versionRules, URL: o.urlRules}}
}

func runScan(cmd *cobra.Command, opts scanOptions, args []string) error {
	ctx := cmd.Context()
	logger := core.Logger(ctx)

	pkg, err := upstream.ParsePackage(args[0])
	if err != nil {
		return err
	}

	eng, err := opts.engine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	prog := newProgress(logger)
	var found []upstream.Candidate
	switch {
	case opts.purl != "":
		found, err = eng.ScanPURL(ctx, pkg, opts.purl, opts.options())
	case opts.handler != "":
		remote := opts.remote
		if remote == "" {
			remote = pkg.Name
		}
		found, err = eng.ScanIdentity(ctx, pkg, opts.handler, remote, opts.options())
	default:
		if len(args) < 2 {
			return errors.New("no source URLs: pass URLs, --purl or --handler")
		}
		found, err = eng.Scan(ctx, pkg, opts.options(), args[1:]...)
	}
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("scanned %s, %d candidates", pkg.CPV(), len(found)))

	return writeCandidates(cmd.OutOrStdout(), opts.json, []upstream.Result{{Package: pkg, Candidates: found}}, false)
}

func runBatch(cmd *cobra.Command, opts scanOptions) error {
	ctx := cmd.Context()

	var in io.Reader = cmd.InOrStdin()
	if opts.batch != "-" {
		f, err := os.Open(opts.batch)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	jobs, err := readJobs(in, opts.options())
	if err != nil {
		return err
	}

	eng, err := opts.engine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	prog := newProgress(core.Logger(ctx))
	results, err := eng.ScanAll(ctx, jobs, opts.jobs)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("scanned %d packages", len(jobs)))

	for _, r := range results {
		if r.Err != nil {
			core.Logger(ctx).Warn("scan failed", "package", r.Package.CPV(), "err", r.Err)
		}
	}
	return writeCandidates(cmd.OutOrStdout(), opts.json, results, true)
}

// readJobs parses one package per line: its identity followed by source
// URLs. Blank lines and lines starting with # are skipped.
func readJobs(r io.Reader, opts upstream.Options) ([]upstream.Job, error) {
	var jobs []upstream.Job
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		pkg, err := upstream.ParsePackage(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		jobs = append(jobs, upstream.Job{Package: pkg, Options: opts, URLs: fields[1:]})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

type jsonCandidate struct {
	Package    string `json:"package,omitempty"`
	URL        string `json:"url"`
	Version    string `json:"version"`
	Handler    string `json:"handler"`
	Confidence int    `json:"confidence"`
}

// writeCandidates prints one candidate per line as
// "URL VERSION HANDLER CONFIDENCE", prefixed by the package in batch mode.
func writeCandidates(w io.Writer, asJSON bool, results []upstream.Result, withPackage bool) error {
	if asJSON {
		out := []jsonCandidate{}
		for _, r := range results {
			for _, c := range r.Candidates {
				jc := jsonCandidate{URL: c.URL, Version: c.Version, Handler: c.Handler, Confidence: c.Confidence}
				if withPackage {
					jc.Package = r.Package.CPV()
				}
				out = append(out, jc)
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, r := range results {
		for _, c := range r.Candidates {
			if withPackage {
				if _, err := fmt.Fprintf(w, "%s ", r.Package.CPV()); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%s %s %s %d\n", c.URL, c.Version, c.Handler, c.Confidence); err != nil {
				return err
			}
		}
	}
	return nil
}
