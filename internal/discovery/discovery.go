// Package discovery turns user-supplied roots (directories, class files, jars
// and afs URLs) into an ordered list of stream providers.
package discovery

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/mvp-joe/apisummarizer/internal/summarizer"
	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
)

// Default patterns applied when none are configured.
var (
	DefaultInclude      = []string{"**/*.class", "**/*.jar"}
	DefaultEntryExclude = []string{"module-info.class", "META-INF/versions/**"}
)

// compiledPattern holds both the pattern string and compiled glob.
type compiledPattern struct {
	pattern string
	glob    glob.Glob
	// rootGlob matches files directly under the root for "**/" patterns.
	rootGlob glob.Glob
}

func compile(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		cp := compiledPattern{pattern: p, glob: g}
		if simplified, ok := strings.CutPrefix(p, "**/"); ok {
			if cp.rootGlob, err = glob.Compile(simplified, '/'); err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
			}
		}
		out = append(out, cp)
	}
	return out, nil
}

// matchesAny checks if a slash-separated relative path matches a pattern.
// "**/*.class" matches both "Foo.class" and "a/b/Foo.class".
func matchesAny(rel string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(rel) {
			return true
		}
		if cp.rootGlob != nil && !strings.Contains(rel, "/") && cp.rootGlob.Match(rel) {
			return true
		}
	}
	return false
}

// Discovery finds class inputs under a set of roots.
type Discovery struct {
	fs           afs.Service
	include      []compiledPattern
	exclude      []compiledPattern
	entryExclude []compiledPattern
	log          logrus.FieldLogger
}

// Config lists glob patterns. Include and Exclude match paths relative to a
// directory root; EntryExclude matches entry names inside archives.
type Config struct {
	Include      []string
	Exclude      []string
	EntryExclude []string
	// FS serves non-local roots. Defaults to afs.New().
	FS afs.Service
}

// New compiles the patterns. Empty Include and EntryExclude fall back to the
// defaults.
func New(cfg Config, log logrus.FieldLogger) (*Discovery, error) {
	if len(cfg.Include) == 0 {
		cfg.Include = DefaultInclude
	}
	if cfg.EntryExclude == nil {
		cfg.EntryExclude = DefaultEntryExclude
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.FS == nil {
		cfg.FS = afs.New()
	}
	d := &Discovery{fs: cfg.FS, log: log}
	var err error
	if d.include, err = compile(cfg.Include); err != nil {
		return nil, err
	}
	if d.exclude, err = compile(cfg.Exclude); err != nil {
		return nil, err
	}
	if d.entryExclude, err = compile(cfg.EntryExclude); err != nil {
		return nil, err
	}
	return d, nil
}

// Result is the outcome of a discovery pass. Close releases archives opened
// for jar providers once the run is over.
type Result struct {
	Providers []summarizer.StreamProvider
	Jars      int
	jars      []*summarizer.Jar
}

func (r *Result) Close() error {
	var errs []error
	for _, j := range r.jars {
		errs = append(errs, j.Close())
	}
	r.jars = nil
	return errors.Join(errs...)
}

// Discover expands roots in order. Within a directory root, files are sorted
// by path so repeated runs see the same provider order.
func (d *Discovery) Discover(ctx context.Context, roots ...string) (*Result, error) {
	res := &Result{}
	for _, root := range roots {
		if err := d.discoverRoot(ctx, root, res); err != nil {
			res.Close()
			return nil, err
		}
	}
	d.log.WithFields(logrus.Fields{"inputs": len(res.Providers), "jars": res.Jars}).Debug("discovery complete")
	return res, nil
}

func isRemote(root string) bool {
	return strings.Contains(root, "://") && !strings.HasPrefix(root, "file://")
}

// LocalPath returns the filesystem path of a local root, or false for roots
// served through afs.
func LocalPath(root string) (string, bool) {
	if isRemote(root) {
		return "", false
	}
	return strings.TrimPrefix(root, "file://"), true
}

func (d *Discovery) discoverRoot(ctx context.Context, root string, res *Result) error {
	local, ok := LocalPath(root)
	if !ok {
		return d.discoverURL(ctx, root, res)
	}
	info, err := os.Stat(local)
	if err != nil {
		return &summarizer.ResourceError{Op: summarizer.OpOpen, Input: root, Err: err}
	}
	if !info.IsDir() {
		return d.addLocalFile(local, res)
	}

	var files []string
	err = d.walk(ctx, local, func(rel string) {
		files = append(files, filepath.Join(local, filepath.FromSlash(rel)))
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Strings(files)
	for _, f := range files {
		if err := d.addLocalFile(f, res); err != nil {
			return err
		}
	}
	return nil
}

// walk visits every file under root accepted by the include and exclude
// patterns and passes its slash-separated path relative to root.
func (d *Discovery) walk(ctx context.Context, root string, fn func(rel string)) error {
	var visitor storage.OnVisit = func(ctx context.Context, baseURL, parent string, info os.FileInfo, reader io.Reader) (bool, error) {
		rel := path.Join(parent, info.Name())
		if info.IsDir() {
			return !matchesAny(rel+"/**", d.exclude), nil
		}
		if matchesAny(rel, d.exclude) || !matchesAny(rel, d.include) {
			return true, nil
		}
		fn(rel)
		return true, nil
	}
	return d.fs.Walk(ctx, root, visitor)
}

func isArchive(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".jar" || ext == ".zip"
}

func (d *Discovery) includeEntry(entry string) bool {
	return !matchesAny(entry, d.entryExclude)
}

func (d *Discovery) addLocalFile(file string, res *Result) error {
	switch {
	case isArchive(file):
		jar, err := summarizer.OpenJar(file)
		if err != nil {
			return err
		}
		res.jars = append(res.jars, jar)
		res.Jars++
		for _, p := range jar.ClassEntries(d.includeEntry) {
			res.Providers = append(res.Providers, p)
		}
	case strings.HasSuffix(file, ".class"):
		res.Providers = append(res.Providers, &summarizer.FileProvider{Path: file})
	default:
		d.log.WithField("input", file).Debug("skipping non-class file")
	}
	return nil
}

// discoverURL handles roots on any afs scheme. Remote archives are downloaded
// and their entries served from memory.
func (d *Discovery) discoverURL(ctx context.Context, root string, res *Result) error {
	switch {
	case strings.HasSuffix(root, ".class"):
		res.Providers = append(res.Providers, &summarizer.URLProvider{URL: root, FS: d.fs})
		return nil
	case isArchive(root):
		return d.addRemoteArchive(ctx, root, res)
	}

	var rels []string
	if err := d.walk(ctx, root, func(rel string) { rels = append(rels, rel) }); err != nil {
		return fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Strings(rels)
	for _, rel := range rels {
		u := url.Join(root, rel)
		if isArchive(rel) {
			if err := d.addRemoteArchive(ctx, u, res); err != nil {
				return err
			}
			continue
		}
		res.Providers = append(res.Providers, &summarizer.URLProvider{URL: u, FS: d.fs})
	}
	return nil
}

func (d *Discovery) addRemoteArchive(ctx context.Context, u string, res *Result) error {
	data, err := d.fs.DownloadWithURL(ctx, u)
	if err != nil {
		return &summarizer.ResourceError{Op: summarizer.OpRead, Input: u, Err: err}
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return &summarizer.ResourceError{Op: summarizer.OpOpen, Input: u, Err: err}
	}
	res.Jars++
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".class") || !d.includeEntry(f.Name) {
			continue
		}
		entry, err := readEntry(f)
		if err != nil {
			return &summarizer.ResourceError{Op: summarizer.OpRead, Input: u + "!/" + f.Name, Err: err}
		}
		res.Providers = append(res.Providers, &summarizer.BytesProvider{Label: u + "!/" + f.Name, Data: entry})
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
