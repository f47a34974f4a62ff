package summarizer

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"strings"

	"github.com/viant/afs"
)

// StreamProvider supplies the bytes of exactly one class file. The stream
// returned by Open is closed by the summarizer on every exit path.
type StreamProvider interface {
	// Name identifies the input in errors and logs.
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileProvider reads a class file from the local filesystem.
type FileProvider struct {
	Path string
}

func (p *FileProvider) Name() string { return p.Path }

func (p *FileProvider) Open(ctx context.Context) (io.ReadCloser, error) {
	return os.Open(p.Path)
}

// BytesProvider serves an in-memory class file.
type BytesProvider struct {
	Label string
	Data  []byte
}

func (p *BytesProvider) Name() string { return p.Label }

func (p *BytesProvider) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(p.Data)), nil
}

// URLProvider reads a class file through afs, so any scheme afs knows
// (file://, mem://, gs://, s3://, ...) can be summarized.
type URLProvider struct {
	URL string
	FS  afs.Service // afs.New() when nil
}

func (p *URLProvider) Name() string { return p.URL }

func (p *URLProvider) Open(ctx context.Context) (io.ReadCloser, error) {
	fs := p.FS
	if fs == nil {
		fs = afs.New()
	}
	return fs.OpenURL(ctx, p.URL)
}

// JarEntryProvider reads one entry of a jar or zip archive. Providers made by
// Jar.ClassEntries share the open archive; a zero-value provider opens the
// archive itself on every Open.
type JarEntryProvider struct {
	Archive string
	Entry   string

	file *zip.File
}

func (p *JarEntryProvider) Name() string { return p.Archive + "!/" + p.Entry }

func (p *JarEntryProvider) Open(ctx context.Context) (io.ReadCloser, error) {
	if p.file != nil {
		return p.file.Open()
	}
	zr, err := zip.OpenReader(p.Archive)
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if f.Name != p.Entry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			zr.Close()
			return nil, err
		}
		return &entryReader{ReadCloser: rc, archive: zr}, nil
	}
	zr.Close()
	return nil, fmt.Errorf("%s: %w", p.Name(), iofs.ErrNotExist)
}

// entryReader closes the archive together with the entry.
type entryReader struct {
	io.ReadCloser
	archive io.Closer
}

func (r *entryReader) Close() error {
	return errors.Join(r.ReadCloser.Close(), r.archive.Close())
}

// Jar is an open jar or zip archive.
type Jar struct {
	Path string
	zr   *zip.ReadCloser
}

// OpenJar opens an archive for reading. The caller closes it after every
// provider taken from it has been consumed.
func OpenJar(path string) (*Jar, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &ResourceError{Op: OpOpen, Input: path, Err: err}
	}
	return &Jar{Path: path, zr: zr}, nil
}

// ClassEntries returns a provider for every .class entry accepted by include,
// in archive order. A nil include accepts all entries.
func (j *Jar) ClassEntries(include func(entry string) bool) []*JarEntryProvider {
	var out []*JarEntryProvider
	for _, f := range j.zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".class") {
			continue
		}
		if include != nil && !include(f.Name) {
			continue
		}
		out = append(out, &JarEntryProvider{Archive: j.Path, Entry: f.Name, file: f})
	}
	return out
}

func (j *Jar) Close() error {
	return j.zr.Close()
}
