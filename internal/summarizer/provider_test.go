package summarizer

import (
	"archive/zip"
	"context"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJar(t *testing.T, entries map[string][]byte, order []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lib.jar")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(entries[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func readAll(t *testing.T, p StreamProvider) []byte {
	t.Helper()
	rc, err := p.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func TestFileProvider(t *testing.T) {
	t.Parallel()

	data := classBytes("com/example/Disk")
	path := filepath.Join(t.TempDir(), "Disk.class")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	p := &FileProvider{Path: path}
	assert.Equal(t, path, p.Name())
	assert.Equal(t, data, readAll(t, p))

	_, err := (&FileProvider{Path: path + ".missing"}).Open(context.Background())
	assert.ErrorIs(t, err, iofs.ErrNotExist)
}

func TestURLProvider(t *testing.T) {
	t.Parallel()

	data := classBytes("com/example/Remote")
	path := filepath.Join(t.TempDir(), "Remote.class")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	p := &URLProvider{URL: "file://" + path}
	assert.Equal(t, data, readAll(t, p))

	summary, err := New(WithLogger(quietLogger())).Run(context.Background(), []StreamProvider{p})
	require.NoError(t, err)
	assert.Contains(t, summary, "com.example.Remote")
}

func TestJar_ClassEntries(t *testing.T) {
	t.Parallel()

	entries := map[string][]byte{
		"META-INF/MANIFEST.MF":      []byte("Manifest-Version: 1.0\n"),
		"com/example/A.class":       classBytes("com/example/A"),
		"com/example/B.class":       classBytes("com/example/B"),
		"com/example/B$Inner.class": classBytes("com/example/B$Inner"),
		"module-info.class":         classBytes("module-info"),
	}
	path := writeJar(t, entries, []string{
		"META-INF/MANIFEST.MF", "com/example/A.class", "com/example/B.class", "com/example/B$Inner.class", "module-info.class",
	})

	jar, err := OpenJar(path)
	require.NoError(t, err)
	defer jar.Close()

	got := jar.ClassEntries(func(entry string) bool { return entry != "module-info.class" })
	require.Len(t, got, 3)
	assert.Equal(t, "com/example/A.class", got[0].Entry)
	assert.Equal(t, path+"!/com/example/B$Inner.class", got[2].Name())

	var ps []StreamProvider
	for _, p := range got {
		ps = append(ps, p)
	}
	summary, err := New(WithWorkers(2), WithLogger(quietLogger())).Run(context.Background(), ps)
	require.NoError(t, err)
	assert.Len(t, summary, 3)
	assert.Contains(t, summary, "com.example.B$Inner")
}

func TestJarEntryProvider_Standalone(t *testing.T) {
	t.Parallel()

	data := classBytes("com/example/A")
	path := writeJar(t, map[string][]byte{"com/example/A.class": data}, []string{"com/example/A.class"})

	p := &JarEntryProvider{Archive: path, Entry: "com/example/A.class"}
	assert.Equal(t, data, readAll(t, p))

	_, err := (&JarEntryProvider{Archive: path, Entry: "com/example/Missing.class"}).Open(context.Background())
	assert.ErrorIs(t, err, iofs.ErrNotExist)
}

func TestOpenJar_NotAnArchive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.jar")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o644))

	_, err := OpenJar(path)
	var re *ResourceError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, OpOpen, re.Op)
}
