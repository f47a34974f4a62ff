package cache

import (
	"encoding/hex"
	"path/filepath"

	"github.com/minio/highwayhash"
)

// hashKey is the fixed HighwayHash key. Fingerprints only need to be stable,
// not secret.
var hashKey = []byte("apisummarizer-highwayhash-key-32")

// Fingerprint identifies class file content.
type Fingerprint [highwayhash.Size]byte

// FingerprintOf hashes data with HighwayHash-256.
func FingerprintOf(data []byte) Fingerprint {
	return highwayhash.Sum(data, hashKey)
}

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// ProjectKey returns the directory name used for a project's catalog: a
// 16-char hash of the absolute project path.
func ProjectKey(projectPath string) (string, error) {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return "", err
	}
	return hashString(filepath.Clean(abs))[:16], nil
}

// hashString returns the HighwayHash-64 of s as hex.
func hashString(s string) string {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		// only fails for a key that is not 32 bytes
		panic(err)
	}
	h.Write([]byte(s))
	var sum [8]byte
	return hex.EncodeToString(h.Sum(sum[:0]))
}
