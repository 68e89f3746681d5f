package provider

import (
	"math/rand"
	"mime"
	"path/filepath"
	"strings"
)

const renameAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// DefaultSuffixLength is the number of random characters appended by Rename.
// 62^6 possibilities make collisions negligible for expected upload volumes;
// this is not a cryptographic uniqueness guarantee.
const DefaultSuffixLength = 6

// Rename produces a collision-resistant object name from an original
// filename: "photo.jpg" becomes "photo-x7Kq2B.jpg". The extension is
// preserved so content-type inference keeps working, and the result never
// equals the input.
func Rename(name string) string {
	return RenameWithSuffix(name, DefaultSuffixLength)
}

// RenameWithSuffix is Rename with a tunable suffix length.
func RenameWithSuffix(name string, suffixLength int) string {
	ext := filepath.Ext(name)
	base := name[:len(name)-len(ext)]
	return base + "-" + randomString(suffixLength) + ext
}

// randomString returns a string of length n drawn uniformly from [0-9A-Za-z].
func randomString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = renameAlphabet[rand.Intn(len(renameAlphabet))]
	}
	return string(b)
}

// DetectMimetype resolves a content type for name, preferring the extension
// lookup, then the caller-declared type, then application/octet-stream.
func DetectMimetype(name, declared string) string {
	if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
		// mime.TypeByExtension may append parameters ("; charset=utf-8").
		if i := strings.IndexByte(byExt, ';'); i >= 0 {
			byExt = strings.TrimSpace(byExt[:i])
		}
		return byExt
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}
