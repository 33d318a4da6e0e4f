// Package integrity implements the subset of Subresource Integrity metadata (http://www.w3.org/TR/SRI/) used to verify
// artifact file contents.
package integrity

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"regexp"
)

var algos = map[string]func() hash.Hash{
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
}

var exprRegexp = regexp.MustCompile(`^(\w+)-([\w+/]+={0,2})$`)

var ErrBadIntegrity = errors.New("bad integrity metadata")

// Check reports whether the contents of the reader match the given integrity expression. An empty expression always
// passes; an expression with an unknown or malformed algorithm is an error.
func Check(r io.Reader, integrity string) (bool, error) {
	if integrity == "" {
		return true, nil
	}
	matches := exprRegexp.FindStringSubmatch(integrity)
	if len(matches) != 3 {
		return false, fmt.Errorf("%w: couldn't parse %q", ErrBadIntegrity, integrity)
	}
	fn := algos[matches[1]]
	if fn == nil {
		return false, fmt.Errorf("%w: unknown algorithm %q", ErrBadIntegrity, matches[1])
	}
	digest, err := base64.StdEncoding.DecodeString(matches[2])
	if err != nil {
		return false, fmt.Errorf("%w: couldn't decode base64 payload: %s", ErrBadIntegrity, matches[2])
	}
	h := fn()
	if _, err := io.Copy(h, r); err != nil {
		return false, err
	}
	return bytes.Equal(h.Sum(nil), digest), nil
}

// CheckFile behaves like Check but reads from the named file.
func CheckFile(filename string, integrity string) (bool, error) {
	if integrity == "" {
		return true, nil
	}
	f, err := os.Open(filename)
	if err != nil {
		return false, err
	}
	defer f.Close()
	return Check(f, integrity)
}

// Generate generates an integrity expression from the given algorithm and byte array. Unrecognized algorithms yield an
// empty string.
func Generate(algorithm string, b []byte) string {
	fn := algos[algorithm]
	if fn == nil {
		return ""
	}
	h := fn()
	h.Write(b)
	return algorithm + "-" + base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// MustGenerate behaves like Generate, except that an unrecognized algorithm causes a panic.
func MustGenerate(algorithm string, b []byte) string {
	s := Generate(algorithm, b)
	if s == "" {
		panic("unrecognized algorithm: " + algorithm)
	}
	return s
}
