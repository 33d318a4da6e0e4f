package common

import (
	"crypto/sha1"
	"encoding/base32"
	"fmt"
)

// Hash condenses its arguments into a 32-character fingerprint: each value is formatted with %v, fed through
// SHA1 and base32-encoded. Lockfiles record one of these over the resolved module set to detect staleness;
// collision resistance beyond accidental drift is not a goal here.
func Hash(values ...interface{}) string {
	h := sha1.New()
	for _, v := range values {
		_, _ = fmt.Fprintf(h, "%v$", v)
	}
	return base32.StdEncoding.EncodeToString(h.Sum(nil))
}
