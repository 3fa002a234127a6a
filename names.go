package filecat

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ParseName splits input on the first ':' into (namespace, name).
// When the namespace part is empty or the separator is absent, the
// default namespace is substituted; if none is available the call fails
// with ErrInvalidName.
func ParseName(input, defaultNamespace string) (namespace, name string, err error) {
	ns, n, found := strings.Cut(input, ":")
	if !found {
		ns, n = "", input
	}
	if ns == "" {
		if defaultNamespace == "" {
			return "", "", fmt.Errorf("%w: %q (no default namespace)", ErrInvalidName, input)
		}
		ns = defaultNamespace
	}
	return ns, n, nil
}

// GenerateFileID returns a new 128-bit random file identifier as 32 hex
// characters. Callers may supply their own fid on create; the engine fills
// in a generated one when it is absent.
func GenerateFileID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
