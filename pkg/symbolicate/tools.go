package symbolicate

import (
	"context"
	"strings"
)

// Deobfuscator remaps a dSYM bundle using the archive's bitcode symbol maps (dsymutil -symbol-map)
type Deobfuscator interface {
	Deobfuscate(ctx context.Context, symbolMaps, dsym string) (string, error)
}

// AddressRequest is a single atos lookup
type AddressRequest struct {
	Arch        string
	Object      string // DWARF file inside the dSYM
	LoadAddress string
	Address     string
}

// AddressResolver maps a frame address to its symbol (atos)
type AddressResolver interface {
	Resolve(ctx context.Context, req AddressRequest) (string, error)
}

// Tools bundles the external programs used to resolve frames
type Tools struct {
	Deobfuscator    Deobfuscator
	AddressResolver AddressResolver
}

const (
	dsymutilError    = "error"
	dsymutilNotFound = "No such file or directory"
	atosLoadFailure  = "cannot load symbols"
)

func dsymutilFailed(out string) bool {
	return strings.Contains(out, dsymutilError)
}

func dsymutilMissing(out string) bool {
	return dsymutilFailed(out) && strings.Contains(out, dsymutilNotFound)
}

// lastLine returns the last non-blank line of out; atos prints warnings before the result
func lastLine(out string) (string, bool) {
	lines := strings.FieldsFunc(out, func(r rune) bool { return r == '\n' || r == '\r' })
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i], true
		}
	}
	return "", false
}
