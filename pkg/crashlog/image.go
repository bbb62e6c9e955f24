package crashlog

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// BinaryImage is a single entry of a crash report's "Binary Images" section
//
// e.g.
//
//	0x100284000 - 0x100763fff +MyApplication arm64  <219132bbc2d03cc9aabdd0df0ed9ab2d> /private/var/.../MyApplication.app/MyApplication
type BinaryImage struct {
	LoadAddress  string
	ModuleName   string
	Architecture string
	UUID         string
	// ID is the parsed UUID; tokens that are not hex get a name-based UUID of the token
	ID   uuid.UUID
	Path string
	// IsNonSystem is set for images the report marks with a leading '+'
	IsNonSystem bool
}

// NewBinaryImage creates a BinaryImage from the raw tokens of an image line
func NewBinaryImage(loadAddr, module, arch, rawUUID, path string) BinaryImage {
	return BinaryImage{
		LoadAddress:  loadAddr,
		ModuleName:   lettersOnly(module),
		Architecture: arch,
		UUID:         FormatUUID(rawUUID),
		ID:           imageID(rawUUID),
		Path:         path,
		IsNonSystem:  strings.HasPrefix(module, "+"),
	}
}

// FullyQualifiedName returns the bundle name of the image, e.g. MyApp.app or MyLibrary.framework
func (i BinaryImage) FullyQualifiedName() string {
	parts := strings.Split(i.Path, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

func (i BinaryImage) String() string {
	return fmt.Sprintf("%s %s %s <%s> %s", i.LoadAddress, i.ModuleName, i.Architecture, i.UUID, i.Path)
}

// FormatUUID converts a raw image UUID token (e.g. <219132bbc2d03cc9aabdd0df0ed9ab2d>)
// into the upper-case 8-4-4-4-12 form dSYM bundles are named with.
// Tokens that do not hold exactly 32 alphanumerics are returned as-is.
func FormatUUID(raw string) string {
	if u, ok := ParseUUID(raw); ok {
		return strings.ToUpper(u.String())
	}

	runes := []rune(alphanumerics(raw))
	if len(runes) != 32 {
		return raw
	}

	// not hex, group it anyway
	return strings.ToUpper(fmt.Sprintf("%s-%s-%s-%s-%s",
		string(runes[:8]),
		string(runes[8:12]),
		string(runes[12:16]),
		string(runes[16:20]),
		string(runes[20:])))
}

// ParseUUID parses a raw image UUID token, with or without brackets and dashes
func ParseUUID(raw string) (uuid.UUID, bool) {
	filtered := alphanumerics(raw)
	if len(filtered) != 32 {
		return uuid.Nil, false
	}
	u, err := uuid.Parse(filtered)
	if err != nil {
		return uuid.Nil, false
	}
	return u, true
}

func imageID(raw string) uuid.UUID {
	if u, ok := ParseUUID(raw); ok {
		return u
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(raw))
}

func alphanumerics(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func lettersOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, s)
}
