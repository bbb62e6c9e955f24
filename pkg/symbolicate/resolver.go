package symbolicate

import (
	"context"
	"fmt"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/symbolicator/pkg/crashlog"
)

// Translator rewrites a single eligible stack frame line
type Translator interface {
	Translate(ctx context.Context, line string, frame crashlog.Frame) (string, error)
}

// TranslatorFunc adapts a function to the Translator interface
type TranslatorFunc func(ctx context.Context, line string, frame crashlog.Frame) (string, error)

// Translate calls f(ctx, line, frame)
func (f TranslatorFunc) Translate(ctx context.Context, line string, frame crashlog.Frame) (string, error) {
	return f(ctx, line, frame)
}

// Resolver de-obfuscates and symbolicates the frames of one crash report.
//
// De-obfuscation remaps the archive's dSYM with its BCSymbolMaps (this modifies
// the dSYM in place, hence the per-image cache); symbolication then asks atos
// for the symbol at the frame address.
type Resolver struct {
	catalog *crashlog.Catalog
	archive Archive
	tools   Tools
	cache   *Cache
}

// NewResolver creates a Resolver for the images of a single report.
// A nil cache gets one sized to the catalog.
func NewResolver(catalog *crashlog.Catalog, archive Archive, tools Tools, cache *Cache) *Resolver {
	if cache == nil {
		cache = NewCache(catalog.Len())
	}
	return &Resolver{
		catalog: catalog,
		archive: archive,
		tools:   tools,
		cache:   cache,
	}
}

// Translate returns line with the frame's call text replaced by the atos result.
// Frames of unknown or system images are returned untouched.
func (r *Resolver) Translate(ctx context.Context, line string, frame crashlog.Frame) (string, error) {
	img, ok := r.catalog.Find(frame.Module)
	if !ok {
		log.WithField("module", frame.Module).Debug("no binary image for frame")
		return line, nil
	}
	if !img.IsNonSystem {
		return line, nil
	}

	dsym, err := r.cache.GetOrCompute(img.ID, func() (string, error) {
		return r.deobfuscate(ctx, img)
	})
	if err != nil {
		return "", err
	}

	symbol, err := r.symbolicate(ctx, img, frame, dsym)
	if err != nil {
		return "", err
	}

	if !strings.Contains(line, frame.CallText) {
		log.WithFields(log.Fields{
			"frame":  frame.Index,
			"module": frame.Module,
		}).Debug("call text not found verbatim in line")
	}

	return strings.Replace(line, frame.CallText, symbol, 1), nil
}

// deobfuscate runs dsymutil on the UUID named dSYM, falling back to the bundle named one
func (r *Resolver) deobfuscate(ctx context.Context, img crashlog.BinaryImage) (string, error) {
	candidates := []string{
		r.archive.DSYM(img.UUID),
		r.archive.DSYM(img.FullyQualifiedName()),
	}

	var out string
	for _, dsym := range candidates {
		log.WithFields(log.Fields{
			"module": img.ModuleName,
			"dsym":   dsym,
		}).Debug("Remapping dSYM with BCSymbolMaps")

		var err error
		out, err = r.tools.Deobfuscator.Deobfuscate(ctx, r.archive.BCSymbolMaps, dsym)
		if err != nil {
			return "", &ResolutionError{
				Kind:   ToolFailure,
				Module: img.ModuleName,
				UUID:   img.UUID,
				RawLog: out,
				Err:    err,
			}
		}
		if dsymutilMissing(out) {
			continue
		}
		if dsymutilFailed(out) {
			return "", &ResolutionError{
				Kind:   ToolFailure,
				Module: img.ModuleName,
				UUID:   img.UUID,
				RawLog: out,
			}
		}
		return dsym, nil
	}

	return "", &ResolutionError{
		Kind:   NotFound,
		Module: img.ModuleName,
		UUID:   img.UUID,
		RawLog: out,
	}
}

func (r *Resolver) symbolicate(ctx context.Context, img crashlog.BinaryImage, frame crashlog.Frame, dsym string) (string, error) {
	out, err := r.tools.AddressResolver.Resolve(ctx, AddressRequest{
		Arch:        img.Architecture,
		Object:      DWARFPath(dsym, frame.Module),
		LoadAddress: img.LoadAddress,
		Address:     frame.Address,
	})
	if err != nil {
		return "", &ResolutionError{
			Kind:   ToolFailure,
			Module: img.ModuleName,
			UUID:   img.UUID,
			RawLog: out,
			Err:    err,
		}
	}

	result, ok := lastLine(out)
	if !ok {
		return "", &ResolutionError{
			Kind:   ToolFailure,
			Module: img.ModuleName,
			UUID:   img.UUID,
			RawLog: out,
			Err:    fmt.Errorf("atos returned no output for %s", frame.Address),
		}
	}
	if strings.Contains(result, atosLoadFailure) {
		return "", &ResolutionError{
			Kind:   ToolFailure,
			Module: img.ModuleName,
			UUID:   img.UUID,
			RawLog: result,
		}
	}

	return result, nil
}
