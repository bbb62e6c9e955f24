package symbolicate

import (
	"fmt"
	"os"
	"path/filepath"
)

// Archive locates the BCSymbolMaps and dSYMs folders of an Xcode archive
type Archive struct {
	BCSymbolMaps string
	DSYMs        string
}

// NewArchive returns the symbol folders inside an .xcarchive bundle
func NewArchive(xcarchive string) Archive {
	return Archive{
		BCSymbolMaps: filepath.Join(xcarchive, "BCSymbolMaps"),
		DSYMs:        filepath.Join(xcarchive, "dSYMs"),
	}
}

// DSYM returns the path of the dSYM bundle named name (a UUID or a fully qualified image name)
func (a Archive) DSYM(name string) string {
	return filepath.Join(a.DSYMs, name+".dSYM")
}

// Verify checks that both symbol folders exist
func (a Archive) Verify() error {
	for _, dir := range []string{a.BCSymbolMaps, a.DSYMs} {
		fi, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("archive folder %s not found: %w", dir, err)
		}
		if !fi.IsDir() {
			return fmt.Errorf("archive folder %s is not a directory", dir)
		}
	}
	return nil
}

// DWARFPath returns the path of the DWARF object for module inside a dSYM bundle
func DWARFPath(dsym, module string) string {
	return filepath.Join(dsym, "Contents", "Resources", "DWARF", module)
}
