// Package crashlog parses the text layout of Apple crash reports: the
// "Binary Images" section and the numbered stack frames of each thread.
package crashlog

import (
	"fmt"
	"strings"
)

// BinaryImagesMarker separates the report body from the binary images section
const BinaryImagesMarker = "Binary Images:\n"

// minImageTokens is the token count of the shortest image line we can read:
// <start> - <end> <+module> <arch> <uuid> <path>
const minImageTokens = 7

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Lines splits content on any newline variant
func Lines(content string) []string {
	return strings.Split(newlines.Replace(content), "\n")
}

// Catalog is the set of binary images loaded by the crashed process
type Catalog struct {
	images []BinaryImage
	index  map[string]int
}

// ParseImages reads the "Binary Images" section of a crash report
func ParseImages(content string) (*Catalog, error) {
	content = newlines.Replace(content)

	_, section, found := strings.Cut(content, BinaryImagesMarker)
	if !found {
		return nil, &FormatError{Reason: fmt.Sprintf("missing %q section", strings.TrimSpace(BinaryImagesMarker))}
	}

	c := &Catalog{index: make(map[string]int)}

	for idx, line := range strings.Split(section, "\n") {
		tokens := strings.Fields(line)
		if len(tokens) == 0 || tokens[0] == "EOF" { // iOS 13 reports end with EOF
			continue
		}
		if len(tokens) < minImageTokens {
			return nil, &FormatError{
				Line:   idx + 1,
				Text:   line,
				Reason: fmt.Sprintf("binary image line has %d fields, expected at least %d", len(tokens), minImageTokens),
			}
		}
		// tokens 1 and 2 are the '-' separator and the image end address
		img := NewBinaryImage(tokens[0], tokens[3], tokens[4], tokens[5], tokens[len(tokens)-1])
		c.index[img.ModuleName] = len(c.images)
		c.images = append(c.images, img)
	}

	return c, nil
}

// Images returns the images in report order
func (c *Catalog) Images() []BinaryImage {
	if c == nil {
		return nil
	}
	return c.images
}

// Len returns the number of parsed images
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.images)
}

// Find returns the image for the given module name.
// If a report lists the same module twice the last one wins.
func (c *Catalog) Find(module string) (BinaryImage, bool) {
	if c == nil {
		return BinaryImage{}, false
	}
	idx, ok := c.index[module]
	if !ok {
		return BinaryImage{}, false
	}
	return c.images[idx], true
}
