package objectkey

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultPrefix is prepended to every generated key
const DefaultPrefix = "uploads/"

// Generator defines the interface for object key generation strategies
type Generator interface {
	// GenerateKey creates an object key for the given caller-supplied file name
	GenerateKey(fileName string) string
}

// UploadsGenerator produces keys of the form <prefix><uuid>_<fileName>.
// The file name is embedded verbatim.
type UploadsGenerator struct {
	Prefix string
	NewID  func() uuid.UUID
}

func NewUploadsGenerator() *UploadsGenerator {
	return &UploadsGenerator{
		Prefix: DefaultPrefix,
		NewID:  uuid.New,
	}
}

func (g *UploadsGenerator) GenerateKey(fileName string) string {
	newID := g.NewID
	if newID == nil {
		newID = uuid.New
	}
	return fmt.Sprintf("%s%s_%s", g.Prefix, newID(), fileName)
}

// SanitizingGenerator replaces path separators and reserved characters in
// the file name before delegating, so a caller cannot place objects outside
// the configured prefix.
type SanitizingGenerator struct {
	BaseGenerator Generator
}

func NewSanitizingGenerator(base Generator) *SanitizingGenerator {
	return &SanitizingGenerator{BaseGenerator: base}
}

func (g *SanitizingGenerator) GenerateKey(fileName string) string {
	return g.BaseGenerator.GenerateKey(SanitizeFilename(fileName))
}

// CustomFuncGenerator allows users to provide their own key generation function
type CustomFuncGenerator struct {
	GenerateFunc func(fileName string) string
}

func NewCustomFuncGenerator(fn func(fileName string) string) *CustomFuncGenerator {
	return &CustomFuncGenerator{
		GenerateFunc: fn,
	}
}

func (g *CustomFuncGenerator) GenerateKey(fileName string) string {
	return g.GenerateFunc(fileName)
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "_",
)

// SanitizeFilename replaces characters that are problematic in object paths.
// A name made only of dots collapses to "_" so it cannot act as "." or "..".
func SanitizeFilename(filename string) string {
	out := filenameReplacer.Replace(filename)
	if strings.Trim(out, ".") == "" {
		return "_"
	}
	return out
}
