package editor

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

// PlainText is the fallback language for unrecognized extensions.
const PlainText = "plaintext"

// Language returns the editor language for a file path: the overrides map
// (keyed by extension) wins, then the chroma lexer registry, then plain
// text. The lookup is static; no content sniffing.
func Language(path string, overrides map[string]string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := overrides[ext]; ok {
		return lang
	}

	lexer := lexers.Match(filepath.Base(path))
	if lexer == nil {
		return PlainText
	}
	return strings.ToLower(lexer.Config().Name)
}
