package common

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
)

// Supported identifier charsets. Plain ISO9660 names are ASCII (d-characters);
// the others cover discs mastered with local code pages.
var identifierCharsets = map[string]encoding.Encoding{
	"latin1":    charmap.ISO8859_1,
	"cp1251":    charmap.Windows1251,
	"cp1252":    charmap.Windows1252,
	"shift-jis": japanese.ShiftJIS,
}

// CharsetNames lists the accepted values for IdentifierDecoder
func CharsetNames() []string {
	return []string{"ascii", "cp1251", "cp1252", "latin1", "shift-jis"}
}

// IdentifierDecoder returns a function converting raw directory record
// names to UTF-8. "ascii" (or an empty name) returns nil: bytes are used
// unchanged.
func IdentifierDecoder(charset string) (func([]byte) (string, error), error) {
	name := strings.ToLower(strings.TrimSpace(charset))
	if name == "" || name == "ascii" {
		return nil, nil
	}

	enc, ok := identifierCharsets[name]
	if !ok {
		return nil, fmt.Errorf("unsupported identifier charset %q; valid charsets are: %s",
			charset, strings.Join(CharsetNames(), ", "))
	}

	return func(raw []byte) (string, error) {
		out, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}, nil
}
