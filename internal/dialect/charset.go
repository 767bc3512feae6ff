package dialect

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// CharsetKind groups encodings by how strictly they can be validated.
type CharsetKind int

const (
	// KindUTF8 is UTF-8, validated byte for byte.
	KindUTF8 CharsetKind = iota
	// KindUTF16 is UTF-16 in either byte order; surrogate pairing is validated.
	KindUTF16
	// KindOther covers the remaining x/text encodings, decoded without extra validation.
	KindOther
)

// Charset is a resolved text encoding.
type Charset struct {
	// Name is the normalized name the charset was looked up by.
	Name string
	Kind CharsetKind
	// BigEndian is the UTF-16 byte order used when no BOM says otherwise.
	BigEndian bool
	// BOM reports whether the encoding writes a byte order mark and honors one on read.
	BOM bool
	// Encoding performs the actual transcoding to and from UTF-8.
	Encoding encoding.Encoding
}

// LookupCharset resolves an encoding name such as "utf-8", "utf-16",
// "utf-16be", "latin1" or "windows-1252".
//
// "utf-16" follows the usual convention for that label: a BOM is written on
// output, and on input the BOM (if any) selects the byte order, defaulting to
// little endian.
func LookupCharset(name string) (Charset, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")

	switch norm {
	case "", "utf-8", "utf8":
		return Charset{Name: "utf-8", Kind: KindUTF8, Encoding: unicode.UTF8}, nil
	case "utf-8-sig", "utf8-sig":
		return Charset{Name: "utf-8-sig", Kind: KindUTF8, BOM: true, Encoding: unicode.UTF8BOM}, nil
	case "utf-16", "utf16":
		return Charset{
			Name:     "utf-16",
			Kind:     KindUTF16,
			BOM:      true,
			Encoding: unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
		}, nil
	case "utf-16le", "utf-16-le":
		return Charset{
			Name:     "utf-16le",
			Kind:     KindUTF16,
			Encoding: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
		}, nil
	case "utf-16be", "utf-16-be":
		return Charset{
			Name:      "utf-16be",
			Kind:      KindUTF16,
			BigEndian: true,
			Encoding:  unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
		}, nil
	}

	if enc, err := htmlindex.Get(norm); err == nil && enc != nil {
		return Charset{Name: norm, Kind: KindOther, Encoding: enc}, nil
	}
	enc, err := ianaindex.IANA.Encoding(norm)
	if err != nil || enc == nil {
		return Charset{}, fmt.Errorf("unsupported encoding %q", name)
	}
	return Charset{Name: norm, Kind: KindOther, Encoding: enc}, nil
}
