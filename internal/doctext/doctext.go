// Package doctext handles the text encoding of saved store documents.
//
// Documents are UTF-8 on disk by default, but tooling on the Windows side of
// a pipeline tends to hand back UTF-16LE with a BOM. Decode sniffs the BOM
// and transcodes so the rest of the store only ever sees UTF-8.
package doctext

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names accepted by Encode.
const (
	EncodingUTF8    = "UTF-8"
	EncodingUTF16LE = "UTF-16LE"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode returns the UTF-8 text of data, transcoding UTF-16 input and
// stripping any BOM.
func Decode(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], nil
	case bytes.HasPrefix(data, bomUTF16LE):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, data)
		if err != nil {
			return nil, fmt.Errorf("doctext: decoding UTF-16LE: %w", err)
		}
		return out, nil
	case bytes.HasPrefix(data, bomUTF16BE):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, data)
		if err != nil {
			return nil, fmt.Errorf("doctext: decoding UTF-16BE: %w", err)
		}
		return out, nil
	default:
		return data, nil
	}
}

// Encode converts UTF-8 text to the named encoding. UTF-16LE output always
// carries a BOM; UTF-8 output never does.
func Encode(data []byte, encoding string) ([]byte, error) {
	switch encoding {
	case "", EncodingUTF8:
		return data, nil
	case EncodingUTF16LE:
		enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
		out, _, err := transform.Bytes(enc, data)
		if err != nil {
			return nil, fmt.Errorf("doctext: encoding UTF-16LE: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("doctext: unsupported encoding %q", encoding)
	}
}
