package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const peekSize = 4096

// NewUTF8Reader wraps r so the content reads as UTF-8 regardless of the
// source charset. Bank statement exports come in UTF-8 (with or without BOM),
// UTF-16 or a Windows-1252 flavor depending on the bank and OS.
//
// Detection order: BOM, UTF-8 validity, chardet heuristics, then a
// Windows-1252 fallback.
func NewUTF8Reader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)

	buf, err := br.Peek(peekSize)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("peek: %w", err)
	}

	if dec := bomReader(br, buf); dec != nil {
		return dec, nil
	}

	if utf8.Valid(buf) {
		return br, nil
	}

	return sniffReader(br, buf), nil
}

// bomReader handles byte-order-marked input. The UTF-8 BOM is stripped;
// UTF-16 is decoded. Returns nil when no BOM is present.
func bomReader(br *bufio.Reader, buf []byte) io.Reader {
	switch {
	case bytes.HasPrefix(buf, []byte{0xEF, 0xBB, 0xBF}):
		_, _ = br.Discard(3)
		return br

	case bytes.HasPrefix(buf, []byte{0xFF, 0xFE}):
		return transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder())

	case bytes.HasPrefix(buf, []byte{0xFE, 0xFF}):
		return transform.NewReader(br, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder())
	}

	return nil
}

// sniffReader picks a legacy single-byte decoder via chardet heuristics,
// defaulting to Windows-1252.
func sniffReader(br *bufio.Reader, buf []byte) io.Reader {
	result, err := chardet.NewTextDetector().DetectBest(buf)
	if err == nil {
		switch result.Charset {
		case "UTF-8":
			return br
		case "ISO-8859-9":
			return transform.NewReader(br, charmap.ISO8859_9.NewDecoder())
		}
	}

	return transform.NewReader(br, charmap.Windows1252.NewDecoder())
}
