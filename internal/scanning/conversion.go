package scanning

import (
	"bytes"
	"mime"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

var (
	ErrUnsupportedCharset = eris.New("unsupported charset")
	ErrNoText             = eris.New("document has no text layer")
)

const defaultCharset = "utf-8"

var pdfMagic = []byte("%PDF-")

// DecodeText turns an uploaded document into text for the engine.
// PDFs contribute their embedded text layer; anything else is decoded with charset,
// falling back to the charset parameter of contentType and then UTF-8.
func DecodeText(data []byte, contentType, charset string) (string, error) {
	mediaType, params, _ := mime.ParseMediaType(contentType)
	if isPDF(data, mediaType) {
		return pdfText(data)
	}

	if charset == "" {
		charset = params["charset"]
	}
	return decodeCharset(data, charset)
}

// isPDF checks the magic bytes first since clients often send octet-stream
func isPDF(data []byte, mediaType string) bool {
	return bytes.HasPrefix(data, pdfMagic) || strings.EqualFold(mediaType, "application/pdf")
}

// decodeCharset converts bytes in the named encoding to UTF-8. Invalid sequences
// become U+FFFD rather than failing the whole input.
func decodeCharset(data []byte, charset string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(charset))
	if name == "" {
		name = defaultCharset
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", eris.Wrapf(ErrUnsupportedCharset, "%s", charset)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", eris.Wrapf(err, "decoding %s text", name)
	}
	return string(out), nil
}

// pdfText extracts the text layer of every page, one page after another
func pdfText(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", eris.Wrap(err, "opening PDF")
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		text, err := doc.Text(n)
		if err != nil {
			return "", eris.Wrapf(err, "extracting text of page %d", n+1)
		}
		pages = append(pages, strings.TrimRight(text, "\n"))
	}

	text := strings.Join(pages, "\n")
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}
