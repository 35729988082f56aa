package dispatch

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// codingDirective matches Emacs and Python style declarations such as
// "-*- coding: latin-1 -*-" or "# vim: set fileencoding=utf-8".
var codingDirective = regexp.MustCompile(`coding[:=]\s*([-\w.]+)`)

// detectEncoding returns the encoding named by a coding directive in the
// first two lines of raw. Unknown names are ignored; binary declarations
// yield encoding.Nop.
func detectEncoding(raw []byte) (string, encoding.Encoding) {
	head := raw
	for i, lines := 0, 0; i < len(raw); i++ {
		if raw[i] == '\n' {
			lines++
			if lines == 2 {
				head = raw[:i]
				break
			}
		}
	}

	m := codingDirective.FindSubmatch(head)
	if m == nil {
		return "", nil
	}

	label := normalizeLabel(string(m[1]))
	if label == binaryEncoding {
		return binaryEncoding, encoding.Nop
	}

	if enc, err := htmlindex.Get(label); err == nil {
		name, err := htmlindex.Name(enc)
		if err != nil {
			name = label
		}
		return name, enc
	}

	// Labels outside the web set, e.g. ibm437.
	if enc, err := ianaindex.IANA.Encoding(label); err == nil && enc != nil {
		name, err := ianaindex.IANA.Name(enc)
		if err != nil {
			name = label
		}
		return strings.ToLower(name), enc
	}

	log.Debug("ignoring unknown coding directive", "name", label)
	return "", nil
}

// binaryEncoding names content declared as raw bytes. It is kept as is.
const binaryEncoding = "binary"

// labelAliases maps editor spellings to labels the encoding indexes know.
var labelAliases = map[string]string{
	"latin-1":       "latin1",
	"latin-2":       "latin2",
	"utf8":          "utf-8",
	"ascii-8bit":    binaryEncoding,
	"no-conversion": binaryEncoding,
	"raw-text":      binaryEncoding,
}

// normalizeLabel lowercases label, drops an Emacs end-of-line suffix such
// as -unix and resolves aliases.
func normalizeLabel(label string) string {
	label = strings.ToLower(label)
	for _, suffix := range []string{"-unix", "-dos", "-mac"} {
		label = strings.TrimSuffix(label, suffix)
	}
	if alias, ok := labelAliases[label]; ok {
		return alias
	}
	return label
}

// decode converts raw to UTF-8 according to its coding directive. Content
// without a recognized directive, or already UTF-8, is returned unchanged.
func decode(raw []byte) ([]byte, string) {
	name, enc := detectEncoding(raw)
	if enc == nil || enc == encoding.Nop || name == "utf-8" {
		return raw, name
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		log.Debug("decoding failed, keeping raw bytes", "encoding", name, "error", err)
		return raw, ""
	}
	return bytes.TrimPrefix(out, []byte("\uFEFF")), name
}
