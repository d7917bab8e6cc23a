// Package render turns KENUTS bodies into something a terminal can show.
package render

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DecodeEntities resolves HTML character references (&lt; &amp; &#39; ...) so an
// entity-escaped document becomes markup again
func DecodeEntities(s string) string {
	return html.UnescapeString(s)
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Tr: true, atom.Pre: true, atom.Section: true, atom.Article: true,
	atom.Header: true, atom.Footer: true, atom.Title: true,
}

var skipElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true,
}

// Text extracts the readable text of an HTML document.
// Block elements start new lines, script and style content is dropped.
func Text(r io.Reader) string {
	z := html.NewTokenizer(r)

	var (
		out  strings.Builder
		line strings.Builder
		skip int
	)
	flush := func() {
		if s := strings.Join(strings.Fields(line.String()), " "); s != "" {
			out.WriteString(s)
			out.WriteByte('\n')
		}
		line.Reset()
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			flush()
			return strings.TrimRight(out.String(), "\n")
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if skipElements[tok.DataAtom] {
				skip++
			}
			if blockElements[tok.DataAtom] {
				flush()
			}
		case html.EndTagToken:
			tok := z.Token()
			if skipElements[tok.DataAtom] && skip > 0 {
				skip--
			}
			if blockElements[tok.DataAtom] {
				flush()
			}
		case html.TextToken:
			if skip == 0 {
				line.Write(z.Text())
				line.WriteByte(' ')
			}
		}
	}
}

// TextString is Text for an in-memory document
func TextString(doc string) string {
	return Text(strings.NewReader(doc))
}
