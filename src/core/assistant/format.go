package assistant

import (
	"path"
	"strings"
)

// paragraphBreak forces a paragraph plus line break in chat renderers that
// collapse regular newlines (U+2029 paragraph separator, U+2028 line separator).
const paragraphBreak = "\u2029\u2028"

// FormatOneLineBullets ensures hyphen bullets are one per line, starting with "- ".
func FormatOneLineBullets(text string) string {
	if text == "" {
		return text
	}
	if !strings.Contains(text, " - ") {
		return text
	}

	formatted := strings.ReplaceAll(text, " - ", "\n- ")
	if !strings.HasPrefix(strings.TrimLeft(formatted, " \t\n"), "- ") {
		formatted = "- " + strings.TrimLeft(formatted, " \t\n")
	}
	return formatted
}

// StripBoldMarkdown removes double-asterisk markdown bold markers.
func StripBoldMarkdown(text string) string {
	return strings.ReplaceAll(text, "**", "")
}

// FinalizeAnswer applies bullet formatting, strips bold markers and appends a
// Sources paragraph listing the cited PDF files. The result always ends with
// a newline.
func FinalizeAnswer(body string, pdfFilenames []string) string {
	text := FormatOneLineBullets(body)
	text = StripBoldMarkdown(text)
	text = strings.TrimRight(text, " \t\n")

	if len(pdfFilenames) > 0 {
		return text + paragraphBreak + "Sources: " + strings.Join(pdfFilenames, ", ") + "\n"
	}
	return text + "\n"
}

// DocumentNameFromURI returns the base file name of an s3:// or http(s) URI
// with any query string stripped.
func DocumentNameFromURI(uri string) string {
	if uri == "" {
		return ""
	}
	name := path.Base(uri)
	if i := strings.Index(name, "?"); i >= 0 {
		name = name[:i]
	}
	return name
}

// PDFFilenames returns the cited PDF file names, preferring the source
// location over title metadata, de-duplicated preserving order.
func PDFFilenames(citations []Citation) []string {
	seen := make(map[string]struct{}, len(citations))
	var names []string

	for _, c := range citations {
		name := DocumentNameFromURI(c.SourceURI)
		if name == "" {
			name = c.DocumentID
		}
		if name == "" {
			name = c.Title
		}
		if name == "" || !strings.HasSuffix(strings.ToLower(name), ".pdf") {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	return names
}

// DocumentTitles returns the cited document titles, falling back to the
// source location base name, de-duplicated preserving order.
func DocumentTitles(citations []Citation) []string {
	seen := make(map[string]struct{}, len(citations))
	var titles []string

	for _, c := range citations {
		title := c.Title
		if title == "" {
			title = DocumentNameFromURI(c.SourceURI)
		}
		if title == "" {
			title = c.DocumentID
		}
		if title == "" {
			continue
		}
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}
		titles = append(titles, title)
	}

	return titles
}
