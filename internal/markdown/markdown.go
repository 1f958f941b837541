// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown converts post Markdown into the HTML readers see.
// Raw HTML inside the Markdown is passed through, since editors paste
// embeds and figures straight into the source.
package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// md is the configured goldmark instance, reused across calls.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,         // tables, strikethrough, autolinks, task lists
		extension.Typographer, // smart quotes and dashes
		highlighting.NewHighlighting(
			highlighting.WithStyle("monokai"),
			highlighting.WithFormatOptions(),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithUnsafe(),
	),
)

// ToHTML converts Markdown source into HTML.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Rendered returns the stored HTML when present, otherwise the Markdown
// rendered to HTML. Both empty yields "".
func Rendered(contentHTML, contentMarkdown *string) (string, error) {
	if contentHTML != nil && strings.TrimSpace(*contentHTML) != "" {
		return *contentHTML, nil
	}
	if contentMarkdown == nil || strings.TrimSpace(*contentMarkdown) == "" {
		return "", nil
	}
	return ToHTML(*contentMarkdown)
}
