// Dirsync - Workspace Directory Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dirsync

package chat

import "strings"

// MaxSectionText is the section block text limit.
const MaxSectionText = 3000

// Block is a layout block element.
type Block struct {
	Type     string       `json:"type"`
	Text     *TextObject  `json:"text,omitempty"`
	BlockID  string       `json:"block_id,omitempty"`
	Elements []TextObject `json:"elements,omitempty"`
	Fields   []TextObject `json:"fields,omitempty"`
}

// TextObject is a plain_text or mrkdwn text object.
type TextObject struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// HeaderBlock renders a plain-text header.
func HeaderBlock(text string) Block {
	return Block{Type: "header", Text: &TextObject{Type: "plain_text", Text: truncate(text, 150), Emoji: true}}
}

// SectionBlock renders mrkdwn text, truncated to the section limit.
func SectionBlock(text string) Block {
	return Block{Type: "section", Text: &TextObject{Type: "mrkdwn", Text: truncate(text, MaxSectionText)}}
}

// FieldsBlock renders up to ten short mrkdwn fields side by side.
func FieldsBlock(fields ...string) Block {
	b := Block{Type: "section"}
	for i, f := range fields {
		if i == 10 {
			break
		}
		b.Fields = append(b.Fields, TextObject{Type: "mrkdwn", Text: truncate(f, 2000)})
	}
	return b
}

// ContextBlock renders small mrkdwn footer text.
func ContextBlock(text string) Block {
	return Block{Type: "context", Elements: []TextObject{{Type: "mrkdwn", Text: text}}}
}

// DividerBlock renders a horizontal rule.
func DividerBlock() Block {
	return Block{Type: "divider"}
}

// Escape escapes the three characters mrkdwn treats as control characters.
func Escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
