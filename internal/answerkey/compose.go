package answerkey

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// TableCaption heads the answer sheet
	TableCaption = "Answersheet"
	// TableElementID is the id of the rendered table element
	TableElementID = "answersheet"
	// QuestionSuffix separates a question from its answer in a cell
	QuestionSuffix = "."
)

// Run is a piece of text with the font family it should be rendered in
type Run struct {
	Text       string
	FontFamily string
}

// Row is one rendered pair
type Row struct {
	Question Run
	Answer   Run
}

// Table is the answer sheet of one page
type Table struct {
	Caption string
	Rows    []Row
}

// Compose builds the answer sheet for entries, preserving their order
func Compose(entries Entries) Table {
	table := Table{Caption: TableCaption}
	for _, e := range entries {
		table.Rows = append(table.Rows, Row{
			Question: Run{Text: e.Question, FontFamily: e.QuestionFont},
			Answer:   Run{Text: e.Answer, FontFamily: e.AnswerFont},
		})
	}
	return table
}

// Empty reports whether the table has no rows
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// HTML renders the table as a standalone HTML document: a single strip with
// the caption cell followed by one cell per row.
func (t Table) HTML() (string, error) {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	doc.AppendChild(root)

	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	style := element(atom.Style)
	style.AppendChild(text("html, body { margin: 0; padding: 0; background: transparent; }"))
	head.AppendChild(style)
	root.AppendChild(head)

	body := element(atom.Body)
	root.AppendChild(body)

	table := element(atom.Table,
		html.Attribute{Key: "id", Val: TableElementID},
		html.Attribute{Key: "border", Val: "1"},
		html.Attribute{Key: "style", Val: "border-collapse: collapse; background-color: white; font-size: 20px;"},
	)
	body.AppendChild(table)

	thead := element(atom.Thead)
	table.AppendChild(thead)
	tr := element(atom.Tr)
	thead.AppendChild(tr)

	caption := t.Caption
	if caption == "" {
		caption = TableCaption
	}
	th := element(atom.Th, html.Attribute{Key: "style", Val: "background-color: black; color: white; padding: 7px;"})
	th.AppendChild(text(caption))
	tr.AppendChild(th)

	for _, row := range t.Rows {
		td := element(atom.Td, html.Attribute{Key: "style", Val: "padding: 7px; background-color: white;"})

		q := element(atom.Span, html.Attribute{Key: "style", Val: fontStyle(row.Question.FontFamily, "")})
		q.AppendChild(text(row.Question.Text + QuestionSuffix))
		td.AppendChild(q)

		a := element(atom.Span, html.Attribute{Key: "style", Val: fontStyle(row.Answer.FontFamily, "margin-left: 3px;")})
		a.AppendChild(text(row.Answer.Text))
		td.AppendChild(a)

		tr.AppendChild(td)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("failed to render answer sheet: %w", err)
	}
	return buf.String(), nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// fontStyle builds a font-family declaration. Characters that could end the
// quoted family name or the declaration are dropped.
func fontStyle(family, extra string) string {
	family = strings.Map(func(r rune) rune {
		switch r {
		case '"', '\\', ';', '{', '}', '<', '>':
			return -1
		}
		return r
	}, family)

	decl := ""
	if family != "" {
		decl = fmt.Sprintf("font-family: %q;", family)
	}
	if extra != "" {
		if decl != "" {
			decl += " "
		}
		decl += extra
	}
	return decl
}
