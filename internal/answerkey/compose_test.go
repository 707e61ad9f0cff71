package answerkey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestCompose_PreservesOrder(t *testing.T) {
	entries := Entries{
		{Question: "1", QuestionFont: "Calibri", Answer: "Paris", AnswerFont: "Arial"},
		{Question: "2", QuestionFont: "Calibri", Answer: "Blank", AnswerFont: "Arial"},
	}

	table := Compose(entries)
	assert.False(t, table.Empty())
	assert.Equal(t, TableCaption, table.Caption)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, Run{Text: "1", FontFamily: "Calibri"}, table.Rows[0].Question)
	assert.Equal(t, Run{Text: "Paris", FontFamily: "Arial"}, table.Rows[0].Answer)
	assert.Equal(t, "2", table.Rows[1].Question.Text)
}

func TestCompose_Empty(t *testing.T) {
	assert.True(t, Compose(nil).Empty())
	assert.True(t, Compose(Entries{}).Empty())
}

func TestTable_HTML(t *testing.T) {
	table := Compose(Entries{
		{Question: "1", QuestionFont: "Calibri", Answer: "A + B", AnswerFont: "Arial"},
		{Question: "<2>", QuestionFont: `Evil"; color: red`, Answer: "x & y", AnswerFont: ""},
	})

	out, err := table.HTML()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))

	doc, err := html.Parse(strings.NewReader(out))
	require.NoError(t, err)

	tableNode := findElement(doc, "table")
	require.NotNil(t, tableNode)
	assert.Equal(t, TableElementID, attr(tableNode, "id"))

	var headers, cells []*html.Node
	walk(tableNode, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.Data {
		case "th":
			headers = append(headers, n)
		case "td":
			cells = append(cells, n)
		}
	})

	require.Len(t, headers, 1)
	assert.Equal(t, "Answersheet", textContent(headers[0]))
	require.Len(t, cells, 2)
	assert.Equal(t, "1.A + B", textContent(cells[0]))
	assert.Equal(t, "<2>.x & y", textContent(cells[1]))

	spans := childElements(cells[0], "span")
	require.Len(t, spans, 2)
	assert.Equal(t, `font-family: "Calibri";`, attr(spans[0], "style"))
	assert.Equal(t, `font-family: "Arial"; margin-left: 3px;`, attr(spans[1], "style"))

	spans = childElements(cells[1], "span")
	require.Len(t, spans, 2)
	assert.Equal(t, `font-family: "Evil color: red";`, attr(spans[0], "style"))
	assert.Equal(t, "margin-left: 3px;", attr(spans[1], "style"))
}

func findElement(n *html.Node, tag string) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) {
		if found == nil && c.Type == html.ElementNode && c.Data == tag {
			found = c
		}
	})
	return found
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func childElements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}
