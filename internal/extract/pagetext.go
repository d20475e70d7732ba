package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// VisibleText reduces an HTML page to the text a visitor would see,
// skipping scripts, styles and embedded frames. Block elements become
// line breaks so tabular assessment data keeps its row structure.
func VisibleText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		// html.Parse is extremely tolerant; a hard failure means the
		// input is not HTML at all, so hand it back verbatim.
		return htmlContent
	}

	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode {
			switch n.Data {
			case "tr", "br", "p", "div", "li", "table", "h1", "h2", "h3", "h4":
				buf.WriteString("\n")
			}
		}
	}

	walk(doc)
	return collapseBlankLines(buf.String())
}

func collapseBlankLines(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
