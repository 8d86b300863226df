package appeal

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// DocumentLoader resolves a document id to its full text. A false return
// means the document is unavailable; the batcher skips its claims and
// reports the count, it never fails the whole appeal run.
type DocumentLoader interface {
	Load(documentID string) (string, bool)
}

// FSLoader serves documents from a corpus directory. A document id maps to
// a file of the same name; .txt and .md are read raw, .html is reduced to
// its visible text.
type FSLoader struct {
	dir string
}

// NewFSLoader creates a loader over a corpus directory.
func NewFSLoader(dir string) *FSLoader {
	return &FSLoader{dir: dir}
}

// Load resolves a document id, trying the id verbatim and then with the
// known extensions.
func (l *FSLoader) Load(documentID string) (string, bool) {
	// Refuse ids that escape the corpus directory.
	if documentID == "" || strings.Contains(documentID, "..") {
		return "", false
	}

	candidates := []string{documentID, documentID + ".txt", documentID + ".md", documentID + ".html"}
	for _, name := range candidates {
		path := filepath.Join(l.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		text := string(data)
		if strings.HasSuffix(name, ".html") {
			text = visibleText(text)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		return text, true
	}

	return "", false
}

// visibleText extracts text nodes from HTML, skipping scripts/styles.
func visibleText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
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
	}

	walk(doc)
	return strings.TrimSpace(buf.String())
}
