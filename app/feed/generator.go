package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/lysyi3m/paleo-digest/app/cfg"
	"github.com/lysyi3m/paleo-digest/app/database"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Run renders translated items as an RSS 2.0 document, newest first as given.
func (g *Generator) Run(items []database.Item) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	baseURL := cfg.Get().BaseUrl
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%s", cfg.Get().Port)
	}

	g.writeElement(&buf, "title", "Paleontology News Digest", 4)
	g.writeElement(&buf, "link", baseURL, 4)
	g.writeElement(&buf, "description", "Translated summaries of paleontology news", 4)

	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(baseURL+"/digest.xml")))

	lastBuildDate := time.Now().In(time.Local)
	if len(items) > 0 {
		lastBuildDate = cmp.Or(items[0].IngestedAt, lastBuildDate)
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("PaleoDigest/%s", cfg.Get().Version), 4)

	for _, item := range items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, item database.Item) {
	buf.WriteString("    <item>\n")

	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(item.DedupKey)))
	xml.EscapeText(buf, []byte(item.DedupKey))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", item.DisplayTitle(), 6)

	if g.isURL(item.DedupKey) {
		g.writeElement(buf, "link", item.DedupKey, 6)
	}

	g.writeElement(buf, "description", cmp.Or(item.DisplaySummary(), "No description available"), 6)

	if item.Body != nil && *item.Body != "" {
		buf.WriteString("      <content:encoded><![CDATA[")
		buf.WriteString(*item.Body)
		buf.WriteString("]]></content:encoded>\n")
	}

	pubDate := item.IngestedAt
	if item.PublishedAt != nil {
		pubDate = *item.PublishedAt
	}
	g.writeElement(buf, "pubDate", pubDate.Format(time.RFC1123Z), 6)

	g.writeElement(buf, "category", item.SourceName, 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}
