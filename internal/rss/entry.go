package rss

import (
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/deusflow/dailydigest/internal/news"
)

// toRawEntry flattens a gofeed item of any dialect into news.RawEntry.
//
// gofeed already maps RSS description and Atom summary onto Description, and
// content:encoded / Atom content onto Content. Atom rel="enclosure" links
// arrive as Enclosures, so Links stays empty.
func toRawEntry(item *gofeed.Item) news.RawEntry {
	raw := news.RawEntry{
		Title:     item.Title,
		Link:      strings.TrimSpace(item.Link),
		Summary:   item.Description,
		Content:   item.Content,
		Published: item.PublishedParsed,
		Updated:   item.UpdatedParsed,
	}

	if item.DublinCoreExt != nil {
		raw.Description = first(item.DublinCoreExt.Description)
		raw.Creator = first(item.DublinCoreExt.Creator)
	}
	if item.ITunesExt != nil {
		if raw.Description == "" {
			raw.Description = item.ITunesExt.Summary
		}
		if raw.Creator == "" {
			raw.Creator = item.ITunesExt.Author
		}
	}

	if item.Author != nil {
		raw.Author = item.Author.Name
	}
	for _, p := range item.Authors {
		if p != nil && strings.TrimSpace(p.Name) != "" {
			raw.AuthorDetailName = p.Name
			break
		}
	}

	if media, ok := item.Extensions["media"]; ok {
		raw.MediaContent = mediaRefs(media["content"])
		raw.MediaThumbnail = mediaRefs(media["thumbnail"])
		for _, group := range media["group"] {
			raw.MediaContent = append(raw.MediaContent, mediaRefs(group.Children["content"])...)
			raw.MediaThumbnail = append(raw.MediaThumbnail, mediaRefs(group.Children["thumbnail"])...)
		}
	}

	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		raw.Enclosures = append(raw.Enclosures, news.MediaRef{URL: enc.URL, Type: enc.Type, Rel: "enclosure"})
	}

	return raw
}

// mediaRefs reads Media RSS elements. The type attribute is preferred; the
// medium attribute ("image", "video") stands in when it is missing.
func mediaRefs(elems []ext.Extension) []news.MediaRef {
	var out []news.MediaRef
	for _, e := range elems {
		u := strings.TrimSpace(e.Attrs["url"])
		if u == "" {
			continue
		}
		typ := e.Attrs["type"]
		if typ == "" {
			typ = e.Attrs["medium"]
		}
		out = append(out, news.MediaRef{URL: u, Type: typ})
	}
	return out
}

func first(values []string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
