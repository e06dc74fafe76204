package gateway

import (
	"fmt"
	"sort"
	"strings"
)

// Link is one entry of a CoRE link-format document (RFC 6690): a target
// path plus its attributes.
type Link struct {
	Path       string
	Attributes map[string]string
}

// Attribute keys with a canonical position in the encoded form. Anything
// else is appended in sorted order.
var canonicalAttrOrder = []string{"rt", "if", "ct", "title", "object_id", "room_id", "rack_id"}

// EncodeLinks serialises links as a link-format document:
//
//	</path>;rt="...";if="...",</other>;rt="..."
func EncodeLinks(links []Link) string {
	parts := make([]string, 0, len(links))
	for _, l := range links {
		parts = append(parts, encodeLink(l))
	}
	return strings.Join(parts, ",")
}

func encodeLink(l Link) string {
	var b strings.Builder
	path := l.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	fmt.Fprintf(&b, "<%s>", path)

	seen := make(map[string]bool, len(l.Attributes))
	for _, key := range canonicalAttrOrder {
		if value, ok := l.Attributes[key]; ok {
			fmt.Fprintf(&b, ";%s=%q", key, value)
			seen[key] = true
		}
	}

	rest := make([]string, 0)
	for key := range l.Attributes {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		fmt.Fprintf(&b, ";%s=%q", key, l.Attributes[key])
	}
	return b.String()
}

// ParseLinks parses a link-format document. Unquoted attribute values and
// value-less attributes (e.g. ";obs") are tolerated; malformed entries are
// skipped rather than failing the whole document.
func ParseLinks(doc string) []Link {
	var links []Link
	for _, entry := range splitLinks(doc) {
		link, ok := parseLink(entry)
		if ok {
			links = append(links, link)
		}
	}
	return links
}

// splitLinks splits on top-level commas. Commas inside quoted attribute
// values do not separate entries.
func splitLinks(doc string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	for _, r := range doc {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			current.WriteRune(r)
		case r == ',' && !inQuotes:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func parseLink(entry string) (Link, bool) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return Link{}, false
	}

	segments := splitParams(entry)
	target := strings.TrimSpace(segments[0])
	if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
		return Link{}, false
	}

	link := Link{
		Path:       strings.Trim(strings.TrimSuffix(strings.TrimPrefix(target, "<"), ">"), "/"),
		Attributes: make(map[string]string),
	}
	for _, param := range segments[1:] {
		key, value, found := strings.Cut(param, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if !found {
			link.Attributes[key] = ""
			continue
		}
		link.Attributes[key] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	return link, true
}

// splitParams splits an entry on top-level semicolons.
func splitParams(entry string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	for _, r := range entry {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			current.WriteRune(r)
		case r == ';' && !inQuotes:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	parts = append(parts, current.String())
	return parts
}
