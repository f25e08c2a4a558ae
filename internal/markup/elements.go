// internal/markup/elements.go
package markup

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"nrcms/internal/content"
)

// InfoText is the attribution rendered for the NKR-CMS-INFO tag.
const InfoText = `This website was automatically generated with <a href="https://github.com/naresh97/nr-cms">NR-CMS.</a>`

const dateTimeLayout = "2006-01-02 15:04:05"

var (
	errMissingPayload = errors.New("missing payload")
	errNoLinks        = errors.New("no valid links")
)

// The element parsers below take the optional payload of a tag (nil when
// the tag had no '|') and return the element or the reason it was dropped.

func parseText(payload *string, wrap func(string) content.Element) (content.Element, error) {
	if payload == nil {
		return nil, errMissingPayload
	}
	return wrap(*payload), nil
}

func parseTitle(payload *string) (content.Element, error) {
	return parseText(payload, func(s string) content.Element { return content.Title{Text: s} })
}

func parseParagraph(payload *string) (content.Element, error) {
	return parseText(payload, func(s string) content.Element { return content.Paragraph{Text: s} })
}

func parseName(payload *string) (content.Element, error) {
	return parseText(payload, func(s string) content.Element { return content.Name{Text: s} })
}

func parseCode(payload *string) (content.Element, error) {
	return parseText(payload, func(s string) content.Element { return content.Code{Text: s} })
}

func parseNavbar(payload *string) (content.Element, error) {
	if payload == nil {
		return nil, errMissingPayload
	}
	pages := []string{}
	if *payload != "" {
		pages = strings.Split(*payload, ",")
	}
	return content.Navbar{Pages: pages}, nil
}

// parseLinks keeps only "Kind:value" items with a known kind. Later items
// overwrite earlier ones with the same kind.
func parseLinks(payload *string) (content.Element, error) {
	if payload == nil {
		return nil, errMissingPayload
	}
	links := make(map[content.LinkKind]string)
	for _, item := range strings.Split(*payload, ",") {
		pair := strings.Split(item, ":")
		if len(pair) != 2 {
			continue
		}
		kind, ok := content.ParseLinkKind(pair[0])
		if !ok {
			continue
		}
		links[kind] = pair[1]
	}
	if len(links) == 0 {
		return nil, errNoLinks
	}
	return content.Links{Links: links}, nil
}

func parseInfo(_ *string) (content.Element, error) {
	return content.Info{Text: InfoText}, nil
}

// parseDate reads "YYYY-MM-DD" or "YYYY-MM-DD HH:MM:SS" in loc. A date
// without a time means midnight.
func parseDate(payload *string, loc *time.Location) (content.Element, error) {
	if payload == nil {
		return nil, errMissingPayload
	}
	text := strings.TrimSpace(*payload)
	if !strings.Contains(text, ":") {
		text += " 00:00:00"
	}
	t, err := time.ParseInLocation(dateTimeLayout, text, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", *payload, err)
	}
	return content.Date{Time: t.UTC()}, nil
}

// parseImageArgs splits "relpath[,size]". A size that is not a number is
// ignored.
func parseImageArgs(payload *string) (string, *int, error) {
	if payload == nil {
		return "", nil, errMissingPayload
	}
	args := strings.Split(*payload, ",")
	url := args[0]
	if url == "" {
		return "", nil, errors.New("empty image path")
	}
	if len(args) < 2 {
		return url, nil, nil
	}
	n, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return url, nil, nil
	}
	size := int(n)
	return url, &size, nil
}
