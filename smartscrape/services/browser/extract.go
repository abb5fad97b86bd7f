// smartscrape/services/browser/extract.go
package browser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"smartscrape/smartscrape/utils/types"
)

const (
	// maxHTMLChars caps the serialized markup kept on a ScrapingResult.
	maxHTMLChars = 50_000
	// descriptionChars caps the per-item description text.
	descriptionChars = 150
)

// headingSelector finds the title-like element inside a result container.
const headingSelector = `h1, h2, h3, h4, .title, [class*="title"]`

// ratingSelector finds a rating-like element inside a result container.
const ratingSelector = `[class*="rating"], [class*="star"]`

// ExtractItems walks the containers matching sel.Primary in the captured
// markup, up to max of them, and pulls a title, price (sel.Secondary),
// link, description and rating out of each. Fields that cannot be resolved
// carry the NotFound sentinel instead of failing the item. Invalid
// selectors are an error, mirroring querySelectorAll throwing in-page.
func ExtractItems(markup string, sel types.Selectors, pageURL string, max int) ([]types.RawItem, error) {
	if _, err := cascadia.Parse(sel.Primary); err != nil {
		return nil, fmt.Errorf("primary selector %q: %w", sel.Primary, err)
	}
	if sel.Secondary != "" {
		if _, err := cascadia.Parse(sel.Secondary); err != nil {
			return nil, fmt.Errorf("secondary selector %q: %w", sel.Secondary, err)
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	base, _ := url.Parse(pageURL)

	items := []types.RawItem{}
	doc.Find(sel.Primary).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= max {
			return false
		}

		item := types.RawItem{
			Title:       types.NotFound,
			Price:       types.NotFound,
			Link:        types.NotFound,
			Description: types.NotFound,
			Rating:      types.NotFound,
		}

		if t := cleanText(s.Find(headingSelector).First().Text(), 0); t != "" {
			item.Title = t
		}
		if sel.Secondary != "" {
			if p := cleanText(s.Find(sel.Secondary).First().Text(), 0); p != "" {
				item.Price = p
			}
		}
		if href := firstLink(s); href != "" {
			item.Link = absolutize(base, href)
		}
		if d := cleanText(s.Text(), descriptionChars); d != "" {
			item.Description = d
		}
		if r := cleanText(s.Find(ratingSelector).First().Text(), 0); r != "" {
			item.Rating = r
		}

		items = append(items, item)
		return true
	})

	return items, nil
}

// firstLink returns the container's own href when the container is an
// anchor, otherwise the href of its first anchor descendant.
func firstLink(s *goquery.Selection) string {
	if s.Is("a") {
		if href, ok := s.Attr("href"); ok {
			return href
		}
	}
	href, _ := s.Find("a[href]").First().Attr("href")
	return href
}

func absolutize(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// cleanText collapses whitespace and optionally truncates to max runes.
func cleanText(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if max > 0 {
		if runes := []rune(s); len(runes) > max {
			s = string(runes[:max])
		}
	}
	return s
}
