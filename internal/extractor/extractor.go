// Package extractor turns one captured content block into a Record. It is a
// pure heuristic over the block's text and HTML: every structural lookup is
// individually best-effort and a failed lookup leaves the field empty, never
// aborts the block.
package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/snapit/price-scraper/internal/adapter"
	"github.com/snapit/price-scraper/internal/models"
)

const (
	currencyMark = "₹"
	actionLabel  = "ADD"
)

// unitPattern matches an amount followed by one of the fixed quantity units
// (kg, g, ml, l, pcs, pack). Bare unit letters inside words must not match.
var unitPattern = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:kg|g|ml|l|pcs|pack)\b`)

// urlAttrOrder is the probe order for link-ish data attributes.
var urlAttrOrder = []string{"data-pf", "data-href", "data-url", "data-link"}

type Extractor struct {
	platform models.Platform
	baseURL  string
	location string

	// nameSelector matches the platform's heading-like card element.
	nameSelector string

	// quantitySelector, when set, is a dedicated quantity element probed
	// before the unit-token heuristics.
	quantitySelector string

	// requirePrice drops price-less blocks as loading skeletons.
	requirePrice bool

	// extractImage pulls an image URL from a descendant image element.
	extractImage bool

	// slugStart/slugEnd bound the product slug inside the card URL, used to
	// re-derive a name when the heuristics come up empty or degenerate.
	slugStart, slugEnd string

	// resolveURL enables the URL candidate chain; synthesizeSearch adds the
	// final search-URL fallback when the chain resolves nothing.
	resolveURL       bool
	synthesizeSearch bool
}

// ForPlatform returns the extractor tuned to one storefront's markup.
func ForPlatform(p models.Platform) *Extractor {
	switch p {
	case models.PlatformBlinkit:
		return &Extractor{
			platform:         p,
			baseURL:          "https://www.blinkit.com",
			nameSelector:     "h3, h4, p",
			requirePrice:     true,
			resolveURL:       true,
			synthesizeSearch: true,
		}
	case models.PlatformInstamart:
		return &Extractor{
			platform:     p,
			baseURL:      "https://www.swiggy.com",
			nameSelector: "h3, h4, p",
			location:     "Bangalore",
		}
	default:
		return &Extractor{
			platform:         models.PlatformZepto,
			baseURL:          "https://www.zeptonow.com",
			nameSelector:     "h5",
			quantitySelector: `span[data-testid="product-card-quantity"]`,
			requirePrice:     true,
			extractImage:     true,
			slugStart:        "/pn/",
			slugEnd:          "/pvid/",
			resolveURL:       true,
		}
	}
}

// Extract builds a Record from one block. The second return value is false
// when the block is dropped as a non-product.
func (e *Extractor) Extract(block adapter.Block, term string) (models.Record, bool) {
	doc := parseBlock(block.HTML)

	var name, price, quantity string
	if doc != nil {
		name = strings.TrimSpace(doc.Find(e.nameSelector).First().Text())
		price = findByOwnText(doc, func(s string) bool {
			return strings.Contains(s, currencyMark)
		})
		if e.quantitySelector != "" {
			quantity = strings.TrimSpace(doc.Find(e.quantitySelector).First().Text())
		}
		if quantity == "" {
			quantity = findByOwnText(doc, hasUnitToken)
		}
	}

	rawText := strings.TrimSpace(block.Text)
	lines := splitLines(rawText)

	if price == "" {
		price = firstLine(lines, func(l string) bool { return strings.Contains(l, currencyMark) })
	}
	if quantity == "" {
		quantity = firstLine(lines, hasUnitToken)
	}
	if name == "" && len(lines) > 0 {
		name = longestCandidateLine(lines)
	}

	href := e.productURL(block, doc, name, term)

	// A unit line mistaken for the title is a common false positive; in
	// that case, and when no name surfaced at all, the URL slug is the
	// better source.
	if name == "" || (quantity != "" && name == quantity) {
		if slug := e.slugName(href); slug != "" {
			name = slug
		}
	}

	if e.requirePrice && price == "" {
		return models.Record{}, false
	}
	if strings.EqualFold(strings.TrimSpace(name), actionLabel) {
		return models.Record{}, false
	}

	rec := models.Record{
		SearchTerm:  term,
		ProductName: name,
		Price:       price,
		Quantity:    quantity,
		Platform:    e.platform,
		Location:    e.location,
		RawText:     rawText,
	}
	if href != "" {
		rec.URL = &href
	}
	if e.extractImage && doc != nil {
		if img := extractImageURL(doc); img != "" {
			rec.ImageURL = &img
		}
	}
	return rec, true
}

// productURL resolves the card's product link through the candidate chain:
// the card's own href, its data-* attributes, the same attributes on up to
// three ancestor levels, any descendant anchor, and finally a synthesized
// search URL.
func (e *Extractor) productURL(block adapter.Block, doc *goquery.Document, name, term string) string {
	if !e.resolveURL {
		return ""
	}

	var candidates []string
	if v := block.Attrs["href"]; v != "" {
		candidates = append(candidates, v)
	}
	for _, attr := range urlAttrOrder {
		if v := block.Attrs[attr]; v != "" {
			candidates = append(candidates, v)
		}
	}
	for _, ancestor := range block.Ancestors {
		for _, attr := range urlAttrOrder {
			if v := ancestor[attr]; v != "" {
				candidates = append(candidates, v)
			}
		}
	}
	if doc != nil {
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr("href"); ok && v != "" {
				candidates = append(candidates, v)
			}
		})
	}

	for _, candidate := range candidates {
		if strings.HasPrefix(candidate, "http") {
			return candidate
		}
		if strings.HasPrefix(candidate, "/") {
			return e.baseURL + candidate
		}
	}

	if e.synthesizeSearch {
		key := name
		if key == "" {
			key = term
		}
		if key != "" {
			return fmt.Sprintf("%s/s/?q=%s", e.baseURL, url.QueryEscape(key))
		}
	}
	return ""
}

// slugName derives a display name from the product-slug segment of the URL.
func (e *Extractor) slugName(href string) string {
	if e.slugStart == "" || href == "" {
		return ""
	}
	_, after, found := strings.Cut(href, e.slugStart)
	if !found {
		return ""
	}
	if e.slugEnd != "" {
		after, _, _ = strings.Cut(after, e.slugEnd)
	}
	return strings.TrimSpace(strings.ReplaceAll(after, "-", " "))
}

// extractImageURL pulls the best image URL from the first descendant image,
// probing attributes in priority order. A srcset-style value keeps only its
// first URL token.
func extractImageURL(doc *goquery.Document) string {
	img := doc.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"src", "data-src", "data-srcset", "srcset"} {
		val, ok := img.Attr(attr)
		if !ok || val == "" {
			continue
		}
		if strings.Contains(val, " ") && strings.Contains(val, "http") {
			return strings.Fields(val)[0]
		}
		return val
	}
	return ""
}

func parseBlock(html string) *goquery.Document {
	if strings.TrimSpace(html) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	return doc
}

// findByOwnText returns the full text of the first element whose direct
// text content matches, in document order.
func findByOwnText(doc *goquery.Document, match func(string) bool) string {
	var out string
	doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if match(ownText(s)) {
			out = strings.TrimSpace(s.Text())
			return false
		}
		return true
	})
	return out
}

// ownText is the element's direct text nodes, excluding descendants.
func ownText(s *goquery.Selection) string {
	return s.Contents().Not("*").Text()
}

func hasUnitToken(s string) bool {
	if unitPattern.MatchString(s) {
		return true
	}
	// "pack of 4" and similar count-style quantities carry no leading amount.
	for _, word := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if word == "pack" || word == "pcs" {
			return true
		}
	}
	return false
}

func splitLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func firstLine(lines []string, match func(string) bool) string {
	for _, line := range lines {
		if match(line) {
			return line
		}
	}
	return ""
}

// longestCandidateLine picks the longest line that is neither the action
// label nor currency-marked, ties broken by first occurrence; with no
// candidates the first line wins.
func longestCandidateLine(lines []string) string {
	best := ""
	for _, line := range lines {
		if strings.ToUpper(line) == actionLabel || strings.Contains(line, currencyMark) {
			continue
		}
		if len(line) > len(best) {
			best = line
		}
	}
	if best == "" {
		return lines[0]
	}
	return best
}
