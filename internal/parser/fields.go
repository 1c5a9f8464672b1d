package parser

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	ratingPattern  = regexp.MustCompile(`[\d.]+`)
	digitsPattern  = regexp.MustCompile(`\d+`)
	articulPattern = regexp.MustCompile(`/(\d+)/detail`)
)

func (e *Extractor) name(doc *goquery.Selection) Optional[string] {
	return FirstText(doc, e.rules.Name)
}

// price scans the configured tags in document order and takes the first one
// whose class looks like a price and whose text carries the currency sign
// and a digit. The value is the text before the first currency sign; an
// empty value leaves the field to its default.
func (e *Extractor) price(doc *goquery.Selection) Optional[string] {
	currency := e.rules.Price.Currency
	result := None[string]()

	doc.Find(strings.Join(e.rules.Price.Tags, ", ")).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if !e.priceClass.MatchString(class) {
			return true
		}

		text := cleanText(s.Text())
		if !strings.Contains(text, currency) || !strings.ContainsAny(text, "0123456789") {
			return true
		}

		e.logger.Debug("price candidate", "text", text)

		// the first qualifying element decides, even when nothing precedes the sign
		first, _, _ := strings.Cut(text, currency)
		first = strings.TrimSpace(first)
		if first != "" {
			e.logger.Debug("price selected", "price", first)
			result = Some(first)
		}
		return false
	})

	return result
}

func (e *Extractor) rating(doc *goquery.Selection) Optional[float64] {
	return FirstMatch(doc, e.rules.Rating, parseRating)
}

func parseRating(s string) (float64, bool) {
	m := ratingPattern.FindString(strings.ReplaceAll(s, ",", "."))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (e *Extractor) reviews(doc *goquery.Selection) Optional[int] {
	return FirstMatch(doc, e.rules.Reviews, parseFirstInt)
}

func parseFirstInt(s string) (int, bool) {
	m := digitsPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (e *Extractor) description(doc *goquery.Selection) Optional[string] {
	return FirstText(doc, e.rules.Description)
}

// images collects absolute image URLs from whitelisted hosts in document
// order, without duplicates, up to the configured limit.
func (e *Extractor) images(doc *goquery.Selection) Optional[[]string] {
	rule := e.rules.Images
	var urls []string
	seen := make(map[string]struct{})

	doc.Find(rule.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := e.imageSource(s)
		if src == "" || !strings.HasPrefix(src, "http") {
			return true
		}
		if _, dup := seen[src]; dup {
			return true
		}
		if !containsAny(src, rule.Hosts) {
			return true
		}

		seen[src] = struct{}{}
		urls = append(urls, src)
		return len(urls) < rule.MaxImages
	})

	if len(urls) == 0 {
		return None[[]string]()
	}
	return Some(urls)
}

func (e *Extractor) imageSource(s *goquery.Selection) string {
	for _, attr := range e.rules.Images.Attrs {
		v, ok := s.Attr(attr)
		v = strings.TrimSpace(v)
		if ok && v != "" && e.imageExt.MatchString(v) {
			return v
		}
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type characteristic struct {
	label string
	value string
}

// characteristics walks the label/value rows of the specification block.
// A repeated label keeps its first position and takes the last value.
func (e *Extractor) characteristics(doc *goquery.Selection) Optional[string] {
	rule := e.rules.Characteristics
	section := doc.Find(rule.Section).First()
	if section.Length() == 0 {
		return None[string]()
	}

	var pairs []characteristic
	index := make(map[string]int)

	section.Find(rule.Row).Each(func(_ int, row *goquery.Selection) {
		label := row.Find(rule.Label).First()
		value := row.Find(rule.Value).First()
		if label.Length() == 0 || value.Length() == 0 {
			return
		}

		key := cleanText(label.Text())
		val := cleanText(value.Text())
		if i, ok := index[key]; ok {
			pairs[i].value = val
			return
		}
		index[key] = len(pairs)
		pairs = append(pairs, characteristic{label: key, value: val})
	})

	if len(pairs) == 0 {
		return None[string]()
	}
	return Some(marshalCharacteristics(pairs))
}

// marshalCharacteristics renders pairs as a JSON object in row order with
// ", " and ": " separators and non-ASCII text left unescaped.
func marshalCharacteristics(pairs []characteristic) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(jsonString(p.label))
		b.WriteString(": ")
		b.WriteString(jsonString(p.value))
	}
	b.WriteByte('}')
	return b.String()
}

func jsonString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func (e *Extractor) sellerName(doc *goquery.Selection) Optional[string] {
	return FirstText(doc, e.rules.SellerName)
}

func (e *Extractor) sellerURL(doc *goquery.Selection) Optional[string] {
	return FirstMatch(doc, e.rules.SellerLink, func(href string) (string, bool) {
		return e.absolute(href), true
	})
}

func (e *Extractor) absolute(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return strings.TrimSuffix(e.rules.Origin, "/") + href
}

// ArticulFromURL returns the numeric product id from a detail page URL.
func ArticulFromURL(url string) Optional[string] {
	m := articulPattern.FindStringSubmatch(url)
	if len(m) < 2 {
		return None[string]()
	}
	return Some(m[1])
}
