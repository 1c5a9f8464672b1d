package export

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/maltedev/wb-catalog-scraper/internal/models"
)

var firstDigits = regexp.MustCompile(`\d+`)

// Filter keeps products rated at least MinRating and priced at most MaxPrice.
type Filter struct {
	MinRating float64
	MaxPrice  int
}

func DefaultFilter() Filter {
	return Filter{MinRating: 4.5, MaxPrice: 10000}
}

// Apply returns the matching products in their original order.
func (f Filter) Apply(products []*models.Product) []*models.Product {
	var filtered []*models.Product

	for _, p := range products {
		if f.Matches(p) {
			filtered = append(filtered, p)
		}
	}

	return filtered
}

func (f Filter) Matches(p *models.Product) bool {
	return p.Rating >= f.MinRating && NumericPrice(p.Price) <= f.MaxPrice
}

// NumericPrice returns the first run of digits of a price string once all
// whitespace (thousands separators) is removed, or 0 when there is none.
// Runs too long for an int saturate at math.MaxInt.
func NumericPrice(price string) int {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, price)

	m := firstDigits.FindString(compact)
	if m == "" {
		return 0
	}

	n, err := strconv.Atoi(m)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt
	}
	if err != nil {
		return 0
	}
	return n
}
