package parser

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var ErrEmptyRuleSet = errors.New("empty rule set")

// Rule is one candidate location of a field value. An empty Attr means
// the element text is used.
type Rule struct {
	Selector string `yaml:"selector"`
	Attr     string `yaml:"attr,omitempty"`
}

// UnmarshalYAML accepts either a bare selector string or a selector/attr mapping.
func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r.Selector = node.Value
		r.Attr = ""
		return nil
	}

	type plain Rule
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = Rule(p)
	return nil
}

// RuleSet is an ordered list of rules, evaluated first to last.
type RuleSet []Rule

func Selectors(selectors ...string) RuleSet {
	rs := make(RuleSet, 0, len(selectors))
	for _, s := range selectors {
		rs = append(rs, Rule{Selector: s})
	}
	return rs
}

func Attrs(attr string, selectors ...string) RuleSet {
	rs := make(RuleSet, 0, len(selectors))
	for _, s := range selectors {
		rs = append(rs, Rule{Selector: s, Attr: attr})
	}
	return rs
}

type PriceRule struct {
	Tags         []string `yaml:"tags"`
	ClassPattern string   `yaml:"class_pattern"`
	Currency     string   `yaml:"currency"`
}

type ImageRule struct {
	Selector   string   `yaml:"selector"`
	Attrs      []string `yaml:"attrs"`
	ExtPattern string   `yaml:"ext_pattern"`
	Hosts      []string `yaml:"hosts"`
	MaxImages  int      `yaml:"max_images"`
}

type CharacteristicsRule struct {
	Section string `yaml:"section"`
	Row     string `yaml:"row"`
	Label   string `yaml:"label"`
	Value   string `yaml:"value"`
}

// Rules holds the selector lists for every product field.
type Rules struct {
	Name            RuleSet             `yaml:"name"`
	Price           PriceRule           `yaml:"price"`
	Rating          RuleSet             `yaml:"rating"`
	Reviews         RuleSet             `yaml:"reviews"`
	Description     RuleSet             `yaml:"description"`
	Images          ImageRule           `yaml:"images"`
	Characteristics CharacteristicsRule `yaml:"characteristics"`
	SellerName      RuleSet             `yaml:"seller_name"`
	SellerLink      RuleSet             `yaml:"seller_link"`
	Origin          string              `yaml:"origin"`
}

func DefaultRules() *Rules {
	return &Rules{
		Name: Selectors(
			"h1",
			".productHeader--G5fu8",
			"[data-link*='text']",
			"h1.product-page__header",
		),
		Price: PriceRule{
			Tags:         []string{"span", "div", "ins"},
			ClassPattern: `price|Price`,
			Currency:     "₽",
		},
		Rating: Selectors(
			".product-page__reviews-icon",
			".address-rate-mini",
			".sellerRatingWrap--qfxW5 span",
			"[class*='rating']",
		),
		Reviews: Selectors(
			".product-page__reviews-text",
			"[class*='reviews-count']",
			"[class*='review-count']",
		),
		Description: Selectors(
			"p.collapsable__text",
			".product-page__description",
			".description__text",
		),
		Images: ImageRule{
			Selector:   "img",
			Attrs:      []string{"src", "data-src"},
			ExtPattern: `\.(webp|jpg|png|jpeg)`,
			Hosts:      []string{"images.wbstatic.net", "basket-", "geobasket"},
			MaxImages:  10,
		},
		Characteristics: CharacteristicsRule{
			Section: "div.product-params",
			Row:     "div.product-params__row",
			Label:   "span.product-params__label",
			Value:   "span.product-params__value",
		},
		SellerName: Selectors(
			".sellerAndBrandItemName--RV73r",
			".seller-info__name",
			"[class*='seller-name']",
		),
		SellerLink: Attrs("href",
			"a.seller-info__name",
			"[class*='seller-link']",
		),
		Origin: "https://www.wildberries.ru",
	}
}

// LoadRules reads a YAML rules file on top of DefaultRules. Keys missing
// from the file keep their default lists.
func LoadRules(path string) (*Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules YAML: %w", err)
	}

	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *Rules) Validate() error {
	sets := map[string]RuleSet{
		"name":        r.Name,
		"rating":      r.Rating,
		"reviews":     r.Reviews,
		"description": r.Description,
		"seller_name": r.SellerName,
		"seller_link": r.SellerLink,
	}
	for field, set := range sets {
		if len(set) == 0 {
			return fmt.Errorf("%s: %w", field, ErrEmptyRuleSet)
		}
		for i, rule := range set {
			if rule.Selector == "" {
				return fmt.Errorf("%s rule %d has no selector", field, i)
			}
		}
	}

	if len(r.Price.Tags) == 0 || r.Price.Currency == "" {
		return fmt.Errorf("price: tags and currency are required")
	}
	if _, err := regexp.Compile(r.Price.ClassPattern); err != nil {
		return fmt.Errorf("price: invalid class pattern: %w", err)
	}
	if _, err := regexp.Compile(r.Images.ExtPattern); err != nil {
		return fmt.Errorf("images: invalid extension pattern: %w", err)
	}
	if r.Images.MaxImages < 1 {
		return fmt.Errorf("images: max_images must be at least 1")
	}
	if r.Characteristics.Section == "" || r.Characteristics.Row == "" ||
		r.Characteristics.Label == "" || r.Characteristics.Value == "" {
		return fmt.Errorf("characteristics: section, row, label and value selectors are required")
	}

	return nil
}
