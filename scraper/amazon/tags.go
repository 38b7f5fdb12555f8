package amazon

import (
	"strings"
	"unicode"

	"github.com/samber/lo"
)

// Uncategorized is the tag of a listing with neither a query nor a recognised title.
const Uncategorized = "uncategorized"

type tagCategory struct {
	// queries are search terms that select the category outright
	queries []string
	tags    []string

	// vocabulary is matched word-wise against the title
	vocabulary []string
}

var tagCategories = []tagCategory{
	{
		queries: []string{"mobile", "mobiles", "phone", "phones", "smartphone", "smartphones"},
		tags:    []string{"mobile", "smartphone", "electronics"},
		vocabulary: []string{
			"phone", "smartphone", "mobile", "iphone", "samsung", "galaxy", "redmi", "xiaomi",
			"oneplus", "realme", "vivo", "oppo", "poco", "pixel", "motorola", "nokia", "5g",
		},
	},
	{
		queries: []string{"laptop", "laptops", "notebook", "notebooks"},
		tags:    []string{"laptop", "computer", "electronics"},
		vocabulary: []string{
			"laptop", "notebook", "macbook", "thinkpad", "chromebook", "ultrabook", "ideapad",
			"vivobook", "zenbook", "inspiron", "pavilion", "aspire",
		},
	},
	{
		queries:    []string{"sofa", "sofas", "couch", "couches"},
		tags:       []string{"sofa", "furniture", "home"},
		vocabulary: []string{"sofa", "couch", "recliner", "futon", "loveseat", "sectional", "settee", "divan"},
	},
	{
		queries:    []string{"shirt", "shirts", "tshirt", "tshirts", "t-shirt", "t-shirts"},
		tags:       []string{"shirt", "clothing", "fashion"},
		vocabulary: []string{"shirt", "t-shirt", "tshirt", "polo", "tee", "kurta", "blouse", "flannel"},
	},
	{
		queries:    []string{"toy", "toys"},
		tags:       []string{"toys", "kids"},
		vocabulary: []string{"toy", "toys", "lego", "puzzle", "doll", "plush", "teddy", "action figure", "building blocks"},
	},
}

// Classify derives the tag set of a listing from its search query and title.
// An exact query match wins, then title vocabulary, then the lower-cased query itself.
// The result is never empty.
func Classify(query, title string) []string {
	q := strings.ToLower(strings.TrimSpace(query))

	if c, ok := lo.Find(tagCategories, func(c tagCategory) bool {
		return lo.Contains(c.queries, q)
	}); ok {
		return append([]string(nil), c.tags...)
	}

	words := titleWords(title)
	if c, ok := lo.Find(tagCategories, func(c tagCategory) bool {
		return lo.ContainsBy(c.vocabulary, func(term string) bool {
			return strings.Contains(words, " "+term+" ")
		})
	}); ok {
		return append([]string(nil), c.tags...)
	}

	if q == "" {
		return []string{Uncategorized}
	}
	return []string{q}
}

// titleWords lower-cases the title and pads each word with single spaces
// so vocabulary terms only match on word boundaries.
func titleWords(title string) string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	if len(fields) == 0 {
		return ""
	}
	return " " + strings.Join(fields, " ") + " "
}
