// Package quotes provides the fixed stock quote catalog and simulated price history.
package quotes

import (
	"fmt"
	"os"
	"sort"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Catalog is an immutable QuoteSource keyed by upper-case symbol
type Catalog struct {
	quotes map[string]domain.Quote
	sorted []domain.Quote
}

// defaultQuotes is the built-in catalog used when no file is configured
var defaultQuotes = []struct {
	symbol, name, price, change string
}{
	{"AAPL", "Apple Inc.", "182.45", "2.35"},
	{"GOOGL", "Alphabet Inc.", "140.82", "-1.15"},
	{"MSFT", "Microsoft Corp.", "380.61", "3.22"},
	{"AMZN", "Amazon.com Inc.", "181.92", "-0.88"},
	{"TSLA", "Tesla Inc.", "238.45", "5.67"},
	{"META", "Meta Platforms", "485.72", "8.34"},
	{"NFLX", "Netflix Inc.", "247.18", "-2.10"},
	{"NVIDIA", "NVIDIA Corp.", "875.29", "12.45"},
}

// NewCatalog builds a catalog from quotes. Symbols must be unique and prices positive.
func NewCatalog(quotes []domain.Quote) (*Catalog, error) {
	c := &Catalog{quotes: make(map[string]domain.Quote, len(quotes))}

	for _, q := range quotes {
		q.Symbol = domain.NormalizeSymbol(q.Symbol)
		if q.Symbol == "" {
			return nil, fmt.Errorf("quote with empty symbol")
		}
		if !q.Price.IsPositive() {
			return nil, fmt.Errorf("quote %s has non-positive price %s", q.Symbol, q.Price)
		}
		if _, dup := c.quotes[q.Symbol]; dup {
			return nil, fmt.Errorf("duplicate quote for %s", q.Symbol)
		}
		c.quotes[q.Symbol] = q
		c.sorted = append(c.sorted, q)
	}

	sort.Slice(c.sorted, func(i, j int) bool { return c.sorted[i].Symbol < c.sorted[j].Symbol })
	return c, nil
}

// NewDefaultCatalog returns the built-in eight-symbol catalog
func NewDefaultCatalog() *Catalog {
	quotes := make([]domain.Quote, 0, len(defaultQuotes))
	for _, q := range defaultQuotes {
		quotes = append(quotes, domain.Quote{
			Symbol: q.symbol,
			Name:   q.name,
			Price:  decimal.RequireFromString(q.price),
			Change: decimal.RequireFromString(q.change),
		})
	}

	c, err := NewCatalog(quotes)
	if err != nil {
		panic(err) // the built-in table is static
	}
	return c
}

// catalogFile is the YAML layout accepted by LoadCatalog
type catalogFile struct {
	Quotes []struct {
		Symbol string `yaml:"symbol"`
		Name   string `yaml:"name"`
		Price  string `yaml:"price"`
		Change string `yaml:"change"`
	} `yaml:"quotes"`
}

// LoadCatalog reads a catalog from a YAML file of the form
//
//	quotes:
//	  - symbol: AAPL
//	    name: Apple Inc.
//	    price: 182.45
//	    change: 2.35
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quotes file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse quotes file %s: %w", path, err)
	}
	if len(file.Quotes) == 0 {
		return nil, fmt.Errorf("quotes file %s contains no quotes", path)
	}

	quotes := make([]domain.Quote, 0, len(file.Quotes))
	for _, q := range file.Quotes {
		price, err := decimal.NewFromString(q.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid price for %s: %w", q.Symbol, err)
		}
		change := decimal.Zero
		if q.Change != "" {
			if change, err = decimal.NewFromString(q.Change); err != nil {
				return nil, fmt.Errorf("invalid change for %s: %w", q.Symbol, err)
			}
		}
		quotes = append(quotes, domain.Quote{Symbol: q.Symbol, Name: q.Name, Price: price, Change: change})
	}

	return NewCatalog(quotes)
}

// Quote returns the quote for symbol (case-insensitive)
func (c *Catalog) Quote(symbol string) (domain.Quote, bool) {
	q, ok := c.quotes[domain.NormalizeSymbol(symbol)]
	return q, ok
}

// All returns every quote sorted by symbol
func (c *Catalog) All() []domain.Quote {
	out := make([]domain.Quote, len(c.sorted))
	copy(out, c.sorted)
	return out
}

// Symbols returns every symbol sorted
func (c *Catalog) Symbols() []string {
	out := make([]string, len(c.sorted))
	for i, q := range c.sorted {
		out[i] = q.Symbol
	}
	return out
}
