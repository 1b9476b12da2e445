// Package pricing converts catalogue prices out of USD and formats them for display.
package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// BaseCurrency is the currency catalogue prices are quoted in.
const BaseCurrency = "USD"

// ErrUnsupportedCurrency is returned for currency codes without a conversion rate.
var ErrUnsupportedCurrency = errors.New("pricing: unsupported currency")

// DefaultRates are units of each currency per USD.
var DefaultRates = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"EUR": decimal.RequireFromString("0.91"),
	"GBP": decimal.RequireFromString("0.79"),
	"JPY": decimal.RequireFromString("147.55"),
	"IDR": decimal.NewFromInt(15600),
}

// Converter applies static rates and renders amounts with locale-aware symbols and grouping.
type Converter struct {
	rates map[string]decimal.Decimal
	tag   language.Tag
}

// Option customises a Converter.
type Option func(*Converter)

// WithRates replaces the conversion table. Codes are upper-cased.
func WithRates(rates map[string]decimal.Decimal) Option {
	return func(c *Converter) {
		c.rates = make(map[string]decimal.Decimal, len(rates))
		for code, rate := range rates {
			c.rates[strings.ToUpper(strings.TrimSpace(code))] = rate
		}
	}
}

// WithLocale sets the locale used for symbols and digit grouping.
func WithLocale(tag language.Tag) Option {
	return func(c *Converter) {
		c.tag = tag
	}
}

// NewConverter returns a Converter using DefaultRates and English formatting.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{tag: language.English}
	WithRates(DefaultRates)(c)
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Currencies lists the supported codes in alphabetical order.
func (c *Converter) Currencies() []string {
	codes := make([]string, 0, len(c.rates))
	for code := range c.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Supports reports whether code has a rate.
func (c *Converter) Supports(code string) bool {
	_, ok := c.rates[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// Convert turns a USD amount into code, rounded to the currency's standard scale.
func (c *Converter) Convert(amount decimal.Decimal, code string) (decimal.Decimal, error) {
	unit, rate, err := c.lookup(code)
	if err != nil {
		return decimal.Zero, err
	}
	scale, _ := currency.Standard.Rounding(unit)
	return amount.Mul(rate).Round(int32(scale)), nil
}

// Format converts a USD amount into code and renders it, e.g. "$1,234.50" or "€12.74".
func (c *Converter) Format(amount decimal.Decimal, code string) (string, error) {
	unit, rate, err := c.lookup(code)
	if err != nil {
		return "", err
	}
	scale, _ := currency.Standard.Rounding(unit)
	converted := amount.Mul(rate).Round(int32(scale))

	printer := message.NewPrinter(c.tag)
	symbol := printer.Sprint(currency.Symbol(unit))
	value, _ := converted.Abs().Float64()
	digits := printer.Sprint(number.Decimal(value, number.Scale(scale)))

	sign := ""
	if converted.IsNegative() {
		sign = "-"
	}
	return sign + symbol + digits, nil
}

func (c *Converter) lookup(code string) (currency.Unit, decimal.Decimal, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	rate, ok := c.rates[normalized]
	if !ok {
		return currency.Unit{}, decimal.Zero, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}
	unit, err := currency.ParseISO(normalized)
	if err != nil {
		return currency.Unit{}, decimal.Zero, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}
	return unit, rate, nil
}
