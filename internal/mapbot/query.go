package mapbot

import (
	"context"
	"strconv"
	"strings"
)

// Indicators understood by the map backend
const (
	IndicatorGDP        = "GDP"
	IndicatorPopulation = "Population"
)

// DefaultCountry and DefaultYear are used when a query names neither
const (
	DefaultCountry = "India"
	DefaultYear    = 2022
)

// Countries lists the countries the map backend has data for, in the order
// queries are matched against them.
var Countries = []string{"India", "China", "USA", "Germany"}

// MapRequest is the body posted to the map endpoint
type MapRequest struct {
	Indicator string `json:"indicator"`
	Country   string `json:"country"`
	Year      int    `json:"year"`
}

// Interpreter turns a free-form question into a map request
type Interpreter interface {
	Interpret(ctx context.Context, query string) (MapRequest, error)
}

// KeywordInterpreter matches indicator, country and year by plain keywords
type KeywordInterpreter struct{}

// Interpret implements Interpreter
func (KeywordInterpreter) Interpret(_ context.Context, query string) (MapRequest, error) {
	return ParseQuery(query), nil
}

// ParseQuery extracts a map request from a query. Matching is case sensitive:
// "GDP" anywhere selects GDP, otherwise Population; the first known country
// contained in the query wins; the first all-digit word is the year.
func ParseQuery(query string) MapRequest {
	req := MapRequest{
		Indicator: IndicatorPopulation,
		Country:   DefaultCountry,
		Year:      DefaultYear,
	}

	if strings.Contains(query, IndicatorGDP) {
		req.Indicator = IndicatorGDP
	}

	for _, country := range Countries {
		if strings.Contains(query, country) {
			req.Country = country
			break
		}
	}

	for _, word := range strings.Fields(query) {
		if !isDigits(word) {
			continue
		}
		if year, err := strconv.Atoi(word); err == nil {
			req.Year = year
			break
		}
	}

	return req
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func knownCountry(name string) bool {
	for _, country := range Countries {
		if country == name {
			return true
		}
	}
	return false
}
