package services

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"churninsight/dashboard/internal/models"
)

var numericFilters = map[string]bool{
	models.FilterMinAge:         true,
	models.FilterMaxAge:         true,
	models.FilterMinProbability: true,
	models.FilterMaxProbability: true,
}

var boolFilters = map[string]bool{
	models.FilterIsHeavyUser:      true,
	models.FilterOfflineListening: true,
}

// NormalizeFilters returns a copy of f holding every default key with each
// value coerced to its type. Applying it twice gives the same result.
func NormalizeFilters(f models.FilterState) models.FilterState {
	out := models.DefaultFilters().Merge(f)

	for key, v := range out {
		switch {
		case key == models.FilterPage:
			n, ok := toNumber(v)
			if !ok || n < 0 {
				n = 0
			}
			out[key] = int(math.Floor(n))
		case key == models.FilterSize:
			n, ok := toNumber(v)
			if !ok || n < 1 {
				n = models.DefaultPageSize
			}
			out[key] = int(math.Floor(n))
		case key == models.FilterSortDir:
			dir := strings.ToLower(toText(v))
			if dir != "asc" {
				dir = models.DefaultSortDir
			}
			out[key] = dir
		case key == models.FilterSortBy:
			by := toText(v)
			if by == "" {
				by = models.DefaultSortBy
			}
			out[key] = by
		case numericFilters[key]:
			if n, ok := toNumber(v); ok {
				out[key] = n
			} else {
				out[key] = nil
			}
		case boolFilters[key]:
			if b, ok := toBool(v); ok {
				out[key] = b
			} else {
				out[key] = nil
			}
		default:
			if s := toText(v); s != "" {
				out[key] = s
			} else {
				out[key] = nil
			}
		}
	}
	return out
}

// FilterQuery encodes the set filters as query parameters. Unset and empty
// values are left out.
func FilterQuery(f models.FilterState) url.Values {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	q := url.Values{}
	for _, k := range keys {
		var s string
		switch v := f[k].(type) {
		case nil:
			continue
		case int:
			s = strconv.Itoa(v)
		case bool:
			s = strconv.FormatBool(v)
		default:
			s = toText(v)
		}
		if s == "" {
			continue
		}
		q.Set(k, s)
	}
	return q
}
