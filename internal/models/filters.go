package models

// FilterState maps a filter key to its value. A nil value means the filter is
// unset.
type FilterState map[string]interface{}

// Filter keys understood by /clients.
const (
	FilterPage             = "page"
	FilterSize             = "size"
	FilterSortBy           = "sortBy"
	FilterSortDir          = "sortDir"
	FilterStatus           = "status"
	FilterMinProbability   = "minProbability"
	FilterMaxProbability   = "maxProbability"
	FilterGender           = "gender"
	FilterMinAge           = "minAge"
	FilterMaxAge           = "maxAge"
	FilterCountry          = "country"
	FilterSubscriptionType = "subscriptionType"
	FilterDeviceType       = "deviceType"
	FilterStartDate        = "startDate"
	FilterEndDate          = "endDate"
	FilterIsHeavyUser      = "isHeavyUser"
	FilterOfflineListening = "offlineListening"
	FilterUserID           = "userId"
)

const (
	DefaultPageSize = 10
	DefaultSortBy   = "createdAt"
	DefaultSortDir  = "desc"
)

// DefaultFilters returns a fresh copy of every filter key at its default.
func DefaultFilters() FilterState {
	return FilterState{
		FilterPage:             0,
		FilterSize:             DefaultPageSize,
		FilterSortBy:           DefaultSortBy,
		FilterSortDir:          DefaultSortDir,
		FilterStatus:           nil,
		FilterMinProbability:   nil,
		FilterMaxProbability:   nil,
		FilterGender:           nil,
		FilterMinAge:           nil,
		FilterMaxAge:           nil,
		FilterCountry:          nil,
		FilterSubscriptionType: nil,
		FilterDeviceType:       nil,
		FilterStartDate:        nil,
		FilterEndDate:          nil,
		FilterIsHeavyUser:      nil,
		FilterOfflineListening: nil,
		FilterUserID:           nil,
	}
}

func (f FilterState) Clone() FilterState {
	out := make(FilterState, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Merge returns a copy of f with overrides applied on top.
func (f FilterState) Merge(overrides FilterState) FilterState {
	out := f.Clone()
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Int returns an integer filter value, or def when unset.
func (f FilterState) Int(key string, def int) int {
	switch v := f[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}
