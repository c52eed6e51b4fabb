package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"churninsight/dashboard/internal/models"
)

func TestNormalizeFilters_CoercesEveryKey(t *testing.T) {
	messy := models.FilterState{
		models.FilterPage:             "2",
		models.FilterSize:             "abc",
		models.FilterMinAge:           "",
		models.FilterMaxAge:           "40",
		models.FilterMinProbability:   "0.7",
		models.FilterIsHeavyUser:      "true",
		models.FilterOfflineListening: "maybe",
		models.FilterSortDir:          "ASC",
		models.FilterSortBy:           "",
		models.FilterCountry:          "  ",
		models.FilterGender:           "Male",
	}

	f := NormalizeFilters(messy)

	assert.Len(t, f, len(models.DefaultFilters()))
	assert.Equal(t, 2, f[models.FilterPage])
	assert.Equal(t, models.DefaultPageSize, f[models.FilterSize])
	assert.Nil(t, f[models.FilterMinAge])
	assert.Equal(t, 40.0, f[models.FilterMaxAge])
	assert.Equal(t, 0.7, f[models.FilterMinProbability])
	assert.Equal(t, true, f[models.FilterIsHeavyUser])
	assert.Nil(t, f[models.FilterOfflineListening])
	assert.Equal(t, "asc", f[models.FilterSortDir])
	assert.Equal(t, models.DefaultSortBy, f[models.FilterSortBy])
	assert.Nil(t, f[models.FilterCountry])
	assert.Equal(t, "Male", f[models.FilterGender])
}

func TestNormalizeFilters_Idempotent(t *testing.T) {
	inputs := []models.FilterState{
		nil,
		models.DefaultFilters(),
		{models.FilterPage: -3, models.FilterSize: 0, models.FilterSortDir: "sideways"},
		{models.FilterPage: 4.9, models.FilterMaxProbability: "0.3", models.FilterIsHeavyUser: 1},
		{models.FilterStatus: models.StatusWillChurn, models.FilterUserID: 42},
	}

	for _, in := range inputs {
		once := NormalizeFilters(in)
		twice := NormalizeFilters(once)
		assert.Equal(t, once, twice, "input %v", in)
	}
}

func TestNormalizeFilters_DoesNotMutateInput(t *testing.T) {
	in := models.FilterState{models.FilterPage: "1"}
	NormalizeFilters(in)
	assert.Equal(t, "1", in[models.FilterPage])
	assert.Len(t, in, 1)
}

func TestDefaultFilters_ResetRestoresEveryKey(t *testing.T) {
	f := models.DefaultFilters()
	assert.Len(t, f, 18)
	assert.Equal(t, 0, f[models.FilterPage])
	assert.Equal(t, 10, f[models.FilterSize])
	assert.Equal(t, "createdAt", f[models.FilterSortBy])
	assert.Equal(t, "desc", f[models.FilterSortDir])

	changed := f.Merge(models.FilterState{models.FilterGender: "Female", models.FilterPage: 3})
	reset := models.DefaultFilters()
	assert.Nil(t, reset[models.FilterGender])
	assert.Equal(t, 0, reset[models.FilterPage])
	assert.Equal(t, "Female", changed[models.FilterGender])
}

func TestFilterQuery_SkipsUnsetValues(t *testing.T) {
	f := NormalizeFilters(models.FilterState{
		models.FilterStatus:         models.StatusWillChurn,
		models.FilterMinProbability: 0.7,
		models.FilterIsHeavyUser:    false,
	})

	q := FilterQuery(f)

	assert.Equal(t, "0", q.Get(models.FilterPage))
	assert.Equal(t, "10", q.Get(models.FilterSize))
	assert.Equal(t, "WILL_CHURN", q.Get(models.FilterStatus))
	assert.Equal(t, "0.7", q.Get(models.FilterMinProbability))
	assert.Equal(t, "false", q.Get(models.FilterIsHeavyUser))
	assert.False(t, q.Has(models.FilterGender))
	assert.False(t, q.Has(models.FilterCountry))
}

func TestCoercePredictionForm(t *testing.T) {
	req := CoercePredictionForm(models.PredictionForm{
		"user_id":              "u-1",
		"age":                  "31",
		"skip_rate":            "",
		"listening_time":       "abc",
		"songs_played_per_day": 12,
		"offline_listening":    "true",
	})

	assert.Equal(t, "u-1", req.UserID)
	assert.Equal(t, 31.0, req.Age)
	assert.Equal(t, 0.0, req.SkipRate)
	assert.Equal(t, 0.0, req.ListeningTime)
	assert.Equal(t, 12.0, req.SongsPlayedPerDay)
	assert.True(t, req.OfflineListening)

	assert.False(t, CoercePredictionForm(models.PredictionForm{"offline_listening": "yes"}).OfflineListening)
	assert.True(t, CoercePredictionForm(models.PredictionForm{"offline_listening": 1}).OfflineListening)

	defaults := CoercePredictionForm(models.DefaultPredictionForm())
	assert.Equal(t, 25.0, defaults.Age)
	assert.Equal(t, "BR", defaults.Country)
	assert.False(t, defaults.OfflineListening)
}
