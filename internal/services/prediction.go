package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"churninsight/dashboard/internal/models"
)

var numericFormFields = []string{
	"age",
	"listening_time",
	"songs_played_per_day",
	"skip_rate",
	"ads_listened_per_week",
}

// CoercePredictionForm converts the loose form values into a request. Empty
// or unparsable numbers become 0 and offline_listening becomes a strict bool.
func CoercePredictionForm(form models.PredictionForm) models.PredictionRequest {
	p := models.Payload(form)
	numbers := make(map[string]float64, len(numericFormFields))
	for _, key := range numericFormFields {
		n, _ := toNumber(p[key])
		numbers[key] = n
	}
	offline, _ := toBool(p["offline_listening"])

	return models.PredictionRequest{
		UserID:             toText(p["user_id"]),
		Gender:             toText(p["gender"]),
		Age:                numbers["age"],
		Country:            toText(p["country"]),
		SubscriptionType:   toText(p["subscription_type"]),
		ListeningTime:      numbers["listening_time"],
		SongsPlayedPerDay:  numbers["songs_played_per_day"],
		SkipRate:           numbers["skip_rate"],
		AdsListenedPerWeek: numbers["ads_listened_per_week"],
		DeviceType:         toText(p["device_type"]),
		OfflineListening:   offline,
	}
}

// PredictionController runs single-profile predictions. Only the latest
// request may update the result.
type PredictionController struct {
	client BackendClient
	log    *zap.Logger

	mu         sync.Mutex
	loading    bool
	result     *models.PredictionResult
	lastErr    string
	generation uint64
}

func NewPredictionController(client BackendClient, log *zap.Logger) *PredictionController {
	if log == nil {
		log = zap.NewNop()
	}
	return &PredictionController{client: client, log: log}
}

// Predict scores a profile through /predict. The previous result is cleared
// when the request starts.
func (c *PredictionController) Predict(ctx context.Context, form models.PredictionForm) (models.PredictionResult, error) {
	return c.run(ctx, form, true, c.client.Predict)
}

// FullStats scores a profile through /stats, which adds class probabilities.
func (c *PredictionController) FullStats(ctx context.Context, form models.PredictionForm) (models.PredictionResult, error) {
	return c.run(ctx, form, false, c.client.PredictStats)
}

// Reset clears the result and error.
func (c *PredictionController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.result = nil
	c.lastErr = ""
	c.loading = false
}

func (c *PredictionController) Snapshot() models.PredictionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := models.PredictionSnapshot{Loading: c.loading, Error: c.lastErr}
	if c.result != nil {
		result := *c.result
		snap.Result = &result
	}
	return snap
}

func (c *PredictionController) run(
	ctx context.Context,
	form models.PredictionForm,
	clearResult bool,
	call func(context.Context, models.PredictionRequest) (models.Payload, error),
) (models.PredictionResult, error) {
	req := CoercePredictionForm(form)

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.loading = true
	c.lastErr = ""
	if clearResult {
		c.result = nil
	}
	c.mu.Unlock()

	payload, err := call(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return models.PredictionResult{}, ErrAborted
	}
	c.loading = false

	if err != nil {
		if IsAborted(err) {
			return models.PredictionResult{}, ErrAborted
		}
		c.lastErr = err.Error()
		c.log.Warn("prediction failed", zap.String("user_id", req.UserID), zap.Error(err))
		return models.PredictionResult{}, fmt.Errorf("prediction: %w", err)
	}

	result := NormalizePrediction(payload)
	c.result = &result
	return result, nil
}
