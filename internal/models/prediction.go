package models

// PredictionForm is the loosely typed profile submitted by the dashboard form.
// Values may arrive as strings, numbers or booleans.
type PredictionForm map[string]interface{}

// PredictionRequest is the customer profile sent to /predict and /stats.
type PredictionRequest struct {
	UserID             string  `json:"user_id"`
	Gender             string  `json:"gender"`
	Age                float64 `json:"age"`
	Country            string  `json:"country"`
	SubscriptionType   string  `json:"subscription_type"`
	ListeningTime      float64 `json:"listening_time"`
	SongsPlayedPerDay  float64 `json:"songs_played_per_day"`
	SkipRate           float64 `json:"skip_rate"`
	AdsListenedPerWeek float64 `json:"ads_listened_per_week"`
	DeviceType         string  `json:"device_type"`
	OfflineListening   bool    `json:"offline_listening"`
}

// DefaultPredictionForm mirrors the initial values of the prediction form.
func DefaultPredictionForm() PredictionForm {
	return PredictionForm{
		"user_id":               "",
		"gender":                "Male",
		"age":                   25,
		"country":               "BR",
		"subscription_type":     "Free",
		"listening_time":        300,
		"songs_played_per_day":  20,
		"skip_rate":             0.2,
		"ads_listened_per_week": 10,
		"device_type":           "Mobile",
		"offline_listening":     false,
	}
}

// Diagnosis explains a single prediction.
type Diagnosis struct {
	PrimaryRiskFactor      string `json:"primary_risk_factor,omitempty"`
	PrimaryRetentionFactor string `json:"primary_retention_factor,omitempty"`
	RiskFactorLabel        string `json:"risk_factor_label"`
	RetentionFactorLabel   string `json:"retention_factor_label"`
	SuggestedAction        string `json:"suggested_action,omitempty"`
}

// PredictionResult is the canonical outcome of /predict or /stats.
type PredictionResult struct {
	Probability        float64            `json:"probability"`
	ProbabilityLabel   string             `json:"probability_label"`
	Label              string             `json:"label"`
	Threshold          float64            `json:"threshold"`
	HighRisk           bool               `json:"high_risk"`
	Diagnosis          *Diagnosis         `json:"diagnosis,omitempty"`
	ClassProbabilities map[string]float64 `json:"class_probabilities,omitempty"`
}

// PredictionSnapshot is the prediction panel state.
type PredictionSnapshot struct {
	Loading bool              `json:"loading"`
	Result  *PredictionResult `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
}
