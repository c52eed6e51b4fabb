package models

// Churn statuses used by the client search filters.
const (
	StatusWillChurn = "WILL_CHURN"
	StatusWillStay  = "WILL_STAY"
)

// ClientRecord is one row of the client table after alias reconciliation.
type ClientRecord struct {
	UserID                 string  `json:"user_id"`
	Gender                 string  `json:"gender,omitempty"`
	Age                    float64 `json:"age,omitempty"`
	Country                string  `json:"country,omitempty"`
	SubscriptionType       string  `json:"subscription_type,omitempty"`
	DeviceType             string  `json:"device_type,omitempty"`
	ChurnStatus            string  `json:"churn_status,omitempty"`
	PredictionLabel        string  `json:"prediction_label,omitempty"`
	Probability            float64 `json:"probability"`
	RecommendedAction      string  `json:"recommended_action,omitempty"`
	PrimaryRiskFactor      string  `json:"primary_risk_factor,omitempty"`
	PrimaryRetentionFactor string  `json:"primary_retention_factor,omitempty"`
	CreatedAt              string  `json:"created_at,omitempty"`
}

// WillChurn reports whether the backend classified the client as churning.
func (c ClientRecord) WillChurn() bool {
	return c.ChurnStatus == StatusWillChurn
}

// ClientPage is one page of client search results in server sort order.
type ClientPage struct {
	Content       []ClientRecord `json:"content"`
	TotalElements int            `json:"total_elements"`
	TotalPages    int            `json:"total_pages"`
	Number        int            `json:"number"`
	Size          int            `json:"size"`
	First         bool           `json:"first"`
	Last          bool           `json:"last"`
	Stats         SearchStats    `json:"stats"`
}

// SearchStats are the KPIs the backend computes over the whole search result.
type SearchStats struct {
	WillChurnCount int     `json:"will_churn_count"`
	WillStayCount  int     `json:"will_stay_count"`
	AvgProbability float64 `json:"avg_probability"`
}

// Pagination holds the values the table footer renders.
type Pagination struct {
	TotalElements int  `json:"total_elements"`
	TotalPages    int  `json:"total_pages"`
	CurrentPage   int  `json:"current_page"`
	StartRecord   int  `json:"start_record"`
	EndRecord     int  `json:"end_record"`
	HasResults    bool `json:"has_results"`
	IsEmpty       bool `json:"is_empty"`
}

// SearchSnapshot is the client search panel state.
type SearchSnapshot struct {
	Filters       FilterState `json:"filters"`
	Page          *ClientPage `json:"page,omitempty"`
	Pagination    Pagination  `json:"pagination"`
	FilterOptions Payload     `json:"filter_options,omitempty"`
	Loading       bool        `json:"loading"`
	Error         string      `json:"error,omitempty"`
}
