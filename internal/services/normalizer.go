package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"churninsight/dashboard/internal/models"
)

// Rate scale modes for churn rate and accuracy values.
const (
	RateScaleAuto     = "auto"
	RateScaleFraction = "fraction"
	RateScalePercent  = "percent"
)

// MetricsOptions controls the derived values of NormalizeMetrics.
type MetricsOptions struct {
	UnitPrice float64
	RateScale string
}

// NormalizeMetrics reconciles the statistics and count payloads into the KPI
// record. count may be an object or a bare number. Missing values are derived
// where possible and defaulted otherwise.
func NormalizeMetrics(stats models.Payload, count interface{}, fallbackFeatures []models.FeatureImportance, opts MetricsOptions) models.DashboardMetrics {
	total := 0.0
	if n, ok := toNumber(count); ok {
		total = n
	} else {
		total = countFields.number(toPayload(count), "total")
	}
	if total == 0 {
		total = statsFields.number(stats, "total")
	}
	totalClients := int(math.Round(total))

	churnRate := scalePercent(statsFields.number(stats, "churnRate"), opts.RateScale)

	churnCount := int(math.Round(statsFields.number(stats, "churnCount")))
	if churnCount == 0 && totalClients > 0 && churnRate > 0 {
		churnCount = int(math.Round(total * churnRate / 100))
	}

	stayCount := int(math.Round(statsFields.number(stats, "stayCount")))
	if stayCount == 0 && totalClients > 0 {
		stayCount = totalClients - churnCount
	}

	distribution := numberList(firstPresent(stats, "churnDistribution", "churn_distribution"))
	if allZero(distribution) {
		distribution = []int{stayCount, churnCount}
	}

	revenue := statsFields.number(stats, "revenueAtRisk")
	if revenue == 0 && churnCount > 0 {
		revenue = math.Round(float64(churnCount)*opts.UnitPrice*100) / 100
	}

	accuracy := scalePercent(statsFields.number(stats, "accuracy"), opts.RateScale)

	features := featureList(firstPresent(stats, "featureImportance", "feature_importance"))
	if len(features) == 0 {
		features = fallbackFeatures
	}
	if features == nil {
		features = []models.FeatureImportance{}
	}

	return models.DashboardMetrics{
		TotalClients:         totalClients,
		GlobalChurnRate:      round1(churnRate),
		GlobalChurnRateLabel: fmt.Sprintf("%.1f%%", churnRate),
		ChurnCount:           churnCount,
		StayCount:            stayCount,
		RevenueAtRisk:        revenue,
		ModelAccuracy:        round1(accuracy),
		ModelAccuracyLabel:   fmt.Sprintf("%.1f%%", accuracy),
		ChurnDistribution:    distribution,
		FeatureImportance:    features,
	}
}

// scalePercent converts a rate to percentage units. In auto mode a value in
// (0, 1] is read as a fraction and anything above 1 as already a percentage.
func scalePercent(v float64, mode string) float64 {
	switch mode {
	case RateScaleFraction:
		return v * 100
	case RateScalePercent:
		return v
	}
	if v > 0 && v <= 1 {
		return v * 100
	}
	return v
}

// NormalizeAggregates reads the /clients/aggregates shape.
func NormalizeAggregates(p models.Payload) models.Aggregates {
	agg := aggregatesFrom(p, aggregateFields)
	agg.ProbabilityBuckets = numberList(firstPresent(p, "probabilityBuckets", "probability_buckets"))
	if len(agg.ProbabilityBuckets) == 0 {
		agg.ProbabilityBuckets = []int{0, 0, 0, 0}
	}
	if counts := toPayload(firstPresent(p, "riskFactorCounts", "risk_factor_counts")); counts != nil {
		for k, v := range counts {
			if n, ok := toNumber(v); ok {
				agg.RiskFactorCounts[k] = int(math.Round(n))
			}
		}
	}
	return agg
}

// AggregatesFromPublicStats maps the public statistics payload onto the
// minimal aggregates shape.
func AggregatesFromPublicStats(p models.Payload) models.Aggregates {
	agg := aggregatesFrom(p, publicAggregateFields)
	agg.ProbabilityBuckets = []int{0, 0, 0, 0}
	return agg
}

func aggregatesFrom(p models.Payload, table fieldTable) models.Aggregates {
	return models.Aggregates{
		Total:              int(math.Round(table.number(p, "total"))),
		AverageProbability: table.number(p, "averageProbability"),
		TotalChurners:      int(math.Round(table.number(p, "totalChurners"))),
		ChurnRate:          table.number(p, "churnRate"),
		RiskFactorCounts:   map[string]int{},
	}
}

// ExtractList pulls the record list out of a bare array or an object holding
// it under content, items or data.
func ExtractList(v interface{}) []models.Payload {
	var raw []interface{}
	switch list := v.(type) {
	case []interface{}:
		raw = list
	case []models.Payload:
		return list
	default:
		p := toPayload(v)
		for _, key := range listKeys {
			if items, ok := p[key].([]interface{}); ok {
				raw = items
				break
			}
		}
	}

	out := make([]models.Payload, 0, len(raw))
	for _, item := range raw {
		if p := toPayload(item); p != nil {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeClient reconciles one client row.
func NormalizeClient(p models.Payload) models.ClientRecord {
	status := clientText.text(p, "churnStatus")
	label := clientText.text(p, "predictionLabel")
	if label == "" {
		label = status
	}
	prob := clientNumbers.number(p, "probability")

	return models.ClientRecord{
		UserID:                 clientText.text(p, "userId"),
		Gender:                 clientText.text(p, "gender"),
		Age:                    clientNumbers.number(p, "age"),
		Country:                clientText.text(p, "country"),
		SubscriptionType:       clientText.text(p, "subscriptionType"),
		DeviceType:             clientText.text(p, "deviceType"),
		ChurnStatus:            status,
		PredictionLabel:        label,
		Probability:            prob,
		RecommendedAction:      clientText.text(p, "recommendedAction"),
		PrimaryRiskFactor:      clientText.text(p, "primaryRiskFactor"),
		PrimaryRetentionFactor: clientText.text(p, "primaryRetentionFactor"),
		CreatedAt:              clientText.text(p, "createdAt"),
	}
}

// NormalizeClients converts every record of a list response.
func NormalizeClients(v interface{}) []models.ClientRecord {
	items := ExtractList(v)
	out := make([]models.ClientRecord, 0, len(items))
	for _, item := range items {
		out = append(out, NormalizeClient(item))
	}
	return out
}

// NormalizeClientPage builds a page from any of the list shapes. Values the
// response omits are taken from the filters that produced it.
func NormalizeClientPage(v interface{}, filters models.FilterState) models.ClientPage {
	p := toPayload(v)
	meta := p
	if nested := p.Object("page"); nested != nil {
		meta = nested
	}

	content := NormalizeClients(v)

	size := filters.Int(models.FilterSize, models.DefaultPageSize)
	if n, ok := pageFields.lookup(meta, "size"); ok && n > 0 {
		size = int(n)
	}
	number := filters.Int(models.FilterPage, 0)
	if n, ok := pageFields.lookup(meta, "number"); ok {
		number = int(n)
	}

	total := len(content)
	if n, ok := pageFields.lookup(meta, "totalElements"); ok {
		total = int(math.Round(n))
	}
	totalPages := 0
	if n, ok := pageFields.lookup(meta, "totalPages"); ok {
		totalPages = int(math.Round(n))
	} else if total > 0 {
		totalPages = 1
	}

	if number < 0 {
		number = 0
	}
	if totalPages > 0 && number >= totalPages {
		number = totalPages - 1
	}

	first, ok := toBool(p["first"])
	if !ok {
		first = number == 0
	}
	last, ok := toBool(p["last"])
	if !ok {
		last = totalPages == 0 || number >= totalPages-1
	}

	return models.ClientPage{
		Content:       content,
		TotalElements: total,
		TotalPages:    totalPages,
		Number:        number,
		Size:          size,
		First:         first,
		Last:          last,
		Stats:         NormalizeSearchStats(p.Object("stats")),
	}
}

// NormalizeSearchStats reads the KPIs of a search response. Missing values are
// zero.
func NormalizeSearchStats(p models.Payload) models.SearchStats {
	return models.SearchStats{
		WillChurnCount: int(math.Round(searchStatsFields.number(p, "willChurnCount"))),
		WillStayCount:  int(math.Round(searchStatsFields.number(p, "willStayCount"))),
		AvgProbability: searchStatsFields.number(p, "avgProbability"),
	}
}

// ComputePagination derives the footer values. Once a page is loaded its
// clamped number and size win over the requested filters.
func ComputePagination(page *models.ClientPage, filters models.FilterState) models.Pagination {
	current := filters.Int(models.FilterPage, 0)
	size := filters.Int(models.FilterSize, models.DefaultPageSize)

	var pg models.Pagination
	if page != nil {
		current = page.Number
		if page.Size > 0 {
			size = page.Size
		}
	}
	if size <= 0 {
		size = models.DefaultPageSize
	}
	pg.CurrentPage = current
	if page == nil {
		return pg
	}

	pg.TotalElements = page.TotalElements
	pg.TotalPages = page.TotalPages
	pg.HasResults = len(page.Content) > 0
	pg.IsEmpty = len(page.Content) == 0
	pg.StartRecord, pg.EndRecord = RecordRange(current, size, page.TotalElements)
	return pg
}

// RecordRange returns the 1-based first and last record shown on a page, or
// 0, 0 when there are no records.
func RecordRange(page, size, total int) (int, int) {
	if total <= 0 || size <= 0 {
		return 0, 0
	}
	if page < 0 {
		page = 0
	}
	start := page*size + 1
	end := (page + 1) * size
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}
	return start, end
}

// NormalizeBatchStatus reads an upload or status-poll response.
func NormalizeBatchStatus(p models.Payload) models.BatchStatus {
	message := batchText.text(p, "message")
	if message == "[]" {
		message = ""
	}
	return models.BatchStatus{
		JobID:        batchText.text(p, "jobId"),
		Status:       strings.ToUpper(batchText.text(p, "status")),
		Processed:    batchFields.intPtr(p, "processed"),
		SuccessCount: batchFields.intPtr(p, "successCount"),
		ErrorCount:   batchFields.intPtr(p, "errorCount"),
		Total:        batchFields.intPtr(p, "total"),
		Message:      message,
	}
}

// NormalizePrediction reads a /predict or /stats response.
func NormalizePrediction(p models.Payload) models.PredictionResult {
	prob := clamp01(predictionFields.number(p, "probability"))
	threshold := predictionFields.number(p, "threshold")
	highRisk := prob > threshold

	label := toText(firstPresent(p, "prediction", "label"))
	if label == "" {
		if highRisk {
			label = "Likely to churn"
		} else {
			label = "Likely to stay"
		}
	}

	result := models.PredictionResult{
		Probability:      prob,
		ProbabilityLabel: fmt.Sprintf("%.1f%%", prob*100),
		Label:            label,
		Threshold:        threshold,
		HighRisk:         highRisk,
	}

	diag := p.Object("ai_diagnosis")
	risk := toText(p["primary_risk_factor"])
	if risk == "" {
		risk = toText(diag["primary_risk_factor"])
	}
	retention := toText(diag["primary_retention_factor"])
	if retention == "" {
		retention = toText(p["primary_retention_factor"])
	}
	action := toText(p["recommended_action"])
	if action == "" {
		action = toText(diag["suggested_action"])
	}

	if diag != nil || risk != "" || retention != "" || action != "" {
		d := &models.Diagnosis{
			PrimaryRiskFactor:      risk,
			PrimaryRetentionFactor: retention,
			RiskFactorLabel:        FeatureLabel(risk),
			RetentionFactorLabel:   FeatureLabel(retention),
			SuggestedAction:        action,
		}
		if d.RiskFactorLabel == "" {
			if highRisk {
				d.RiskFactorLabel = "Risk behaviour"
			} else {
				d.RiskFactorLabel = "None critical"
			}
		}
		if d.RetentionFactorLabel == "" {
			d.RetentionFactorLabel = "High loyalty"
		}
		if d.SuggestedAction == "" {
			d.SuggestedAction = RetentionAction(FeatureLabel(risk))
		}
		result.Diagnosis = d
	}

	if classes := toPayload(firstPresent(p, "class_probabilities", "classProbabilities")); classes != nil {
		result.ClassProbabilities = make(map[string]float64, len(classes))
		for k, v := range classes {
			if n, ok := toNumber(v); ok {
				result.ClassProbabilities[k] = n
			}
		}
	}

	return result
}

// RiskFactorBreakdown groups the clients above threshold by the display name
// of their primary risk factor. Entries are ordered by count, then name.
func RiskFactorBreakdown(clients []models.ClientRecord, threshold float64) []models.RiskFactorShare {
	atRisk := 0
	counts := map[string]int{}
	for _, c := range clients {
		if c.Probability <= threshold {
			continue
		}
		atRisk++
		if label := FeatureLabel(c.PrimaryRiskFactor); label != "" {
			counts[label]++
		}
	}

	out := make([]models.RiskFactorShare, 0, len(counts))
	for label, n := range counts {
		out = append(out, models.RiskFactorShare{
			Factor:      label,
			Count:       n,
			TotalAtRisk: atRisk,
			Action:      RetentionAction(label),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Factor < out[j].Factor
	})
	return out
}

func firstPresent(p models.Payload, keys ...string) interface{} {
	for _, key := range keys {
		if p.Has(key) {
			return p[key]
		}
	}
	return nil
}

func numberList(v interface{}) []int {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		n, _ := toNumber(item)
		out = append(out, int(math.Round(n)))
	}
	return out
}

func featureList(v interface{}) []models.FeatureImportance {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]models.FeatureImportance, 0, len(items))
	for _, item := range items {
		p := toPayload(item)
		name := toText(p["name"])
		if name == "" {
			continue
		}
		value, _ := toNumber(p["value"])
		out = append(out, models.FeatureImportance{Name: name, Label: FeatureLabel(name), Value: value})
	}
	return out
}

func allZero(values []int) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}
	return true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
