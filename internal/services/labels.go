package services

import "strings"

// featureLabels maps model feature names (after prefix stripping) to the names
// shown on the dashboard.
var featureLabels = map[string]string{
	"gender":                    "Gender",
	"gender_Male":               "Gender (male)",
	"gender_Female":             "Gender (female)",
	"age":                       "Age",
	"Age":                       "Age",
	"country":                   "Country",
	"country_FR":                "Country (France)",
	"country_IN":                "Country (India)",
	"subscription_type":         "Subscription type",
	"subscription_type_Student": "Student subscription",
	"listening_time":            "Listening time",
	"songs_played_per_day":      "Songs per day",
	"skip_rate":                 "Skip rate",
	"device_type":               "Device type",
	"ads_listened_per_week":     "Ads per week",
	"offline_listening":         "Offline listening",
	"is_churned":                "Churned",
	"songs_per_minute":          "Songs per minute",
	"ad_intensity":              "Ad intensity",
	"frustration_index":         "Frustration index",
	"is_heavy_user":             "Heavy user",
	"premium_no_offline":        "Premium without offline",
	"premium_sub_month":         "Premium subscription months",
	"fav_genre":                 "Favourite genre",
}

// retentionPlaybook maps a factor label to the retention action suggested
// when the backend sends none.
var retentionPlaybook = map[string]string{
	"Gender":                  "Tune marketing campaigns to gender-specific segments.",
	"Gender (male)":           "Tune marketing campaigns to the male segment.",
	"Gender (female)":         "Tune marketing campaigns to the female segment.",
	"Age":                     "Offer plans suited to the age band, such as Student or Family.",
	"Country":                 "Localize content and adjust pricing to the regional currency.",
	"Country (France)":        "Localize content and adjust pricing for France.",
	"Country (India)":         "Localize content and adjust pricing for India.",
	"Subscription type":       "Suggest an upgrade to a plan with more benefits.",
	"Student subscription":    "Present student-only plans, then discounted premium or prepaid plans after graduation.",
	"Listening time":          "Send personalized recommendations to raise engagement.",
	"Songs per day":           "Push new playlists based on daily listening behaviour.",
	"Skip rate":               "Recalibrate the recommendation algorithm to reduce skips.",
	"Device type":             "Optimize the interface and fix device-specific bugs.",
	"Ads per week":            "Offer a Premium trial to relieve ad interruptions, then a premium or prepaid plan.",
	"Offline listening":       "Highlight download features in educational campaigns.",
	"Songs per minute":        "Suggest playlists focused on specific rhythms.",
	"Ad intensity":            "Temporarily reduce ad load and offer ad-free plans.",
	"Frustration index":       "Send a satisfaction survey with an immediate discount coupon.",
	"Heavy user":              "Offer a rewards programme and early access to features.",
	"Premium without offline": "Suggest the full Premium plan with download support.",
}

// FeatureLabel returns the display name for a model feature. Pipeline
// prefixes such as num__ and cat__ are removed first.
func FeatureLabel(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "N/A" {
		return ""
	}
	clean := strings.TrimPrefix(strings.TrimPrefix(name, "num__"), "cat__")
	if label, ok := featureLabels[clean]; ok {
		return label
	}
	return strings.ReplaceAll(clean, "_", " ")
}

// RetentionAction returns the playbook action for a factor label, if any.
func RetentionAction(label string) string {
	return retentionPlaybook[label]
}
