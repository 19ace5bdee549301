// Package fairness computes the bias statistics used by the audit steps.
//
// Two analyses are provided. DataAnalyzer compares the base rate of the
// favourable label between a privileged and an unprivileged cohort of the
// dataset itself (statistical parity difference and disparate impact).
// ModelAnalyzer compares a model's predictions across the values of one
// sensitive column (demographic parity difference and equalized odds
// difference).
//
// Both analyzers turn their statistics into a model.Finding. A finding is
// biased when the headline statistic exceeds the threshold in absolute value.
package fairness

// DefaultThreshold is the verdict threshold used when none is configured.
const DefaultThreshold = 0.1

// Finding types produced by the analyzers.
const (
	DataBiasType  = "Data Bias"
	ModelBiasType = "Model Bias"
)

// Metric keys stored in Finding.Metrics.
const (
	MetricStatisticalParityDifference = "statistical_parity_difference"
	MetricDisparateImpact             = "disparate_impact"
	MetricBaseRatePrivileged          = "base_rate_privileged"
	MetricBaseRateUnprivileged        = "base_rate_unprivileged"
	MetricNumPositives                = "num_positives"
	MetricNumNegatives                = "num_negatives"
	MetricDemographicParityDifference = "demographic_parity_difference"
	MetricEqualizedOddsDifference     = "equalized_odds_difference"
)

func verdict(biased bool) string {
	if biased {
		return "YES"
	}
	return "NO"
}

func exceeds(v, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if v < 0 {
		v = -v
	}
	return v > threshold
}
