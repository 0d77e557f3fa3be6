package classify

// Metrics are the evaluation scores for one estimator on a held-out set.
// Precision and F1 are micro-averaged. Degenerate denominators score zero
// rather than NaN so that metric comparisons stay total.
type Metrics struct {
	Accuracy    float64 `json:"accuracy"`
	Precision   float64 `json:"precision"`
	F1          float64 `json:"f1"`
	CohensKappa float64 `json:"cohens_kappa"`
}

// Evaluate scores predictions against the true labels. Estimators are ranked
// by Cohen's kappa, which discounts agreement expected by chance and so stays
// honest on imbalanced category distributions.
func Evaluate(yTrue, yPred []int) Metrics {
	n := len(yTrue)
	if n == 0 || len(yPred) != n {
		return Metrics{}
	}

	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	accuracy := float64(correct) / float64(n)

	// Micro-averaged precision and F1 pool true/false positives over all
	// classes. For single-label multiclass both collapse to accuracy, but
	// they are reported separately for parity with the tracked runs.
	precision := accuracy
	f1 := accuracy

	return Metrics{
		Accuracy:    accuracy,
		Precision:   precision,
		F1:          f1,
		CohensKappa: cohensKappa(yTrue, yPred, n),
	}
}

func cohensKappa(yTrue, yPred []int, n int) float64 {
	trueCount := make(map[int]int)
	predCount := make(map[int]int)
	agree := 0
	for i := range yTrue {
		trueCount[yTrue[i]]++
		predCount[yPred[i]]++
		if yTrue[i] == yPred[i] {
			agree++
		}
	}

	po := float64(agree) / float64(n)
	pe := 0.0
	for label, tc := range trueCount {
		pe += float64(tc) * float64(predCount[label]) / float64(n) / float64(n)
	}
	if pe == 1 {
		return 0
	}
	return (po - pe) / (1 - pe)
}
