// Package features turns raw bank payments into numeric feature vectors:
// amount and time-of-day fields followed by a TF-IDF bag of words over the
// payment description.
package features

import (
	"math"
	"regexp"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/svanherk/bunqynab/pkg/bunq"
)

// Columns are the fixed leading feature columns; vocabulary terms follow.
var Columns = []string{"amount", "hour", "minute", "weekday"}

// tokenPattern selects word tokens of two or more characters. Casing is kept
// deliberately: for payment descriptions it is signal, not noise.
var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// Extractor is a fit/transform component. After fitting it holds the
// description vocabulary with inverse document frequencies and is
// gob-serializable for deployment alongside the classifier.
type Extractor struct {
	// Terms is the sorted vocabulary.
	Terms []string

	// IDF holds the smoothed inverse document frequency per term.
	IDF []float64

	index map[string]int
}

// Fit builds the TF-IDF vocabulary over the payment descriptions.
func (e *Extractor) Fit(payments []*bunq.Payment) error {
	if len(payments) == 0 {
		return errors.New("features: cannot fit on zero payments")
	}

	docFreq := make(map[string]int)
	for _, payment := range payments {
		seen := make(map[string]struct{})
		for _, term := range tokenize(payment.Description) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			docFreq[term]++
		}
	}

	e.Terms = make([]string, 0, len(docFreq))
	for term := range docFreq {
		e.Terms = append(e.Terms, term)
	}
	sort.Strings(e.Terms)

	n := float64(len(payments))
	e.IDF = make([]float64, len(e.Terms))
	for i, term := range e.Terms {
		// Smoothed idf, as if one extra document contained every term.
		e.IDF[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}
	e.buildIndex()
	return nil
}

// Transform emits one row per payment. Deterministic for a fixed fitted
// vocabulary; terms unseen during fitting contribute nothing.
func (e *Extractor) Transform(payments []*bunq.Payment) ([][]float64, error) {
	if e.Terms == nil {
		return nil, errors.New("features: extractor is not fitted")
	}
	if e.index == nil {
		e.buildIndex()
	}

	rows := make([][]float64, len(payments))
	for i, payment := range payments {
		rows[i] = e.transformOne(payment)
	}
	return rows, nil
}

// TransformOne vectorizes a single payment, the prediction-time path.
func (e *Extractor) TransformOne(payment *bunq.Payment) ([]float64, error) {
	rows, err := e.Transform([]*bunq.Payment{payment})
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

// NumFeatures returns the width of a transformed row.
func (e *Extractor) NumFeatures() int {
	return len(Columns) + len(e.Terms)
}

func (e *Extractor) transformOne(payment *bunq.Payment) []float64 {
	row := make([]float64, e.NumFeatures())
	row[0] = payment.Amount.Float()
	row[1] = float64(payment.Created.Hour())
	row[2] = float64(payment.Created.Minute())
	// Monday = 0 .. Sunday = 6
	row[3] = float64((int(payment.Created.Weekday()) + 6) % 7)

	bow := row[len(Columns):]
	for _, term := range tokenize(payment.Description) {
		if idx, ok := e.index[term]; ok {
			bow[idx]++
		}
	}
	for i := range bow {
		bow[i] *= e.IDF[i]
	}
	if norm := floats.Norm(bow, 2); norm > 0 {
		floats.Scale(1/norm, bow)
	}
	return row
}

func (e *Extractor) buildIndex() {
	e.index = make(map[string]int, len(e.Terms))
	for i, term := range e.Terms {
		e.index[term] = i
	}
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}
