package dataset

import "sort"

// LabelEncoder maps category names to dense integer codes 0..k-1 and back.
// Classes are sorted so fitting the same label set always produces the same
// codes. The encoder is retained with the trained model: predictions come
// back as codes and must be inverted to category names.
type LabelEncoder struct {
	Classes []string

	index map[string]int
}

// FitLabels builds an encoder over the unique labels in the input.
func FitLabels(labels []string) *LabelEncoder {
	seen := make(map[string]struct{}, len(labels))
	var classes []string
	for _, label := range labels {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		classes = append(classes, label)
	}
	sort.Strings(classes)

	e := &LabelEncoder{Classes: classes}
	e.buildIndex()
	return e
}

// Encode returns the code for a label, or false when the label was not seen
// during fitting.
func (e *LabelEncoder) Encode(label string) (int, bool) {
	if e.index == nil {
		e.buildIndex()
	}
	code, ok := e.index[label]
	return code, ok
}

// Decode returns the label for a code, or false when the code is out of
// range.
func (e *LabelEncoder) Decode(code int) (string, bool) {
	if code < 0 || code >= len(e.Classes) {
		return "", false
	}
	return e.Classes[code], true
}

// Transform encodes a label slice. Labels unseen during fitting map to -1;
// callers fitting on their own labels never hit that path.
func (e *LabelEncoder) Transform(labels []string) []int {
	codes := make([]int, len(labels))
	for i, label := range labels {
		code, ok := e.Encode(label)
		if !ok {
			code = -1
		}
		codes[i] = code
	}
	return codes
}

// buildIndex rebuilds the lookup map, needed after gob decoding which only
// restores the exported Classes slice.
func (e *LabelEncoder) buildIndex() {
	e.index = make(map[string]int, len(e.Classes))
	for i, class := range e.Classes {
		e.index[class] = i
	}
}
