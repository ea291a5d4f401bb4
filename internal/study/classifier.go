// Package study defines the contract for the statistical study-design
// classification applied to parsed articles. The classification itself is an
// external concern; parsers only depend on this interface.
package study

import "paperetl/internal/domain/entity"

// Classifier predicts study-design attributes from an article's ordered text
// sections. Implementations load their models once and must be safe to reuse
// across all articles parsed by one worker.
type Classifier interface {
	// Predict returns a design label for the article, or an empty string
	// when no design could be inferred.
	Predict(sections []entity.Section) string
}

// Noop is a classifier that never predicts anything. It is the default when
// no model directory is configured.
type Noop struct{}

// Predict implements Classifier.
func (Noop) Predict([]entity.Section) string { return "" }
