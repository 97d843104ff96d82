package services

import (
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// tokenizerModel selects the BPE encoding used for budget accounting.
const tokenizerModel = "gpt-4o"

// Estimator approximates how many LLM tokens a piece of text costs.
type Estimator interface {
	Estimate(text string) int
}

// TiktokenEstimator counts tokens with the model's BPE encoding. Loading
// the encoding can fail (it may need a network fetch on first use); the
// estimator then degrades to a characters/4 heuristic instead of failing
// token accounting altogether.
type TiktokenEstimator struct {
	encoding *tiktoken.Tiktoken
}

func NewTiktokenEstimator(logger *zap.Logger) *TiktokenEstimator {
	enc, err := tiktoken.EncodingForModel(tokenizerModel)
	if err != nil {
		logger.Warn("could not load tiktoken encoding, using heuristic estimates",
			zap.String("model", tokenizerModel), zap.Error(err))
		enc = nil
	}
	return &TiktokenEstimator{encoding: enc}
}

func (e *TiktokenEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	if e.encoding != nil {
		return len(e.encoding.Encode(text, nil, nil))
	}
	// Rough average of 4 characters per token
	return (len(text) + 3) / 4
}
