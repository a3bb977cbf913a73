// Package fallback produces a deterministic local classification when the
// external service is unreachable. The result is a degraded-mode contract:
// cyclically rotated, flagged as a fallback, and never an error.
package fallback

import (
	"sync/atomic"

	"github.com/intelliinsight/paper-analysis/internal/core/domain"
)

const (
	typeConfidenceMin   = 0.70
	typeConfidenceMax   = 0.95
	natureConfidenceMin = 0.75
	natureConfidenceMax = 0.95

	// Number of distinct confidence values before the cycle repeats.
	confidenceSteps = 6
)

var (
	documentTypes = []domain.DocumentType{domain.TypeConference, domain.TypeJournal}
	natures       = []domain.Nature{domain.NatureImplementation, domain.NatureTheoretical}

	evidenceByNature = map[domain.Nature][]string{
		domain.NatureImplementation: {
			"We implemented a novel deep learning architecture using PyTorch framework with attention mechanisms.",
			"Our experimental setup included training on 50,000 samples with 80/10/10 train/validation/test split.",
			"The proposed method achieved state-of-the-art results with 94.5% accuracy on the benchmark dataset.",
			"We compared our approach with five existing baselines including BERT, GPT-3, and traditional ML methods.",
			"Statistical significance testing shows p-value < 0.001 for all performance metrics across datasets.",
		},
		domain.NatureTheoretical: {
			"This paper presents a theoretical framework for understanding the mathematical foundations of neural networks.",
			"We provide formal proofs for the convergence properties of our proposed optimization algorithm.",
			"The theoretical analysis reveals fundamental limitations of existing approaches in high-dimensional spaces.",
			"We establish mathematical connections between information theory and machine learning generalization bounds.",
			"The proposed theoretical model unifies several existing approaches under a common mathematical framework.",
		},
	}

	defaultKeywords = []string{"machine learning", "artificial intelligence", "deep learning", "neural networks", "optimization"}
)

// Counter receives one increment per fallback engagement.
type Counter interface {
	Inc()
}

// Simulator rotates through type/nature combinations and confidence steps via
// an atomic process-wide cursor, so concurrent engagements stay correct even
// though their relative order is not fixed.
type Simulator struct {
	cursor      atomic.Uint64
	engagements Counter
}

func New() *Simulator {
	return &Simulator{}
}

// WithEngagementCounter wires an observability counter; nil disables it.
func (s *Simulator) WithEngagementCounter(c Counter) *Simulator {
	s.engagements = c
	return s
}

func (s *Simulator) Classify(fileName string) domain.ClassificationResult {
	if s.engagements != nil {
		s.engagements.Inc()
	}

	n := s.cursor.Add(1) - 1
	nature := natures[n%uint64(len(natures))]
	docType := documentTypes[(n/uint64(len(natures)))%uint64(len(documentTypes))]

	return domain.ClassificationResult{
		Title:            domain.TitleFromFileName(fileName),
		DocumentType:     string(docType),
		TypeConfidence:   confidenceAt(typeConfidenceMin, typeConfidenceMax, n),
		Nature:           string(nature),
		NatureConfidence: confidenceAt(natureConfidenceMin, natureConfidenceMax, n+3),
		Evidence:         evidenceByNature[nature],
		Keywords:         defaultKeywords,
		Fallback:         true,
	}
}

func confidenceAt(lo, hi float64, n uint64) float64 {
	step := n % confidenceSteps
	return lo + (hi-lo)*float64(step)/float64(confidenceSteps-1)
}
