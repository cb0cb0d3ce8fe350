// Package feedback wires domain/feedback's Store and Detector behind a
// small application-level service: record ratings and gaps, and surface
// recurring-pattern suggestions.
package feedback

import (
	"fmt"

	"github.com/kodexhq/kodex/domain/feedback"
)

// Service is the application-facing feedback surface used by the tool
// dispatch layer's report_gap / retrieval_rate / suggest tools.
type Service struct {
	Store    feedback.Store
	Detector feedback.Detector
}

// New constructs a Service with the default Detector thresholds.
func New(store feedback.Store) *Service {
	return &Service{Store: store, Detector: feedback.NewDetector()}
}

// Rate appends a rating record. score must be in 1..5.
func (s *Service) Rate(query string, score int, comment string) error {
	if score < 1 || score > 5 {
		return fmt.Errorf("feedback: score %d out of range 1..5", score)
	}
	return s.Store.Append(feedback.NewRating(query, score, comment))
}

// ReportGap appends a gap record naming the unit a query expected but did
// not retrieve.
func (s *Service) ReportGap(query, missingUnit, unitType string) error {
	return s.Store.Append(feedback.NewGap(query, missingUnit, unitType))
}

// RetrievalRate returns the mean rating score across the whole log.
func (s *Service) RetrievalRate() (float64, error) {
	records, err := s.Store.All()
	if err != nil {
		return 0, err
	}
	return feedback.AverageScore(records), nil
}

// Suggest runs the GapDetector over the full log and returns its findings,
// sorted by the detector's deterministic key order.
func (s *Service) Suggest() ([]feedback.Issue, error) {
	records, err := s.Store.All()
	if err != nil {
		return nil, err
	}
	return s.Detector.Detect(records), nil
}
