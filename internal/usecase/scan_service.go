package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/allergenscan/backend/internal/domain"
)

// ScanService runs the barcode -> product -> verdict -> highlights pipeline
type ScanService struct {
	lookup      *LookupService
	analysis    *AnalysisService
	profile     *ProfileStore
	highlighter *Highlighter
	logger      *slog.Logger
}

// NewScanService wires the pipeline stages together
func NewScanService(
	lookup *LookupService,
	analysis *AnalysisService,
	profile *ProfileStore,
	highlighter *Highlighter,
	logger *slog.Logger,
) *ScanService {
	return &ScanService{
		lookup:      lookup,
		analysis:    analysis,
		profile:     profile,
		highlighter: highlighter,
		logger:      logger,
	}
}

// Scan looks up a product and analyzes it against the stored profile.
// Lookup failures are returned as errors. Analysis failures are reported
// inside the ScanReport so the product data is still shown.
func (s *ScanService) Scan(ctx context.Context, barcode string) (*domain.ScanReport, error) {
	lookup, err := s.lookup.Lookup(ctx, barcode)
	if err != nil {
		return nil, err
	}

	profileIDs := s.profile.List()
	report := &domain.ScanReport{
		Product: lookup.Product,
		Warning: lookup.Warning,
		Profile: profileIDs,
	}

	if lookup.IsPartial() || !lookup.Product.HasIngredients() {
		report.AnalysisStatus = domain.AnalysisStatusSkippedIngredients
		return report, nil
	}

	result, err := s.analysis.Analyze(ctx, domain.AnalysisInput{
		ProductName:        lookup.Product.ProductName,
		Ingredients:        lookup.Product.Ingredients,
		ProductDescription: lookup.Product.ProductDescription,
		AllergensProfile:   s.profile.Serialize(),
		Barcode:            lookup.Product.Barcode,
	})
	if err != nil {
		// Cancellation and a busy engine are returned as errors, not as a failed report
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, domain.ErrAnalysisInFlight) {
			return nil, err
		}
		s.logger.Warn("Scan analysis failed", "barcode", lookup.Product.Barcode, "error", err)
		report.AnalysisStatus = domain.AnalysisStatusFailed
		report.AnalysisError = err.Error()
		return report, nil
	}

	report.AnalysisStatus = domain.AnalysisStatusCompleted
	report.Analysis = result
	report.Highlights = s.highlighter.HighlightMatches(result.AllergensList, profileIDs)
	return report, nil
}
