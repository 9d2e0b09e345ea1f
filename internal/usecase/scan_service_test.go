package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/allergenscan/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanFixture struct {
	client   *MockProductClient
	reasoner *MockReasoner
	backend  *MockProfileBackend
	svc      *ScanService
}

func newScanFixture(t *testing.T, product *domain.OFFProduct, profile string, replies ...*domain.ReasoningReply) *scanFixture {
	t.Helper()
	f := &scanFixture{
		client:   NewMockProductClient(product),
		reasoner: NewMockReasoner(replies...),
		backend:  &MockProfileBackend{data: []byte(profile)},
	}
	lookup := newTestLookupService(NewMockCacheRepository(), f.client)
	analysis := newTestAnalysisService(f.reasoner, 2)
	store := NewProfileStore(context.Background(), f.backend, discardLogger())
	f.svc = NewScanService(lookup, analysis, store, NewHighlighter(HighlightModeFirstToken), discardLogger())
	return f
}

func TestScan_Completed(t *testing.T) {
	f := newScanFixture(t,
		&domain.OFFProduct{ProductName: "Peanut Cookies", IngredientsText: "Wheat flour, peanuts, milk powder"},
		`["peanuts"]`,
		textReply(`{"containsAllergens": true, "safeToConsume": false, "allergensList": ["Peanuts", "Milk", "Wheat"], "reasoning": "Contains peanuts, milk and wheat."}`),
	)

	report, err := f.svc.Scan(context.Background(), "111")
	require.NoError(t, err)

	assert.Equal(t, domain.AnalysisStatusCompleted, report.AnalysisStatus)
	assert.Equal(t, "Peanut Cookies", report.Product.ProductName)
	assert.Equal(t, []string{"peanuts"}, report.Profile)
	require.NotNil(t, report.Analysis)
	assert.False(t, report.Analysis.SafeToConsume)
	assert.Equal(t, []domain.HighlightedAllergen{
		{Name: "Peanuts", IsUserMatch: true},
		{Name: "Milk", IsUserMatch: false},
		{Name: "Wheat", IsUserMatch: false},
	}, report.Highlights)

	requests := f.reasoner.Requests()
	require.Len(t, requests, 1)
	assert.True(t, strings.Contains(requests[0].Messages[0].Text, "User allergen profile: peanuts\n"), "serialized profile is sent")
}

func TestScan_SkipsAnalysisWithoutIngredients(t *testing.T) {
	f := newScanFixture(t, &domain.OFFProduct{ProductName: "Mystery Bar"}, `["milk"]`)

	report, err := f.svc.Scan(context.Background(), "222")
	require.NoError(t, err)

	assert.Equal(t, domain.AnalysisStatusSkippedIngredients, report.AnalysisStatus)
	assert.Equal(t, domain.WarningIngredientsMissing, report.Warning)
	assert.Nil(t, report.Analysis)
	assert.Empty(t, f.reasoner.Requests(), "engine is never called without ingredients")
}

func TestScan_AnalysisFailureKeepsProduct(t *testing.T) {
	f := newScanFixture(t,
		&domain.OFFProduct{ProductName: "Crackers", IngredientsText: "Wheat, salt"},
		`[]`,
		textReply("I think it is probably fine"),
	)

	report, err := f.svc.Scan(context.Background(), "333")
	require.NoError(t, err)

	assert.Equal(t, domain.AnalysisStatusFailed, report.AnalysisStatus)
	assert.Nil(t, report.Analysis, "no default verdict on failure")
	assert.Contains(t, report.AnalysisError, "malformed_output")
	assert.Equal(t, "Crackers", report.Product.ProductName)
}

func TestScan_BackendFailure(t *testing.T) {
	f := newScanFixture(t,
		&domain.OFFProduct{ProductName: "Crackers", IngredientsText: "Wheat, salt"},
		`[]`,
	)
	f.reasoner.errs = []error{errors.New("connection reset")}

	report, err := f.svc.Scan(context.Background(), "333")
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisStatusFailed, report.AnalysisStatus)
	assert.Contains(t, report.AnalysisError, "backend")
}

func TestScan_LookupErrorsReturned(t *testing.T) {
	f := newScanFixture(t, nil, `[]`)
	f.client.err = domain.ErrProductNotFound

	_, err := f.svc.Scan(context.Background(), "404")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = f.svc.Scan(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestScan_InFlightIsAnError(t *testing.T) {
	f := newScanFixture(t,
		&domain.OFFProduct{ProductName: "Crackers", IngredientsText: "Wheat, salt"},
		`[]`,
		textReply(`{"containsAllergens": true, "safeToConsume": false, "allergensList": ["Wheat"], "reasoning": "Wheat is gluten."}`),
	)
	f.reasoner.block = make(chan struct{})
	f.reasoner.started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Scan(context.Background(), "1")
		done <- err
	}()

	select {
	case <-f.reasoner.started:
	case <-time.After(time.Second):
		t.Fatal("first scan never reached the engine")
	}

	_, err := f.svc.Scan(context.Background(), "2")
	assert.ErrorIs(t, err, domain.ErrAnalysisInFlight)

	close(f.reasoner.block)
	require.NoError(t, <-done)
}
