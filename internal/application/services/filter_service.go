package services

import (
	"fmt"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/messaging"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/workspace"
)

// FilterService applies filter changes through the transition guard so that
// in-flight evaluations against the outgoing combination can never pollute
// the cache.
type FilterService struct {
	broadcaster messaging.Broadcaster
}

// NewFilterService creates a new filter application service.
func NewFilterService(broadcaster messaging.Broadcaster) *FilterService {
	return &FilterService{broadcaster: broadcaster}
}

// FilterState reports the workspace's selection after a change.
type FilterState struct {
	Filters     ledger.FilterSet `json:"filters"`
	Fingerprint string           `json:"fingerprint"`
}

// UpdateBook switches the accounting book. A book change also invalidates
// the subsidiary selection: subsidiaries are book-scoped, so the old one
// stays guarded until UpdateSubsidiary confirms a compatible replacement.
func (s *FilterService) UpdateBook(wsCtx *workspace.Context, newBook string) (FilterState, error) {
	if newBook == "" {
		return FilterState{}, fmt.Errorf("book cannot be empty")
	}

	old := wsCtx.Filters()
	guard := wsCtx.Guard()

	guard.Begin(ledger.DimBook, old.Book)
	if old.Subsidiary != "" {
		guard.Begin(ledger.DimSubsidiary, old.Subsidiary)
	}

	next := old
	next.Book = newBook
	wsCtx.SetFilters(next)

	guard.Confirm(ledger.DimBook, newBook)

	s.notifyInvalidated(wsCtx, "book changed")
	return s.state(wsCtx), nil
}

// UpdateSubsidiary selects a subsidiary, completing a pending book
// transition when one is active.
func (s *FilterService) UpdateSubsidiary(wsCtx *workspace.Context, newSubsidiary string) (FilterState, error) {
	if newSubsidiary == "" {
		return FilterState{}, fmt.Errorf("subsidiary cannot be empty")
	}

	normalized := ledger.NormalizeSubsidiary(newSubsidiary)
	old := wsCtx.Filters()
	guard := wsCtx.Guard()

	guard.Begin(ledger.DimSubsidiary, old.Subsidiary)

	next := old
	next.Subsidiary = normalized
	wsCtx.SetFilters(next)

	guard.Confirm(ledger.DimSubsidiary, normalized)

	s.notifyInvalidated(wsCtx, "subsidiary changed")
	return s.state(wsCtx), nil
}

// UpdateDimension changes an independent dimension (department, location,
// class). Independent dimensions transition alone; nothing else is guarded.
func (s *FilterService) UpdateDimension(wsCtx *workspace.Context, dim ledger.Dimension, newValue string) (FilterState, error) {
	switch dim {
	case ledger.DimDepartment, ledger.DimLocation, ledger.DimClass:
	case ledger.DimBook:
		return s.UpdateBook(wsCtx, newValue)
	case ledger.DimSubsidiary:
		return s.UpdateSubsidiary(wsCtx, newValue)
	default:
		return FilterState{}, fmt.Errorf("unknown filter dimension %q", dim)
	}

	old := wsCtx.Filters()
	guard := wsCtx.Guard()

	guard.Begin(dim, old.Value(dim))

	next := old
	switch dim {
	case ledger.DimDepartment:
		next.Department = newValue
	case ledger.DimLocation:
		next.Location = newValue
	case ledger.DimClass:
		next.Class = newValue
	}
	wsCtx.SetFilters(next)

	guard.Confirm(dim, newValue)

	s.notifyInvalidated(wsCtx, fmt.Sprintf("%s changed", dim))
	return s.state(wsCtx), nil
}

// State reports the current selection without changing anything.
func (s *FilterService) State(wsCtx *workspace.Context) FilterState {
	return s.state(wsCtx)
}

func (s *FilterService) state(wsCtx *workspace.Context) FilterState {
	filters := wsCtx.Filters()
	return FilterState{
		Filters:     filters,
		Fingerprint: string(ledger.ComputeFingerprint(filters)),
	}
}

func (s *FilterService) notifyInvalidated(wsCtx *workspace.Context, reason string) {
	if s.broadcaster != nil {
		s.broadcaster.NotifyInvalidated(wsCtx.WorkspaceID, reason)
	}
}
