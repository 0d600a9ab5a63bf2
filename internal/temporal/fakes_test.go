package temporal

import (
	"context"
	"database/sql"
	"sync"

	"flyclaim-tracker/internal/domain"
)

type fakeStore struct {
	mu        sync.Mutex
	drafts    map[string]domain.Draft
	events    map[string][]domain.DraftEventState
	snapshots map[string][]domain.ClaimSnapshot
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		drafts:    make(map[string]domain.Draft),
		events:    make(map[string][]domain.DraftEventState),
		snapshots: make(map[string][]domain.ClaimSnapshot),
	}
}

func (f *fakeStore) GetDraft(_ context.Context, draftID string) (domain.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drafts[draftID]
	if !ok {
		return domain.Draft{}, sql.ErrNoRows
	}
	return d, nil
}

func (f *fakeStore) SaveDraft(_ context.Context, draftID string, fields domain.DraftClaim) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drafts[draftID]
	if !ok {
		return sql.ErrNoRows
	}
	d.Fields = fields
	f.drafts[draftID] = d
	return nil
}

func (f *fakeStore) SetScanStatus(_ context.Context, draftID string, status domain.ScanStatus, message *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.drafts[draftID]
	d.ScanStatus = status
	d.ScanMessage = message
	f.drafts[draftID] = d
	return nil
}

func (f *fakeStore) InsertDraftEvent(_ context.Context, draftID string, state domain.DraftEventState, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[draftID] = append(f.events[draftID], state)
	return nil
}

func (f *fakeStore) InsertSnapshot(_ context.Context, snap domain.ClaimSnapshot) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	history := f.snapshots[snap.ClaimReference]
	if n := len(history); n > 0 {
		last := history[n-1]
		if last.Status == snap.Status && last.DecisionTitle == snap.DecisionTitle && last.FollowUpAction == snap.FollowUpAction {
			return false, nil
		}
	}
	f.snapshots[snap.ClaimReference] = append(history, snap)
	return true, nil
}

func (f *fakeStore) draft(id string) domain.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drafts[id]
}

func (f *fakeStore) history(reference string) []domain.ClaimSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ClaimSnapshot(nil), f.snapshots[reference]...)
}

type fakeTickets struct {
	images map[string][]byte
}

func (f *fakeTickets) GetTicketImage(_ context.Context, objectKey string) ([]byte, string, error) {
	img, ok := f.images[objectKey]
	if !ok {
		return nil, "", sql.ErrNoRows
	}
	return img, "image/png", nil
}

// stubUpstream replays claim statuses in order, repeating the last one.
type stubUpstream struct {
	mu          sync.Mutex
	extraction  domain.ExtractionResult
	extractErr  error
	claims      []domain.Claim
	claimErrs   []error
	extractArgs []string
	getCalls    int
}

func (s *stubUpstream) ExtractTicket(_ context.Context, filename string, contentType string, _ []byte) (domain.ExtractionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extractArgs = append(s.extractArgs, filename+"|"+contentType)
	if s.extractErr != nil {
		return domain.ExtractionResult{}, s.extractErr
	}
	return s.extraction, nil
}

func (s *stubUpstream) GetClaim(_ context.Context, reference string) (domain.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.getCalls
	s.getCalls++
	if idx < len(s.claimErrs) && s.claimErrs[idx] != nil {
		return domain.Claim{}, s.claimErrs[idx]
	}
	if len(s.claims) == 0 {
		return domain.Claim{ClaimReference: reference, Status: domain.StatusInitiated}, nil
	}
	if idx >= len(s.claims) {
		idx = len(s.claims) - 1
	}
	return s.claims[idx], nil
}

func (s *stubUpstream) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls
}

func strPtr(v string) *string { return &v }
