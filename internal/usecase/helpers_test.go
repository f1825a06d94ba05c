package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

type sequenceIDs struct {
	prefix string
	n      atomic.Int64
}

func (s *sequenceIDs) NewID() (string, error) {
	return fmt.Sprintf("%s-%d", s.prefix, s.n.Add(1)), nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// fakeOdds serves canned bodies per market group and records every query.
type fakeOdds struct {
	mu        sync.Mutex
	responses map[string][]byte
	errs      map[string]error
	queries   []OddsQuery
	sports    []ProviderSport
}

func newFakeOdds() *fakeOdds {
	return &fakeOdds{responses: map[string][]byte{}, errs: map[string]error{}}
}

func (f *fakeOdds) on(markets, body string) *fakeOdds {
	f.responses[markets] = []byte(body)
	return f
}

func (f *fakeOdds) fail(markets string, err error) *fakeOdds {
	f.errs[markets] = err
	return f
}

func (f *fakeOdds) FetchOdds(_ context.Context, query OddsQuery) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, query)
	if err := f.errs[query.Markets]; err != nil {
		return nil, err
	}
	if body, ok := f.responses[query.Markets]; ok {
		return body, nil
	}
	return []byte("[]"), nil
}

func (f *fakeOdds) FetchSports(context.Context, bool) ([]ProviderSport, error) {
	return f.sports, nil
}

func (f *fakeOdds) calls() []OddsQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]OddsQuery(nil), f.queries...)
}
