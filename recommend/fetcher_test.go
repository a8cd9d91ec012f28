// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// echoRetriever returns one entity per call, named after the call's
// coordinates, so merge order is observable.
type echoRetriever struct {
	mu      sync.Mutex
	filters []RetrievalFilters
}

func (m *echoRetriever) FetchByTags(_ context.Context, tagIDs []string, filters RetrievalFilters, sort SortOrder, offset, _ int) ([]RawEntity, error) {
	m.mu.Lock()
	m.filters = append(m.filters, filters)
	m.mu.Unlock()
	name := fmt.Sprintf("%s|%s|%d", tagIDs[0], sort, offset)
	return []RawEntity{{ID: name, Name: name, Popularity: 0.5}}, nil
}

func (m *echoRetriever) SearchEntity(context.Context, string, Domain) (*RawEntity, error) {
	return nil, nil
}

func (m *echoRetriever) seenFilters() []RetrievalFilters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RetrievalFilters(nil), m.filters...)
}

func testFetcher(retriever PrimaryRetriever) *CandidateFetcher {
	return NewCandidateFetcher(retriever, DefaultConfig().Fetcher, testLogger())
}

func testTags(ids ...string) []ResolvedTag {
	out := make([]ResolvedTag, 0, len(ids))
	for _, id := range ids {
		out = append(out, resolvedTag(id, id))
	}
	return out
}

// --- Test: strategiesForSeed ---

func TestStrategiesForSeed(t *testing.T) {
	t.Parallel()

	const seed = 0xfeedbeef

	got := strategiesForSeed(seed, 50, false)
	if len(got) != 3 {
		t.Fatalf("strategiesForSeed() produced %d strategies without signals, want 3", len(got))
	}
	wantNames := []string{strategyBaseline, strategyDiversity, strategyPopular}
	for i, s := range got {
		if s.Name != wantNames[i] {
			t.Errorf("strategy %d = %q, want %q", i, s.Name, wantNames[i])
		}
		if s.UseSignals {
			t.Errorf("strategy %q marked UseSignals without signals", s.Name)
		}
	}
	if got[0].Offset != 0 {
		t.Errorf("baseline offset = %d, want 0", got[0].Offset)
	}
	if got[1].Offset < 1 || got[1].Offset > 50 {
		t.Errorf("diversity offset = %d, want within the spread", got[1].Offset)
	}

	withSignals := strategiesForSeed(seed, 50, true)
	if len(withSignals) != 4 {
		t.Fatalf("strategiesForSeed() produced %d strategies with signals, want 4", len(withSignals))
	}
	last := withSignals[3]
	if last.Name != strategySignal || !last.UseSignals {
		t.Errorf("final strategy = %q (signals %v), want the signal strategy", last.Name, last.UseSignals)
	}

	// Same seed reproduces the same offsets.
	again := strategiesForSeed(seed, 50, true)
	for i := range withSignals {
		if withSignals[i].Offset != again[i].Offset {
			t.Errorf("strategy %d offset differs across derivations: %d vs %d",
				i, withSignals[i].Offset, again[i].Offset)
		}
	}

	// A non-positive spread degrades to offsets derived over 1.
	narrow := strategiesForSeed(seed, 0, false)
	if narrow[1].Offset != 1 {
		t.Errorf("diversity offset = %d with zero spread, want 1", narrow[1].Offset)
	}
}

// --- Test: Fetch ---

func TestFetcher_NilRetriever(t *testing.T) {
	t.Parallel()

	f := testFetcher(nil)
	pool, info := f.Fetch(context.Background(), testTags("t-indie"), nil, "", 20, FetchOptions{})
	if pool != nil {
		t.Errorf("Fetch() pool = %v, want nil without a retriever", pool)
	}
	if info.Calls != 0 {
		t.Errorf("Calls = %d, want 0", info.Calls)
	}
}

func TestFetcher_NoTags(t *testing.T) {
	t.Parallel()

	f := testFetcher(&mockRetriever{entities: primaryEntities("a", 3)})
	pool, info := f.Fetch(context.Background(), nil, nil, "", 20, FetchOptions{})
	if len(pool) != 0 || info.Calls != 0 {
		t.Errorf("Fetch() = %d candidates over %d calls, want none without tags", len(pool), info.Calls)
	}
}

func TestFetcher_MergeOrderIsDeterministic(t *testing.T) {
	t.Parallel()

	retriever := &echoRetriever{}
	f := testFetcher(retriever)

	pool, info := f.Fetch(context.Background(), testTags("t1", "t2"), nil, "", 20, FetchOptions{})

	if info.Calls != 6 {
		t.Fatalf("Calls = %d, want 2 tags x 3 strategies", info.Calls)
	}
	if len(pool) != 6 {
		t.Fatalf("pool size = %d, want one candidate per call", len(pool))
	}
	// Submission order: tag-major, strategy-minor, regardless of which
	// goroutine finished first.
	wantStrategies := []string{
		strategyBaseline, strategyDiversity, strategyPopular,
		strategyBaseline, strategyDiversity, strategyPopular,
	}
	for i, c := range pool {
		if c.SourceStrategy != wantStrategies[i] {
			t.Errorf("pool[%d] strategy = %q, want %q", i, c.SourceStrategy, wantStrategies[i])
		}
		wantTag := "t1"
		if i >= 3 {
			wantTag = "t2"
		}
		if c.Name[:2] != wantTag {
			t.Errorf("pool[%d] from tag %q, want %q", i, c.Name, wantTag)
		}
		if c.VarietySeed != info.Seed {
			t.Errorf("pool[%d] seed = %d, want %d", i, c.VarietySeed, info.Seed)
		}
		if c.SourceProvider != "primary" {
			t.Errorf("pool[%d] provider = %q, want primary", i, c.SourceProvider)
		}
	}
}

func TestFetcher_ClampsTagCount(t *testing.T) {
	t.Parallel()

	retriever := &echoRetriever{}
	f := testFetcher(retriever)

	_, info := f.Fetch(context.Background(),
		testTags("t1", "t2", "t3", "t4", "t5", "t6", "t7"), nil, "", 20, FetchOptions{})

	// MaxTags 5 times 3 strategies.
	if info.Calls != 15 {
		t.Errorf("Calls = %d, want 15 after tag clamping", info.Calls)
	}
}

func TestFetcher_SignalStrategy(t *testing.T) {
	t.Parallel()

	retriever := &echoRetriever{}
	f := testFetcher(retriever)

	signal := &UserSignal{ArtistIDs: []string{"artist-1"}, TrackIDs: []string{"track-1"}}
	pool, info := f.Fetch(context.Background(), testTags("t1", "t2"), signal, "", 20, FetchOptions{})

	if info.Calls != 8 {
		t.Fatalf("Calls = %d, want 2 tags x 4 strategies with taste signals", info.Calls)
	}

	tasteWeighted := 0
	for _, c := range pool {
		if c.UserTasteRelevance {
			tasteWeighted++
			if c.SourceStrategy != strategySignal {
				t.Errorf("taste-weighted candidate from strategy %q, want %q", c.SourceStrategy, strategySignal)
			}
		}
	}
	if tasteWeighted != 2 {
		t.Errorf("taste-weighted candidates = %d, want one per tag", tasteWeighted)
	}

	signalCalls := 0
	for _, filters := range retriever.seenFilters() {
		if len(filters.SignalEntityIDs) > 0 {
			signalCalls++
			if len(filters.SignalEntityIDs) != 2 {
				t.Errorf("signal call carried %d entity ids, want 2", len(filters.SignalEntityIDs))
			}
		}
	}
	if signalCalls != 2 {
		t.Errorf("calls carrying signal ids = %d, want 2", signalCalls)
	}
}

func TestFetcher_BroadenedLiftsFloorAndSignals(t *testing.T) {
	t.Parallel()

	retriever := &echoRetriever{}
	f := testFetcher(retriever)

	signal := &UserSignal{ArtistIDs: []string{"artist-1"}}
	_, info := f.Fetch(context.Background(), testTags("t1"), signal, "", 20, FetchOptions{Broadened: true})

	// Broadened retrieval drops the signal strategy.
	if info.Calls != 3 {
		t.Errorf("Calls = %d, want 3 without the signal strategy", info.Calls)
	}
	for i, filters := range retriever.seenFilters() {
		if filters.PopularityMin != 0 {
			t.Errorf("call %d popularity floor = %f, want 0 when broadened", i, filters.PopularityMin)
		}
		if len(filters.SignalEntityIDs) != 0 {
			t.Errorf("call %d carried signal ids when broadened", i)
		}
	}
}

func TestFetcher_DefaultFloorApplied(t *testing.T) {
	t.Parallel()

	retriever := &echoRetriever{}
	f := testFetcher(retriever)

	f.Fetch(context.Background(), testTags("t1"), nil, "Mumbai, India", 20, FetchOptions{})

	for i, filters := range retriever.seenFilters() {
		if !almostEqual(filters.PopularityMin, 0.05) {
			t.Errorf("call %d popularity floor = %f, want the configured 0.05", i, filters.PopularityMin)
		}
		if filters.Location != "Mumbai, India" {
			t.Errorf("call %d location = %q, want passthrough", i, filters.Location)
		}
		if filters.Domain != DomainMusic {
			t.Errorf("call %d domain = %v, want music", i, filters.Domain)
		}
	}
}

func TestFetcher_AbsorbsFailures(t *testing.T) {
	t.Parallel()

	retriever := &mockRetriever{err: errors.New("retrieval down")}
	f := testFetcher(retriever)

	pool, info := f.Fetch(context.Background(), testTags("t1", "t2"), nil, "", 20, FetchOptions{})

	if len(pool) != 0 {
		t.Errorf("pool size = %d, want 0 when every call fails", len(pool))
	}
	if info.Failures != info.Calls || info.Calls != 6 {
		t.Errorf("failures = %d of %d calls, want all 6", info.Failures, info.Calls)
	}
}

func TestFetcher_CountsEmptyCalls(t *testing.T) {
	t.Parallel()

	retriever := &mockRetriever{} // no entities, no error
	f := testFetcher(retriever)

	pool, info := f.Fetch(context.Background(), testTags("t1"), nil, "", 20, FetchOptions{})

	if len(pool) != 0 {
		t.Errorf("pool size = %d, want 0", len(pool))
	}
	if info.Empties != 3 || info.Failures != 0 {
		t.Errorf("empties = %d, failures = %d, want 3 and 0", info.Empties, info.Failures)
	}
}

// --- Test: toCandidate ---

func TestFetcher_CandidateShape(t *testing.T) {
	t.Parallel()

	f := testFetcher(nil)
	call := fetchCall{
		tag:      resolvedTag("t1", "indie"),
		strategy: Strategy{Name: strategyDiversity, Sort: SortRelevance, Offset: 3},
	}

	got := f.toCandidate(RawEntity{
		ID:         "e1",
		Name:       "Some Artist",
		Popularity: 1.4,
		Tags:       []string{"indie"},
	}, call, DomainMusic, 99)

	if got.Identity != "e1" {
		t.Errorf("Identity = %q, want the provider id", got.Identity)
	}
	if got.Type != "artist" {
		t.Errorf("Type = %q, want the music default artist", got.Type)
	}
	if got.Popularity != 1 {
		t.Errorf("Popularity = %f, want clamped to 1", got.Popularity)
	}
	if got.SourceStrategy != strategyDiversity || got.SourceProvider != "primary" {
		t.Errorf("source = %s/%s, want diversity/primary", got.SourceStrategy, got.SourceProvider)
	}
	if got.VarietySeed != 99 {
		t.Errorf("VarietySeed = %d, want 99", got.VarietySeed)
	}
}

// --- Test: clamp01 ---

func TestClamp01(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.3, 0.3},
		{1, 1},
		{1.7, 1},
	}
	for _, tt := range tests {
		if got := clamp01(tt.in); got != tt.want {
			t.Errorf("clamp01(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}
