package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrirwin/youthinvest/internal/kvstore"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
}

func (f *fakeClock) Now() time.Time { return f.t }

func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(t *testing.T) (*Cache, *kvstore.MemoryStore, *fakeClock) {
	t.Helper()
	store := kvstore.NewMemory()
	clock := newFakeClock()
	return New(store, DefaultPolicy(), WithClock(clock.Now)), store, clock
}

// failingStore fails every call.
type failingStore struct {
	err error
}

func (s failingStore) Get(string) (string, bool, error) { return "", false, s.err }

func (s failingStore) Set(string, string) error { return s.err }

func (s failingStore) Remove(string) error { return s.err }

type testResponse struct {
	OK        bool
	Items     []string
	FromCache bool
	Message   string
}

func (r *testResponse) Succeeded() bool { return r.OK }

func (r *testResponse) Payload() []string { return r.Items }

func (r *testResponse) SetFromCache(v bool) { r.FromCache = v }

func hitResponse(items []string) *testResponse {
	return &testResponse{OK: true, Items: items}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 5*time.Minute, p[Projects])
	assert.Equal(t, 5*time.Minute, p[Portfolio])
	assert.Equal(t, 60*time.Second, p[UserBalance])
	assert.Equal(t, 10*time.Minute, p[SimulationData])
}

func TestNew_FillsMissingPolicyEntries(t *testing.T) {
	c := New(kvstore.NewMemory(), Policy{UserBalance: 5 * time.Second, Projects: -1})

	assert.Equal(t, 5*time.Second, c.TTL(UserBalance))
	assert.Equal(t, 5*time.Minute, c.TTL(Projects))
	assert.Equal(t, 10*time.Minute, c.TTL(SimulationData))
}

func TestCache_Keys(t *testing.T) {
	c := New(kvstore.NewMemory(), nil)
	assert.Equal(t, "youthInvest_projects", c.Key(Projects))
	assert.Equal(t, "youthInvest_userBalance", c.Key(UserBalance))

	c = New(kvstore.NewMemory(), nil, WithKeyPrefix("test:"))
	assert.Equal(t, "test:simulationData", c.Key(SimulationData))
}

func TestCache_SetWritesEnvelope(t *testing.T) {
	c, store, clock := newTestCache(t)

	c.Set(UserBalance, 500)

	raw, ok, err := store.Get("youthInvest_userBalance")
	require.NoError(t, err)
	require.True(t, ok)

	var e struct {
		Data      json.RawMessage `json:"data"`
		Timestamp int64           `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.JSONEq(t, "500", string(e.Data))
	assert.Equal(t, clock.Now().UnixMilli(), e.Timestamp)
}

func TestCache_FreshWithinTTLExpiredAfter(t *testing.T) {
	for _, d := range Domains() {
		t.Run(string(d), func(t *testing.T) {
			c, store, clock := newTestCache(t)
			ttl := c.TTL(d)

			c.Set(d, []string{"x"})

			clock.Advance(ttl - time.Millisecond)
			got, ok := Lookup[[]string](c, d)
			require.True(t, ok, "entry should be fresh just inside its TTL")
			assert.Equal(t, []string{"x"}, got)

			clock.Advance(2 * time.Millisecond)
			_, ok = Lookup[[]string](c, d)
			assert.False(t, ok, "entry should be absent once past its TTL")

			_, found, _ := store.Get(c.Key(d))
			assert.False(t, found, "expired entry should be physically removed")
		})
	}
}

func TestCache_EntryExactlyTTLOldIsFresh(t *testing.T) {
	c, _, clock := newTestCache(t)

	c.Set(UserBalance, 10)
	clock.Advance(c.TTL(UserBalance))

	_, ok := c.Get(UserBalance)
	assert.True(t, ok)
}

func TestCache_UserBalanceExample(t *testing.T) {
	c, _, clock := newTestCache(t)
	start := clock.Now()

	c.Set(UserBalance, 500)

	clock.t = start.Add(59999 * time.Millisecond)
	got, ok := Lookup[float64](c, UserBalance)
	require.True(t, ok)
	assert.Equal(t, float64(500), got)

	clock.t = start.Add(60001 * time.Millisecond)
	_, ok = Lookup[float64](c, UserBalance)
	assert.False(t, ok)

	assert.False(t, c.Status().Entries[UserBalance].Exists)
}

func TestCache_ReadIsIdempotent(t *testing.T) {
	c, _, clock := newTestCache(t)
	c.Set(Projects, []string{"bakery"})
	clock.Advance(time.Minute)

	before := c.Status().Entries[Projects]
	first, ok1 := Lookup[[]string](c, Projects)
	second, ok2 := Lookup[[]string](c, Projects)
	after := c.Status().Entries[Projects]

	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.Equal(t, first, second)
	assert.Equal(t, before.StoredAt, after.StoredAt)
}

func TestCache_Overwrite(t *testing.T) {
	c, _, _ := newTestCache(t)

	c.Set(Portfolio, "x")
	c.Set(Portfolio, "y")

	got, ok := Lookup[string](c, Portfolio)
	require.True(t, ok)
	assert.Equal(t, "y", got)
}

func TestCache_ZeroBalanceIsAHit(t *testing.T) {
	c, _, _ := newTestCache(t)

	c.Set(UserBalance, 0)

	got, ok := Lookup[float64](c, UserBalance)
	require.True(t, ok)
	assert.Zero(t, got)
}

func TestCache_NullPayloadIsAMiss(t *testing.T) {
	c, _, _ := newTestCache(t)

	c.Set(Projects, nil)

	_, ok := c.Get(Projects)
	assert.False(t, ok)
}

func TestCache_MalformedEntryIsDiscarded(t *testing.T) {
	c, store, _ := newTestCache(t)
	require.NoError(t, store.Set(c.Key(Projects), "{not json"))

	_, ok := c.Get(Projects)
	assert.False(t, ok)

	_, found, _ := store.Get(c.Key(Projects))
	assert.False(t, found)
}

func TestCache_UndecodablePayloadIsDiscarded(t *testing.T) {
	c, store, _ := newTestCache(t)
	c.Set(UserBalance, "not a number")

	_, ok := Lookup[float64](c, UserBalance)
	assert.False(t, ok)

	_, found, _ := store.Get(c.Key(UserBalance))
	assert.False(t, found)
}

func TestCache_StoreFailuresAreSilent(t *testing.T) {
	c := New(failingStore{err: errors.New("quota exceeded")}, nil)

	assert.NotPanics(t, func() {
		c.Set(Projects, []string{"x"})
		c.InvalidateOnMutation()
		c.Clear()
	})

	_, ok := c.Get(Projects)
	assert.False(t, ok)

	report := c.Status()
	for _, d := range Domains() {
		assert.False(t, report.Entries[d].Exists)
	}
}

func TestCache_UnknownDomain(t *testing.T) {
	c, store, _ := newTestCache(t)

	c.Set(Domain("quiz"), 1)
	_, ok := c.Get(Domain("quiz"))

	assert.False(t, ok)
	assert.Zero(t, store.Len())
	assert.False(t, Domain("quiz").Valid())
	assert.True(t, UserBalance.Valid())
}

func TestCache_InvalidateOnMutation(t *testing.T) {
	c, _, _ := newTestCache(t)
	for _, d := range Domains() {
		c.Set(d, "fresh")
	}

	c.InvalidateOnMutation()

	for _, d := range MutationDomains() {
		_, ok := c.Get(d)
		assert.False(t, ok, "%s should be invalidated", d)
	}
	_, ok := c.Get(SimulationData)
	assert.True(t, ok, "simulation data should survive an investment")
}

func TestCache_ClearAndStatus(t *testing.T) {
	c, _, _ := newTestCache(t)
	for _, d := range Domains() {
		c.Set(d, 1)
	}
	c.markSynced()

	c.Clear()

	report := c.Status()
	require.Len(t, report.Entries, len(Domains()))
	for _, d := range Domains() {
		assert.False(t, report.Entries[d].Exists, "%s should be cleared", d)
	}
	assert.False(t, report.LastSync.Exists)
}

func TestCache_StatusDoesNotEvict(t *testing.T) {
	c, store, clock := newTestCache(t)
	c.Set(UserBalance, 100)
	storedAt := clock.Now()

	clock.Advance(2 * time.Minute)
	report := c.Status()

	st := report.Entries[UserBalance]
	assert.True(t, st.Exists)
	assert.Equal(t, storedAt.UnixMilli(), st.StoredAt.UnixMilli())
	assert.Equal(t, 2*time.Minute, st.Age)

	_, found, _ := store.Get(c.Key(UserBalance))
	assert.True(t, found, "status must not evict expired entries")
}

func TestCache_StatusLeavesMalformedEntries(t *testing.T) {
	c, store, _ := newTestCache(t)
	require.NoError(t, store.Set(c.Key(Projects), "{not json"))
	require.NoError(t, store.Set(c.prefix+lastSync, "{not json"))

	report := c.Status()
	assert.False(t, report.Entries[Projects].Exists)
	assert.False(t, report.LastSync.Exists)

	_, ok := c.LastSync()
	assert.False(t, ok)
	assert.Equal(t, 2, store.Len(), "diagnostics must not remove stored entries")

	_, ok = c.Get(Projects)
	assert.False(t, ok)
	_, found, _ := store.Get(c.Key(Projects))
	assert.False(t, found, "a read discards the malformed entry")
}

func TestEntryStatus_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(EntryStatus{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"exists":false,"timestamp":null,"age":null}`, string(data))

	data, err = json.Marshal(EntryStatus{Exists: true, StoredAt: time.UnixMilli(1000), Age: 1500 * time.Millisecond})
	require.NoError(t, err)
	assert.JSONEq(t, `{"exists":true,"timestamp":1000,"age":1500}`, string(data))
}

func TestReadThrough_MissFetchesOnceAndCaches(t *testing.T) {
	c, _, clock := newTestCache(t)
	calls := 0
	fetch := func(context.Context) (*testResponse, error) {
		calls++
		return &testResponse{OK: true, Items: []string{"bakery", "garden"}}, nil
	}

	resp, err := ReadThrough(context.Background(), c, Projects, fetch, hitResponse)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, resp.FromCache)
	assert.Equal(t, []string{"bakery", "garden"}, resp.Items)

	resp, err = ReadThrough(context.Background(), c, Projects, fetch, hitResponse)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "fresh hit must not call fetch")
	assert.True(t, resp.FromCache)
	assert.True(t, resp.OK)
	assert.Equal(t, []string{"bakery", "garden"}, resp.Items)

	synced, ok := c.LastSync()
	require.True(t, ok)
	assert.Equal(t, clock.Now().UnixMilli(), synced.UnixMilli())
}

func TestReadThrough_ExpiredEntryFetchesAgain(t *testing.T) {
	c, _, clock := newTestCache(t)
	calls := 0
	fetch := func(context.Context) (*testResponse, error) {
		calls++
		return &testResponse{OK: true, Items: []string{"v"}}, nil
	}

	_, err := ReadThrough(context.Background(), c, SimulationData, fetch, hitResponse)
	require.NoError(t, err)
	clock.Advance(c.TTL(SimulationData) + time.Millisecond)
	_, err = ReadThrough(context.Background(), c, SimulationData, fetch, hitResponse)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestReadThrough_FailureIsReturnedNotCached(t *testing.T) {
	c, store, _ := newTestCache(t)
	fetch := func(context.Context) (*testResponse, error) {
		return &testResponse{OK: false, Message: "User not found"}, nil
	}

	resp, err := ReadThrough(context.Background(), c, Portfolio, fetch, hitResponse)
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.False(t, resp.FromCache)
	assert.Equal(t, "User not found", resp.Message)
	assert.Zero(t, store.Len())

	_, ok := c.LastSync()
	assert.False(t, ok)
}

func TestReadThrough_FetchErrorPropagates(t *testing.T) {
	c, store, _ := newTestCache(t)
	boom := errors.New("connection refused")
	fetch := func(context.Context) (*testResponse, error) {
		return nil, boom
	}

	resp, err := ReadThrough(context.Background(), c, Projects, fetch, hitResponse)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, resp)
	assert.Zero(t, store.Len())
}

func TestReadThrough_StoreDownAlwaysFetches(t *testing.T) {
	c := New(failingStore{err: errors.New("unavailable")}, nil)
	calls := 0
	fetch := func(context.Context) (*testResponse, error) {
		calls++
		return &testResponse{OK: true, Items: []string{"x"}}, nil
	}

	for i := 0; i < 3; i++ {
		resp, err := ReadThrough(context.Background(), c, Projects, fetch, hitResponse)
		require.NoError(t, err)
		assert.False(t, resp.FromCache)
	}
	assert.Equal(t, 3, calls)
}
