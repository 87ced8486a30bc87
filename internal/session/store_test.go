package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usergraph-portal/internal/domain"
	"usergraph-portal/internal/gateway"
)

func testDefaults() gateway.Settings {
	return gateway.Settings{BaseURL: "https://api.example.com", APIKey: "default-key"}
}

func TestCreateAndLookup(t *testing.T) {
	st := NewStore(testDefaults(), time.Hour)

	s := st.Create()
	require.NotEmpty(t, s.ID())
	assert.False(t, s.Authenticated())
	assert.Equal(t, testDefaults(), s.Settings())

	got, ok := st.Lookup(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = st.Lookup("unknown")
	assert.False(t, ok)
}

func TestGetOrCreate(t *testing.T) {
	st := NewStore(testDefaults(), time.Hour)

	s := st.GetOrCreate("")
	assert.Same(t, s, st.GetOrCreate(s.ID()))
	assert.NotSame(t, s, st.GetOrCreate("stale-id"))
	assert.Equal(t, 2, st.Len())
}

func TestAuthTransition(t *testing.T) {
	st := NewStore(testDefaults(), time.Hour)
	s := st.Create()

	s.SetAuth(gateway.AuthResult{Token: "demo-123", Fallback: true})

	assert.True(t, s.Authenticated())
	token, fallback := s.Auth()
	assert.Equal(t, "demo-123", token)
	assert.True(t, fallback)

	// A later real login replaces the fallback token.
	s.SetAuth(gateway.AuthResult{Token: "real"})
	token, fallback = s.Auth()
	assert.Equal(t, "real", token)
	assert.False(t, fallback)
}

func TestUpdateSettingsPartial(t *testing.T) {
	st := NewStore(testDefaults(), time.Hour)
	s := st.Create()

	updated := s.UpdateSettings("https://other.example.com", "")
	assert.Equal(t, "https://other.example.com", updated.BaseURL)
	assert.Equal(t, "default-key", updated.APIKey, "empty field leaves value untouched")

	updated = s.UpdateSettings("", "new-key")
	assert.Equal(t, "https://other.example.com", updated.BaseURL)
	assert.Equal(t, "new-key", updated.APIKey)
}

func TestGraphSurvivesUntilReplaced(t *testing.T) {
	st := NewStore(testDefaults(), time.Hour)
	s := st.Create()

	_, ok := s.Graph()
	assert.False(t, ok)

	first := domain.GraphResult{Nodes: []domain.Node{{ID: "a", Label: "a"}}, Raw: []byte(`{"nodes":[]}`)}
	s.SetGraph(first)

	got, ok := s.Graph()
	require.True(t, ok)
	assert.Equal(t, first, got)

	second := domain.GraphResult{Nodes: []domain.Node{{ID: "b", Label: "b"}}}
	s.SetGraph(second)
	got, _ = s.Graph()
	assert.Equal(t, second, got)
}

func TestSweepDropsIdleSessions(t *testing.T) {
	st := NewStore(testDefaults(), 10*time.Minute)
	base := time.Now()
	st.now = func() time.Time { return base }

	idle := st.Create()
	active := st.Create()

	st.now = func() time.Time { return base.Add(11 * time.Minute) }
	_, ok := st.Lookup(active.ID()) // refreshes idle timer
	require.True(t, ok)

	st.Sweep()

	assert.Equal(t, 1, st.Len())
	_, ok = st.Lookup(idle.ID())
	assert.False(t, ok)
	_, ok = st.Lookup(active.ID())
	assert.True(t, ok)
}

func TestHotReloadDefaultsAffectOnlyNewSessions(t *testing.T) {
	st := NewStore(testDefaults(), time.Hour)
	old := st.Create()

	st.SetDefaults(gateway.Settings{BaseURL: "https://reloaded.example.com"})

	assert.Equal(t, "https://api.example.com", old.Settings().BaseURL)
	assert.Equal(t, "https://reloaded.example.com", st.Create().Settings().BaseURL)
}
