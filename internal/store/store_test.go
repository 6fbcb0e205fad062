package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"StrategyDesk/internal/persist"
)

type counterState struct {
	ID      int      `json:"id"`
	Token   string   `json:"token"`
	Scratch string   `json:"scratch"`
	Tags    []string `json:"tags"`
}

func initialCounter() counterState {
	return counterState{ID: -1}
}

func clientEnv() persist.Environment { return persist.Client }

func defineCounter(t *testing.T, reg *Registry, b persist.Backend) *Handle[counterState] {
	t.Helper()
	h, err := Define(reg, "counter", Spec[counterState]{
		Initial: initialCounter,
		Persist: &PersistencePolicy{
			Resolve: persist.ClientOnly(b),
			Fields:  []string{"id", "token", "tags"},
		},
	})
	require.NoError(t, err)
	return h
}

func TestDefine_DuplicateName(t *testing.T) {
	reg := NewRegistry()
	_, err := Define(reg, "user", Spec[counterState]{Initial: initialCounter})
	require.NoError(t, err)

	_, err = Define(reg, "user", Spec[counterState]{Initial: initialCounter})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateStore))
	assert.Equal(t, []string{"user"}, reg.Names())
}

func TestDefine_Validation(t *testing.T) {
	reg := NewRegistry()
	_, err := Define(reg, "", Spec[counterState]{Initial: initialCounter})
	assert.Error(t, err)

	_, err = Define(reg, "x", Spec[counterState]{})
	assert.Error(t, err)
}

func TestUse_ReturnsSingleton(t *testing.T) {
	reg := NewRegistry()
	h := defineCounter(t, reg, nil)

	a := h.Use()
	b := h.Use()
	require.Same(t, a, b)

	a.Update(func(s *counterState) { s.ID = 7 })
	assert.Equal(t, 7, b.State().ID)
}

func TestUpdate_WritesProjection(t *testing.T) {
	b := persist.NewMemory()
	reg := NewRegistry(WithEnvironment(clientEnv))
	s := defineCounter(t, reg, b).Use()
	require.True(t, s.Persistent())

	s.Update(func(st *counterState) {
		st.ID = 42
		st.Scratch = "not persisted"
	})

	raw, ok, err := b.GetItem(Key("counter"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":42,"token":"","tags":null}`, raw)
}

func TestUpdate_WritesEvenWhenUnchanged(t *testing.T) {
	b := &countingBackend{Backend: persist.NewMemory()}
	reg := NewRegistry(WithEnvironment(clientEnv))
	s := defineCounter(t, reg, b).Use()

	s.Update(func(st *counterState) { st.ID = 5 })
	s.Update(func(st *counterState) { st.ID = 5 })

	assert.Equal(t, 2, b.sets)
	assert.Equal(t, 5, s.State().ID)
}

func TestRoundTrip_AcrossRegistries(t *testing.T) {
	b := persist.NewMemory()

	first := defineCounter(t, NewRegistry(WithEnvironment(clientEnv)), b).Use()
	first.Update(func(st *counterState) {
		st.ID = 9
		st.Token = "tok"
		st.Tags = []string{"a", "b"}
		st.Scratch = "lost on reload"
	})

	second := defineCounter(t, NewRegistry(WithEnvironment(clientEnv)), b).Use()
	got := second.State()
	assert.Equal(t, 9, got.ID)
	assert.Equal(t, "tok", got.Token)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	assert.Equal(t, "", got.Scratch, "undeclared fields reset to initial state")
}

func TestRestore_IgnoresUndeclaredStoredFields(t *testing.T) {
	b := persist.NewMemory()
	require.NoError(t, b.SetItem("counter", `{"id":3,"scratch":"sneaky"}`))

	s := defineCounter(t, NewRegistry(WithEnvironment(clientEnv)), b).Use()
	assert.Equal(t, 3, s.State().ID)
	assert.Equal(t, "", s.State().Scratch)
}

func TestServerEnvironment_DoesNotPersist(t *testing.T) {
	b := persist.NewMemory()
	require.NoError(t, b.SetItem("counter", `{"id":3}`))

	s := defineCounter(t, NewRegistry(), b).Use()
	assert.False(t, s.Persistent())
	assert.Equal(t, -1, s.State().ID, "server context must not read client storage")

	s.Update(func(st *counterState) { st.ID = 11 })
	raw, _, err := b.GetItem("counter")
	require.NoError(t, err)
	assert.Equal(t, `{"id":3}`, raw)
}

func TestEnvironment_EvaluatedAtConstruction(t *testing.T) {
	b := persist.NewMemory()
	env := persist.Server
	reg := NewRegistry(WithEnvironment(func() persist.Environment { return env }))

	serverSide := defineCounter(t, reg, b)
	env = persist.Client
	h, err := Define(reg, "other", Spec[counterState]{
		Initial: initialCounter,
		Persist: &PersistencePolicy{Resolve: persist.ClientOnly(b), Fields: []string{"id"}},
	})
	require.NoError(t, err)

	// Both are constructed after the switch, so both see the client backend.
	assert.True(t, serverSide.Use().Persistent())
	assert.True(t, h.Use().Persistent())
}

func TestRestore_CorruptValueFallsBackToInitial(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	b := persist.NewMemory()
	require.NoError(t, b.SetItem("counter", `{"id":"not a number"}`))

	reg := NewRegistry(WithEnvironment(clientEnv), WithLogger(zap.New(core)))
	s := defineCounter(t, reg, b).Use()

	assert.Equal(t, initialCounter(), s.State())
	assert.Equal(t, 1, logs.FilterMessage("discarding unreadable persisted fields").Len())
}

func TestRestore_CorruptFileDocumentRecoversOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	core, logs := observer.New(zapcore.DebugLevel)
	reg := NewRegistry(WithEnvironment(clientEnv), WithLogger(zap.New(core)))
	s := defineCounter(t, reg, persist.NewFile(path, nil)).Use()
	assert.Equal(t, -1, s.State().ID)
	readErrs := logs.FilterMessage("read persisted fields").All()
	require.Len(t, readErrs, 1)
	assert.Equal(t, "counter", readErrs[0].ContextMap()["store"])

	s.Update(func(st *counterState) {
		st.ID = 42
		st.Token = "tok"
	})

	reloaded := defineCounter(t, NewRegistry(WithEnvironment(clientEnv)), persist.NewFile(path, nil)).Use()
	assert.Equal(t, 42, reloaded.State().ID)
	assert.Equal(t, "tok", reloaded.State().Token)
}

func TestUpdate_BackendFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	reg := NewRegistry(WithEnvironment(clientEnv), WithLogger(zap.New(core)))
	s := defineCounter(t, reg, failingBackend{}).Use()

	s.Update(func(st *counterState) { st.ID = 1 })

	assert.Equal(t, 1, s.State().ID)
	entries := logs.FilterMessage("write persisted fields").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "counter", entries[0].ContextMap()["store"])
}

type countingBackend struct {
	persist.Backend
	sets int
}

func (c *countingBackend) SetItem(key, value string) error {
	c.sets++
	return c.Backend.SetItem(key, value)
}

type failingBackend struct{}

func (failingBackend) GetItem(string) (string, bool, error) { return "", false, nil }
func (failingBackend) SetItem(string, string) error         { return errors.New("disk full") }
