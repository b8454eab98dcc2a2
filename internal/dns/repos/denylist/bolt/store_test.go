package bolt

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-relay/internal/dns/domain"
	"github.com/haukened/rr-relay/internal/dns/repos/denylist"
)

var added = time.Unix(1_700_000_000, 0)

func openStore(t *testing.T) denylist.Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "deny.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func rule(t *testing.T, name string, kind domain.DenyRuleKind, source string) domain.DenyRule {
	t.Helper()
	r, err := domain.NewDenyRule(name, kind, source, added)
	require.NoError(t, err)
	return r
}

func TestStore_FirstMatch(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Rebuild([]domain.DenyRule{
		rule(t, "ads.example.com", domain.DenyExact, "ads.txt"),
		rule(t, "tracker.net", domain.DenySuffix, "trackers.list"),
		rule(t, "deep.tracker.net", domain.DenySuffix, "deep.list"),
	}, 3, added.Unix()))

	tests := []struct {
		name   string
		found  bool
		rule   string
		kind   domain.DenyRuleKind
		source string
	}{
		{"ads.example.com", true, "ads.example.com", domain.DenyExact, "ads.txt"},
		{"www.ads.example.com", false, "", 0, ""},
		{"example.com", false, "", 0, ""},
		{"tracker.net", true, "tracker.net", domain.DenySuffix, "trackers.list"},
		{"a.b.tracker.net", true, "tracker.net", domain.DenySuffix, "trackers.list"},
		{"x.deep.tracker.net", true, "deep.tracker.net", domain.DenySuffix, "deep.list"},
		{"nottracker.net", false, "", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := s.FirstMatch(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.rule, got.Name)
				assert.Equal(t, tt.kind, got.Kind)
				assert.Equal(t, tt.source, got.Source)
			}
		})
	}
}

func TestStore_RebuildReplacesSnapshot(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Rebuild([]domain.DenyRule{rule(t, "old.example", domain.DenyExact, "a")}, 1, 100))
	require.NoError(t, s.Rebuild([]domain.DenyRule{
		rule(t, "new.example", domain.DenyExact, "b"),
		rule(t, "zone.example", domain.DenySuffix, "b"),
	}, 2, 200))

	_, ok, err := s.FirstMatch("old.example")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, denylist.StoreStats{Version: 2, UpdatedUnix: 200, ExactKeys: 1, SuffixKeys: 1}, s.Stats())
}

func TestStore_RebuildRejectsInvalidRule(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Rebuild([]domain.DenyRule{rule(t, "keep.example", domain.DenyExact, "a")}, 1, 100))

	err := s.Rebuild([]domain.DenyRule{{Name: "bad.example", Kind: domain.DenyExact}}, 2, 200)
	assert.Error(t, err)

	// the failed transaction leaves the previous snapshot in place
	_, ok, err := s.FirstMatch("keep.example")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), s.Stats().Version)
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deny.db")
	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Rebuild([]domain.DenyRule{rule(t, "kept.example", domain.DenySuffix, "a")}, 9, 900))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()
	_, ok, err := s.FirstMatch("www.kept.example")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(9), s.Stats().Version)
}

func TestNew_BadPath(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "deny.db"))
	assert.Error(t, err)
}

func TestReverseLabels(t *testing.T) {
	assert.Equal(t, "com.example.www", reverseLabels("www.example.com"))
	assert.Equal(t, "localhost", reverseLabels("localhost"))
}
