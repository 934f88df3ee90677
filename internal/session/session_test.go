package session

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lingua/internal/store"
)

type testRecord struct {
	Settings  Settings `json:"settings"`
	Completed bool     `json:"completed"`
	Notes     []string `json:"notes"`
	Score     int      `json:"score"`
}

func openKV(t *testing.T) store.KV {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "lingua.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s.KV()
}

func TestStore_RoundTrip(t *testing.T) {
	kv := openKV(t)
	st := NewStore[testRecord](kv, "v2.0.0")
	sc := NewContext("Ana@Example.com", DefaultSettings(), false)
	ctx := context.Background()

	in := testRecord{Settings: sc.Settings, Completed: true, Notes: []string{"hola", "adiós"}, Score: 7}
	require.NoError(t, st.Save(ctx, sc, in))

	out, err := st.Load(ctx, sc)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in, *out)

	// Keys ignore email case.
	_, ok, err := kv.Get(ctx, "lingua:state:ana@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_LoadMissing(t *testing.T) {
	st := NewStore[testRecord](openKV(t), "v2.0.0")
	out, err := st.Load(context.Background(), NewContext("nobody@example.com", Settings{}, false))
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestStore_IncognitoSaveIsNoop(t *testing.T) {
	kv := openKV(t)
	st := NewStore[testRecord](kv, "v2.0.0")
	ctx := context.Background()
	sc := NewContext("ana@example.com", Settings{}, true)

	require.NoError(t, st.Save(ctx, sc, testRecord{Score: 1}))

	_, ok, err := kv.Get(ctx, Key(sc.UserID))
	require.NoError(t, err)
	assert.False(t, ok, "incognito save must not write")

	accounts, err := st.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestStore_IncognitoLoadDeletesExisting(t *testing.T) {
	kv := openKV(t)
	st := NewStore[testRecord](kv, "v2.0.0")
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, NewContext("ana@example.com", Settings{}, false), testRecord{Score: 3}))

	out, err := st.Load(ctx, NewContext("ana@example.com", Settings{}, true))
	require.NoError(t, err)
	assert.Nil(t, out)

	_, ok, err := kv.Get(ctx, Key("ana@example.com"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_CorruptRecordDiscarded(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{broken`},
		{"bad version", `{"version":"two","data":{}}`},
		{"wrong shape", `{"version":"v2.0.0","data":{"score":"high"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := openKV(t)
			st := NewStore[testRecord](kv, "v2.0.0")
			ctx := context.Background()
			require.NoError(t, kv.Put(ctx, Key("ana@example.com"), tt.raw))

			out, err := st.Load(ctx, NewContext("ana@example.com", Settings{}, false))
			require.NoError(t, err)
			assert.Nil(t, out)

			_, ok, err := kv.Get(ctx, Key("ana@example.com"))
			require.NoError(t, err)
			assert.False(t, ok, "corrupt record should be deleted")
		})
	}
}

func TestStore_MissingFieldsDefault(t *testing.T) {
	kv := openKV(t)
	st := NewStore[testRecord](kv, "v2.0.0")
	ctx := context.Background()
	require.NoError(t, kv.Put(ctx, Key("ana@example.com"), `{"version":"v2.0.0","data":{"score":4}}`))

	out, err := st.Load(ctx, NewContext("ana@example.com", Settings{}, false))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, 4, out.Score)
	assert.False(t, out.Completed)
	assert.Empty(t, out.Notes)
}

func TestStore_LegacyRecordMigrated(t *testing.T) {
	kv := openKV(t)
	var applied []string
	st := NewStore[testRecord](kv, "v2.1.0",
		Migration{Version: "v2.1.0", Apply: func(doc map[string]any) error {
			applied = append(applied, "v2.1.0")
			doc["completed"] = true
			return nil
		}},
		Migration{Version: "v2.0.0", Apply: func(doc map[string]any) error {
			applied = append(applied, "v2.0.0")
			doc["score"] = doc["points"]
			delete(doc, "points")
			return nil
		}},
	)
	ctx := context.Background()
	require.NoError(t, kv.Put(ctx, Key("ana@example.com"), `{"points":9}`))

	out, err := st.Load(ctx, NewContext("ana@example.com", Settings{}, false))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, []string{"v2.0.0", "v2.1.0"}, applied)
	assert.Equal(t, 9, out.Score)
	assert.True(t, out.Completed)
}

func TestStore_CurrentRecordSkipsMigrations(t *testing.T) {
	kv := openKV(t)
	st := NewStore[testRecord](kv, "v2.0.0", Migration{Version: "v2.0.0", Apply: func(map[string]any) error {
		return fmt.Errorf("should not run")
	}})
	ctx := context.Background()
	sc := NewContext("ana@example.com", Settings{}, false)
	require.NoError(t, st.Save(ctx, sc, testRecord{Score: 2}))

	out, err := st.Load(ctx, sc)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, 2, out.Score)
}

func TestStore_Accounts(t *testing.T) {
	kv := openKV(t)
	st := NewStore[testRecord](kv, "v2.0.0")
	ctx := context.Background()

	for _, email := range []string{"ana@example.com", "ben@example.com", "ANA@example.com"} {
		require.NoError(t, st.Save(ctx, NewContext(email, Settings{}, false), testRecord{}))
	}

	accounts, err := st.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "ana@example.com", accounts[0].Email)
	assert.Equal(t, "ben@example.com", accounts[1].Email)

	require.NoError(t, st.Delete(ctx, "ben@example.com"))
	accounts, err = st.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
}

func TestStore_NoUser(t *testing.T) {
	st := NewStore[testRecord](openKV(t), "v2.0.0")
	err := st.Save(context.Background(), Context{}, testRecord{})
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestSettings_Normalize(t *testing.T) {
	s := Settings{TargetLanguage: "fr-fr", Level: "b1"}.Normalize()
	assert.Equal(t, "fr-FR", s.TargetLanguage)
	assert.Equal(t, "en", s.NativeLanguage)
	assert.Equal(t, LevelB1, s.Level)
	assert.NoError(t, s.Validate())
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		s       Settings
		wantErr bool
	}{
		{"defaults", DefaultSettings(), false},
		{"bad target", Settings{TargetLanguage: "!!", NativeLanguage: "en", Level: LevelA1}, true},
		{"bad level", Settings{TargetLanguage: "es", NativeLanguage: "en", Level: "Z9"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSettings_LanguageNames(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, "Spanish", s.TargetName())
	assert.Equal(t, "English", s.NativeName())
}
