package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateEmbeddedCatalog(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	assert.Equal(t, "The requested resource was not found.", m.Translate("en-US", "error.not_found"))
	assert.Contains(t, m.GetSupportedLanguages(), "en-US")
}

func TestTranslateFallsBackToDefaultLanguage(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	// An unknown language falls through to en-US.
	assert.Equal(t, "Bad request", m.Translate("fr-FR", "error.bad_request"))
	// An unknown key falls through to the key itself.
	assert.Equal(t, "no.such.key", m.Translate("en-US", "no.such.key"))
}

func TestTranslateNormalizesLanguageTag(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	assert.Equal(t, "Bad request", m.Translate("en-us", "error.bad_request"))
}

func TestLoadFromDirOverrides(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	dir := t.TempDir()
	override := `{"error.bad_request": "Requete invalide", "custom.key": "Valeur"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fr-FR.json"), []byte(override), 0o644))

	require.NoError(t, m.LoadFromDir(dir))
	assert.Equal(t, "Requete invalide", m.Translate("fr-FR", "error.bad_request"))
	assert.Equal(t, "Valeur", m.Translate("fr-FR", "custom.key"))
	// en-US stays untouched.
	assert.Equal(t, "Bad request", m.Translate("en-US", "error.bad_request"))
}

func TestLoadFromDirMissingIsNotAnError(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)
	assert.NoError(t, m.LoadFromDir(filepath.Join(t.TempDir(), "does-not-exist")))
}

func TestGetTranslationsReturnsCopy(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	table := m.GetTranslations("en-US")
	require.NotNil(t, table)
	table["error.bad_request"] = "mutated"
	assert.Equal(t, "Bad request", m.Translate("en-US", "error.bad_request"))

	assert.Nil(t, m.GetTranslations("zz-ZZ"))
}
