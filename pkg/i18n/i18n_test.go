package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	s, err := NewI18nSupport("en")
	require.NoError(t, err)

	assert.Equal(t, "No photo captured", s.T("en", "instruction_photo_missing", nil))
	assert.Equal(t, "No se capturó ninguna foto", s.T("es", "instruction_photo_missing", nil))
	assert.Equal(t, "No photo captured", s.T("fr", "instruction_photo_missing", nil), "unknown language falls back to default")
	assert.Equal(t, "missing_key", s.T("en", "missing_key", nil))
}

func TestMatch(t *testing.T) {
	s, err := NewI18nSupport("en")
	require.NoError(t, err)

	assert.Equal(t, "es", s.Match("es-MX,es;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", s.Match(""))
	assert.True(t, s.Supports("es"))
	assert.False(t, s.Supports("de"))
}
