package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamesAreOrdered(t *testing.T) {
	names, err := Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init.sql", "0002_messaging.sql"}, names)
}

func TestMigrationsAreNotEmpty(t *testing.T) {
	names, err := Names()
	require.NoError(t, err)
	for _, name := range names {
		body, err := migrationFiles.ReadFile(name)
		require.NoError(t, err)
		assert.NotEmpty(t, body, name)
	}
}
