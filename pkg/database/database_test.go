package database

import (
	"apart_backend/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDBSQLiteMigrates(t *testing.T) {
	db, err := InitDB(&config.DatabaseConfig{Driver: DriverSQLite, Path: ":memory:"}, true)
	require.NoError(t, err)

	for _, table := range []string{"activities", "exam_attempts", "user_answers", "vocabulary", "enrollments"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestInitDBUnknownDriver(t *testing.T) {
	_, err := InitDB(&config.DatabaseConfig{Driver: "oracle"}, false)
	assert.Error(t, err)
}
