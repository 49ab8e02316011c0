package migration

import (
	"testing"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/migration/migrations"
	"github.com/newsdesk-cms/newsdesk/src/migration/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func version(day int) types.MigrationVersion {
	return types.MigrationVersion(time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC))
}

func TestPlan(t *testing.T) {
	all := []types.MigrationVersion{version(1), version(2), version(3)}

	t.Run("fresh database", func(t *testing.T) {
		steps, down, err := Plan(all, types.MigrationVersion{}, types.MigrationVersion{})
		require.NoError(t, err)
		assert.False(t, down)
		assert.Equal(t, all, steps)
	})
	t.Run("forward to target", func(t *testing.T) {
		steps, down, err := Plan(all, version(1), version(2))
		require.NoError(t, err)
		assert.False(t, down)
		assert.Equal(t, []types.MigrationVersion{version(2)}, steps)
	})
	t.Run("roll back", func(t *testing.T) {
		steps, down, err := Plan(all, version(3), version(1))
		require.NoError(t, err)
		assert.True(t, down)
		assert.Equal(t, []types.MigrationVersion{version(3), version(2)}, steps)
	})
	t.Run("up to date", func(t *testing.T) {
		steps, _, err := Plan(all, version(3), types.MigrationVersion{})
		require.NoError(t, err)
		assert.Empty(t, steps)
	})
	t.Run("unknown target", func(t *testing.T) {
		_, _, err := Plan(all, version(1), version(9))
		assert.Error(t, err)
	})
}

func TestPreviousVersion(t *testing.T) {
	all := []types.MigrationVersion{version(1), version(2)}
	assert.Equal(t, version(1), previousVersion(all, version(2)))
	assert.True(t, previousVersion(all, version(1)).IsZero())
}

func TestMigrationsAreRegistered(t *testing.T) {
	versions := getSortedMigrationVersions()
	require.NotEmpty(t, versions)
	for i, v := range versions {
		m := migrations.All[v]
		assert.True(t, m.Version().Equal(v), m.Name())
		assert.NotEmpty(t, m.Description(), m.Name())
		if i > 0 {
			assert.True(t, versions[i-1].Before(v))
		}
	}
	assert.Equal(t, "Initial", migrations.All[versions[0]].Name())
	assert.True(t, LatestVersion().Equal(versions[len(versions)-1]))
}

func TestRenderMigration(t *testing.T) {
	now := time.Date(2024, 5, 2, 13, 4, 5, 0, time.UTC)
	filename, source := RenderMigration("AddBookmarks", `Let readers "save" articles`, now)
	assert.Equal(t, "2024-05-02T130405Z_AddBookmarks.go", filename)
	assert.Contains(t, source, "type AddBookmarks struct{}")
	assert.Contains(t, source, "time.Date(2024, 5, 2, 13, 4, 5, 0, time.UTC)")
	assert.Contains(t, source, `return "Let readers \"save\" articles"`)
}
