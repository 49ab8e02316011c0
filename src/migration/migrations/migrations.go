package migrations

import (
	"github.com/newsdesk-cms/newsdesk/src/migration/types"
)

var All = make(map[types.MigrationVersion]types.Migration)

func registerMigration(m types.Migration) {
	All[m.Version()] = m
}
