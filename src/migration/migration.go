package migration

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/migration/migrations"
	"github.com/newsdesk-cms/newsdesk/src/migration/types"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/newsdesk-cms/newsdesk/src/website"
	"github.com/spf13/cobra"
)

const migrationTable = "newsdesk_migration"

var listMigrations bool

func init() {
	migrateCommand := &cobra.Command{
		Use:   "migrate [target migration id]",
		Short: "Run database migrations",
		Run: func(cmd *cobra.Command, args []string) {
			if listMigrations {
				ListMigrations()
				return
			}

			targetVersion := time.Time{}
			if len(args) > 0 {
				var err error
				targetVersion, err = time.Parse(time.RFC3339, args[0])
				if err != nil {
					fmt.Printf("ERROR: bad version string: %v\n", err)
					os.Exit(1)
				}
			}
			if err := Migrate(types.MigrationVersion(targetVersion)); err != nil {
				fmt.Printf("ERROR: %v\n", err)
				os.Exit(1)
			}
		},
	}
	migrateCommand.Flags().BoolVar(&listMigrations, "list", false, "List available migrations")

	makeMigrationCommand := &cobra.Command{
		Use:   "makemigration <name> <description>...",
		Short: "Create a new database migration file",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a name and a description.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			name := args[0]
			description := strings.Join(args[1:], " ")

			path, err := MakeMigration(name, description, time.Now())
			if err != nil {
				fmt.Printf("ERROR: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Successfully created migration file:")
			fmt.Println(path)
		},
	}

	website.WebsiteCommand.AddCommand(migrateCommand)
	website.WebsiteCommand.AddCommand(makeMigrationCommand)
}

func getSortedMigrationVersions() []types.MigrationVersion {
	var allVersions []types.MigrationVersion
	for migrationTime := range migrations.All {
		allVersions = append(allVersions, migrationTime)
	}
	sort.Slice(allVersions, func(i, j int) bool {
		return allVersions[i].Before(allVersions[j])
	})

	return allVersions
}

func LatestVersion() types.MigrationVersion {
	allVersions := getSortedMigrationVersions()
	return allVersions[len(allVersions)-1]
}

func getCurrentVersion(ctx context.Context, conn *pgx.Conn) (types.MigrationVersion, error) {
	var currentVersion time.Time
	row := conn.QueryRow(ctx, "SELECT version FROM "+migrationTable)
	err := row.Scan(&currentVersion)
	if err != nil {
		return types.MigrationVersion{}, err
	}
	currentVersion = currentVersion.UTC()

	return types.MigrationVersion(currentVersion), nil
}

func tryGetCurrentVersion(ctx context.Context) types.MigrationVersion {
	conn, err := db.NewConn(ctx)
	if err != nil {
		return types.MigrationVersion{}
	}
	defer conn.Close(ctx)

	currentVersion, _ := getCurrentVersion(ctx, conn)
	return currentVersion
}

func ListMigrations() {
	ctx := context.Background()

	currentVersion := tryGetCurrentVersion(ctx)
	for _, version := range getSortedMigrationVersions() {
		migration := migrations.All[version]
		indicator := "  "
		if version.Equal(currentVersion) {
			indicator = "✔ "
		}
		fmt.Printf("%s%v (%s: %s)\n", indicator, version, migration.Name(), migration.Description())
	}
}

/*
Plan returns the migrations to run to get from current to target, in order,
and whether they are to be rolled back rather than applied. A zero target
means the latest migration.
*/
func Plan(allVersions []types.MigrationVersion, current, target types.MigrationVersion) (steps []types.MigrationVersion, down bool, err error) {
	if len(allVersions) == 0 {
		return nil, false, oops.New(nil, "there are no migrations")
	}
	if target.IsZero() {
		target = allVersions[len(allVersions)-1]
	}

	currentIndex := -1
	targetIndex := -1
	for i, version := range allVersions {
		if current.Equal(version) {
			currentIndex = i
		}
		if target.Equal(version) {
			targetIndex = i
		}
	}
	if targetIndex < 0 {
		return nil, false, oops.New(nil, "could not find migration with version %v", target)
	}
	if currentIndex < 0 && !current.IsZero() {
		return nil, false, oops.New(nil, "database is at unknown version %v", current)
	}

	if currentIndex < targetIndex {
		return allVersions[currentIndex+1 : targetIndex+1], false, nil
	}
	for i := currentIndex; i > targetIndex; i-- {
		steps = append(steps, allVersions[i])
	}
	return steps, true, nil
}

func Migrate(targetVersion types.MigrationVersion) error {
	ctx := context.Background()

	conn, err := db.NewConn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	// create migration table
	_, err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+migrationTable+` (
			version		TIMESTAMP WITH TIME ZONE
		)
	`)
	if err != nil {
		return oops.New(err, "failed to create migration table")
	}

	// ensure there is a row
	numRows, err := db.QueryOneScalar[int](ctx, conn, "SELECT COUNT(*) FROM "+migrationTable)
	if err != nil {
		return oops.New(err, "failed to check migration table")
	}
	if numRows < 1 {
		_, err := conn.Exec(ctx, "INSERT INTO "+migrationTable+" (version) VALUES ($1)", time.Time{})
		if err != nil {
			return oops.New(err, "failed to insert initial migration row")
		}
	}

	currentVersion, err := getCurrentVersion(ctx, conn)
	if err != nil {
		return oops.New(err, "failed to get current version")
	}
	if currentVersion.IsZero() {
		fmt.Println("This is the first time you have run database migrations.")
	} else {
		fmt.Printf("Current version: %s\n", currentVersion.String())
	}

	allVersions := getSortedMigrationVersions()
	steps, down, err := Plan(allVersions, currentVersion, targetVersion)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		fmt.Println("Already migrated; nothing to do.")
		return nil
	}

	for _, version := range steps {
		migration := migrations.All[version]
		newVersion := version
		if down {
			fmt.Printf("Rolling back migration %v\n", version)
			newVersion = previousVersion(allVersions, version)
		} else {
			fmt.Printf("Applying migration %v (%v)\n", version, migration.Name())
		}

		err := runInTx(ctx, conn, func(tx pgx.Tx) error {
			var err error
			if down {
				err = migration.Down(ctx, tx)
			} else {
				err = migration.Up(ctx, tx)
			}
			if err != nil {
				return oops.New(err, "migration %v failed", version)
			}

			_, err = tx.Exec(ctx, "UPDATE "+migrationTable+" SET version = $1", time.Time(newVersion))
			if err != nil {
				return oops.New(err, "failed to update version in migrations table")
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func previousVersion(allVersions []types.MigrationVersion, version types.MigrationVersion) types.MigrationVersion {
	for i, v := range allVersions {
		if v.Equal(version) && i > 0 {
			return allVersions[i-1]
		}
	}
	return types.MigrationVersion{}
}

func runInTx(ctx context.Context, conn *pgx.Conn, f func(tx pgx.Tx) error) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	if err := f(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return oops.New(err, "failed to commit transaction")
	}
	return nil
}

//go:embed migrationTemplate.txt
var migrationTemplate string

// RenderMigration fills in the migration template.
func RenderMigration(name, description string, now time.Time) (filename string, source string) {
	now = now.UTC()
	result := migrationTemplate
	result = strings.ReplaceAll(result, "%NAME%", name)
	result = strings.ReplaceAll(result, "%DESCRIPTION%", fmt.Sprintf("%#v", description))

	nowConstructor := fmt.Sprintf("time.Date(%d, %d, %d, %d, %d, %d, 0, time.UTC)", now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second())
	result = strings.ReplaceAll(result, "%DATE%", nowConstructor)

	safeVersion := strings.ReplaceAll(types.MigrationVersion(now).String(), ":", "")
	return fmt.Sprintf("%v_%v.go", safeVersion, name), result
}

func MakeMigration(name, description string, now time.Time) (string, error) {
	filename, source := RenderMigration(name, description, now)
	path := filepath.Join("src", "migration", "migrations", filename)

	err := os.WriteFile(path, []byte(source), 0644)
	if err != nil {
		return "", oops.New(err, "failed to write migration file")
	}
	return path, nil
}
