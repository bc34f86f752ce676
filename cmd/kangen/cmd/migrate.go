package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kanrt/kan/container"
	"github.com/kanrt/kan/migration"
	"github.com/kanrt/kan/reflection"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "diff two generator-driver runs and report the structural migration plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, _ := container.GetResource[*logrus.Logger](resources)

		oldDriver := reflection.NewGeneratorDriver()
		registrars(oldDriver)
		oldRegistry, err := oldDriver.Run(context.Background(), nil)
		if err != nil {
			return fmt.Errorf("old generator driver run: %w", err)
		}

		// Passing oldRegistry into the new driver's Run triggers the real
		// finalize-time migration hookup (spec.md §4.2 step 5): the
		// registered builder constructs the seed/migrator, and the
		// generated callback below reports on the plans they describe. Run
		// destroys oldRegistry itself once every generated callback returns.
		added, removed, changed := 0, 0, 0
		newDriver := reflection.NewGeneratorDriver()
		registrars(newDriver)
		newDriver.SubscribeMigrationBuilder(buildMigration)
		newDriver.SubscribeGenerated(func(old, new *reflection.Registry, seed, migratorAny any) error {
			migrator := migratorAny.(*migration.StructMigrator)
			for _, plan := range migrator.BuildPlans() {
				switch plan.Kind {
				case migration.StructRemoved:
					removed++
				case migration.StructChanged:
					changed++
				}
			}
			new.IterateStructs(func(desc *reflection.StructDesc) bool {
				if _, ok := old.QueryStruct(desc.Name); !ok {
					added++
				}
				return true
			})
			return nil
		})

		newRegistry, err := newDriver.Run(context.Background(), oldRegistry)
		if err != nil {
			return fmt.Errorf("new generator driver run: %w", err)
		}
		defer newRegistry.Destroy()

		logger.WithFields(logrus.Fields{"added": added, "removed": removed, "changed": changed}).Info("migration plan built")
		return nil
	},
}

// buildMigration is the MigrationBuilder wired into newDriver: it lives here,
// not in package reflection, since building a real seed/migrator needs
// package migration, which package reflection cannot import without a cycle.
func buildMigration(old, new *reflection.Registry) (any, any, error) {
	seed := migration.NewSeed(old, new)
	migrator := migration.NewStructMigrator(seed)
	migrator.BuildPlans()
	return seed, migrator, nil
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
