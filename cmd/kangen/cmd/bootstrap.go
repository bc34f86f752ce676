package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kanrt/kan/container"
	"github.com/kanrt/kan/reflection"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "run the generator driver to a fixed point and report the resulting registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, _ := container.GetResource[*logrus.Logger](resources)

		driver := reflection.NewGeneratorDriver()
		registrars(driver)

		registry, err := driver.Run(context.Background(), nil)
		if err != nil {
			return fmt.Errorf("generator driver run: %w", err)
		}
		defer registry.Destroy()

		count := 0
		registry.IterateStructs(func(desc *reflection.StructDesc) bool {
			count++
			return true
		})
		logger.WithField("structs", count).Info("bootstrap complete")
		return nil
	},
}

// registrars is the populate hook a concrete deployment fills in with its
// own static struct/enum/function descriptors (spec.md §4.2 "Populate");
// kangen itself carries none: the registry's content is a collaborator of
// the generated module, not of this CLI.
func registrars(driver *reflection.GeneratorDriver) {}

func init() {
	rootCmd.AddCommand(bootstrapCmd)
}
