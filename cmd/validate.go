package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kilianp07/rebalance/app"
	"github.com/kilianp07/rebalance/core/metrics"
	"github.com/kilianp07/rebalance/core/mqtt"
	"github.com/kilianp07/rebalance/core/records"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the inputs and derive the model sets without solving",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pipe, err := app.New(cfg,
		app.WithStore(&records.MemoryStore{}),
		app.WithSink(metrics.NopSink{}),
		app.WithPublisher(mqtt.NopPublisher{}),
	)
	if err != nil {
		return err
	}
	inst, err := pipe.Prepare(cmd.Context(), uuid.NewString())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "stations=%d surplus=%d deficit=%d clusters=%d pairs=%d ignored_rows=%d\n",
		len(inst.V), len(inst.VPlus), len(inst.VMinus), len(inst.C), len(inst.Pairs()), inst.IgnoredRows)
	return err
}
