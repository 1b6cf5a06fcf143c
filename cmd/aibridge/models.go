package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newModelsCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models offered by the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), global, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			models, err := a.client.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			for _, model := range models {
				fmt.Fprintln(cmd.OutOrStdout(), model)
			}
			return nil
		},
	}
}

func newPingCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check whether the backend is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), global, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			name := a.client.Provider().Name()
			if !a.client.IsAvailable(cmd.Context()) {
				return errors.New(name + " is not available")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is available\n", name)
			return nil
		},
	}
}
