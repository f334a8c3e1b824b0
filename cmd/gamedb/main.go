/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomoncle/gamedb/app"
	"github.com/tomoncle/gamedb/config"
	"github.com/tomoncle/gamedb/utils"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:          "gamedb",
		Short:        "Operate the game database",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c",
		utils.EnvDefaultString("GAMEDB_CONFIG", ""), "config file; only the environment is read when empty")

	root.AddCommand(newPingCommand(&configFile))
	root.AddCommand(newStatsCommand(&configFile))
	root.AddCommand(newIDCommand(&configFile))
	root.AddCommand(newSchemaCommand(&configFile))
	root.AddCommand(newFamiliesCommand(&configFile))
	root.AddCommand(newConfigCommand())
	root.AddCommand(newServeMetricsCommand(&configFile))
	return root
}

func openApp(cmd *cobra.Command, configFile string, opts ...app.Option) (*app.App, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	opts = append([]app.Option{app.WithLogOutput(cmd.ErrOrStderr())}, opts...)
	return app.Open(cmd.Context(), cfg, opts...)
}
