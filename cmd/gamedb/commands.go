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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun/dialect"

	"github.com/tomoncle/gamedb/app"
	"github.com/tomoncle/gamedb/config"
	"github.com/tomoncle/gamedb/database"
	"github.com/tomoncle/gamedb/game"
	"github.com/tomoncle/gamedb/hashid"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newPingCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the database connection and print its health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, *configFile)
			if err != nil {
				return err
			}
			defer a.Close()
			status := a.Health(cmd.Context())
			if err := printJSON(cmd.OutOrStdout(), status); err != nil {
				return err
			}
			if !status.Healthy {
				return fmt.Errorf("database unhealthy: %s", status.LastError)
			}
			return nil
		},
	}
}

func newStatsCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print connection pool statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, *configFile)
			if err != nil {
				return err
			}
			defer a.Close()
			return printJSON(cmd.OutOrStdout(), a.Manager.GetStats())
		},
	}
}

func loadCodec(configFile string, family string) (*hashid.Codec, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	codecs, err := hashid.NewRegistry(cfg.Families)
	if err != nil {
		return nil, err
	}
	return codecs.Codec(hashid.Family(family))
}

func newIDCommand(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "id",
		Short: "Encode and decode public ids and cursors",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "encode <family> <id>...",
		Short: "Encode one or more raw key values",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := loadCodec(*configFile, args[0])
			if err != nil {
				return err
			}
			ids := make([]int64, 0, len(args)-1)
			for _, a := range args[1:] {
				n, err := strconv.ParseInt(a, 10, 64)
				if err != nil {
					return fmt.Errorf("raw id %q: %w", a, err)
				}
				ids = append(ids, n)
			}
			out, err := codec.Encode(ids...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "decode <family> <id>",
		Short: "Decode a public id or cursor into its raw values",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := loadCodec(*configFile, args[0])
			if err != nil {
				return err
			}
			ids, err := codec.Decode(args[1])
			if err != nil {
				return err
			}
			parts := make([]string, len(ids))
			for i, id := range ids {
				parts[i] = strconv.FormatInt(id, 10)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " "))
			return nil
		},
	})
	return cmd
}

func dialectFor(dbType string) (dialect.Name, error) {
	switch dbType {
	case "mysql":
		return dialect.MySQL, nil
	case "postgres", "postgresql":
		return dialect.PG, nil
	case "sqlite", "sqlite3":
		return dialect.SQLite, nil
	}
	return dialect.Invalid, fmt.Errorf("unsupported database type: %s", dbType)
}

func newSchemaCommand(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and apply the game schema scripts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "files",
		Short: "List the scripts apply would run, in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			name, err := dialectFor(cfg.Database.Type)
			if err != nil {
				return err
			}
			fsys, err := game.Schema(name)
			if err != nil {
				return err
			}
			files, err := database.NewScriptRunner(database.NewPool(nil), fsys, cfg.Environment).Files()
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f.Path)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "apply",
		Short: "Create the game tables and load the environment's fixtures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, *configFile)
			if err != nil {
				return err
			}
			defer a.Close()
			results, err := a.ApplySchema(cmd.Context())
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tSTATEMENTS\tROWS\tDURATION\tSTATUS")
			for _, r := range results {
				status := "ok"
				if !r.Success() {
					status = "failed"
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", r.File, r.Statements, r.RowsAffected,
					r.Duration.Round(time.Microsecond), status)
			}
			if ferr := tw.Flush(); ferr != nil && err == nil {
				err = ferr
			}
			return err
		},
	})
	return cmd
}

func newFamiliesCommand(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "families",
		Short: "Manage id family settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "export <path>",
		Short: "Write the configured families to a YAML families file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			if err := hashid.ExportFamilies(args[0], cfg.Families); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d families to %s\n", len(cfg.Families), args[0])
			return nil
		},
	})
	return cmd
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Describe configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "env",
		Short: "List the environment variables gamedb reads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			usage, err := config.Usage()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), usage)
			return nil
		},
	})
	return cmd
}

func newServeMetricsCommand(configFile *string) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Serve pool metrics and health over HTTP until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			a, err := openApp(cmd, *configFile, app.WithRegisterer(reg))
			if err != nil {
				return err
			}
			defer a.Close()
			if listen == "" {
				listen = a.Config.Metrics.Listen
			}

			server := &http.Server{
				Addr:         listen,
				Handler:      metricsMux(a, reg),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = server.Shutdown(ctx)
			}()

			a.Logger.Info("Serving metrics", "listen", listen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			a.Logger.Info("Metrics server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address, defaults to metrics.listen")
	return cmd
}

func metricsMux(a *app.App, reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		status := a.Health(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if !status.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	})
	return mux
}
