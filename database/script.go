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

package database

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const commonScripts = "common"

var scriptOrderPattern = regexp.MustCompile(`^(\d+)_`)

// ScriptRunner executes ordered SQL files through a Pool. Files live under
// common/ and environments/<env>/ of its file system and run common first,
// then by their NNN_ prefix.
type ScriptRunner struct {
	pool        *Pool
	fsys        fs.FS
	environment string
	vars        map[string]string
	logger      Logger
}

// ScriptFile describes a SQL file selected for execution.
type ScriptFile struct {
	Path        string
	Name        string
	Order       int
	Environment string
}

// ExecutionResult contains the outcome of executing a single SQL file.
type ExecutionResult struct {
	File         string
	Statements   int
	Duration     time.Duration
	RowsAffected int64
	Error        error
}

func (r ExecutionResult) Success() bool { return r.Error == nil }

// NewScriptRunner reads scripts from fsys for the given environment.
func NewScriptRunner(pool *Pool, fsys fs.FS, environment string) *ScriptRunner {
	return &ScriptRunner{
		pool:        pool,
		fsys:        fsys,
		environment: environment,
		vars:        map[string]string{},
		logger:      pool.Logger(),
	}
}

// SetVar makes {{.name}} expand to value inside scripts.
func (s *ScriptRunner) SetVar(name, value string) {
	s.vars[name] = value
}

// Run executes every script in order on one connection and stops at the
// first failure.
func (s *ScriptRunner) Run(ctx context.Context) ([]ExecutionResult, error) {
	files, err := s.Files()
	if err != nil {
		return nil, fmt.Errorf("failed to list SQL files: %w", err)
	}
	if len(files) == 0 {
		s.logger.Info("No SQL files found to execute", "environment", s.environment)
		return nil, nil
	}

	s.logger.Info("Starting SQL scripts", "environment", s.environment, "files", len(files))
	results := make([]ExecutionResult, 0, len(files))
	err = s.pool.WithConn(ctx, func(conn *Conn) error {
		for _, file := range files {
			result := s.executeFile(ctx, conn, file)
			results = append(results, result)
			if !result.Success() {
				s.logger.Error("SQL file execution failed", "file", result.File, "error", result.Error)
				return fmt.Errorf("SQL file execution failed %s: %w", result.File, result.Error)
			}
			s.logger.Info("SQL file executed", "file", result.File, "statements", result.Statements,
				"duration", result.Duration, "rows_affected", result.RowsAffected)
		}
		return nil
	})
	return results, err
}

// Files lists the scripts Run would execute, in execution order.
func (s *ScriptRunner) Files() ([]ScriptFile, error) {
	files, err := s.filesIn(commonScripts, commonScripts)
	if err != nil {
		return nil, err
	}
	if s.environment != "" {
		envFiles, err := s.filesIn(path.Join("environments", s.environment), s.environment)
		if err != nil {
			return nil, err
		}
		files = append(files, envFiles...)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Environment != files[j].Environment {
			return files[i].Environment == commonScripts
		}
		if files[i].Order != files[j].Order {
			return files[i].Order < files[j].Order
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

func (s *ScriptRunner) filesIn(dir, environment string) ([]ScriptFile, error) {
	if _, err := fs.Stat(s.fsys, dir); err != nil {
		return nil, nil
	}
	var files []ScriptFile
	err := fs.WalkDir(s.fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			return nil
		}
		files = append(files, ScriptFile{
			Path:        p,
			Name:        d.Name(),
			Order:       scriptOrder(d.Name()),
			Environment: environment,
		})
		return nil
	})
	return files, err
}

func scriptOrder(name string) int {
	if m := scriptOrderPattern.FindStringSubmatch(name); len(m) > 1 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 999
}

func (s *ScriptRunner) executeFile(ctx context.Context, conn *Conn, file ScriptFile) (result ExecutionResult) {
	start := time.Now()
	result.File = file.Path
	defer func() { result.Duration = time.Since(start) }()

	content, err := fs.ReadFile(s.fsys, file.Path)
	if err != nil {
		result.Error = fmt.Errorf("failed to read file: %w", err)
		return result
	}
	text, err := s.expand(string(content))
	if err != nil {
		result.Error = err
		return result
	}

	for _, stmt := range SplitStatements(text) {
		res, err := s.pool.Exec(ctx, conn, stmt)
		if err != nil {
			result.Error = err
			return result
		}
		result.Statements++
		result.RowsAffected += res.AffectedRows
	}
	return result
}

func (s *ScriptRunner) expand(content string) (string, error) {
	if !strings.Contains(content, "{{") {
		return content, nil
	}
	tmpl, err := template.New("sql").Option("missingkey=error").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}
	vars := make(map[string]string, len(s.vars)+1)
	for k, v := range s.vars {
		vars[k] = v
	}
	vars["ENVIRONMENT"] = s.environment

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// SplitStatements splits a script into statements ending in ';' at the end
// of a line, dropping blank lines and "--" comments.
func SplitStatements(content string) []string {
	var statements []string
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSuffix(strings.TrimSpace(current.String()), ";")
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString(" ")
		if strings.HasSuffix(line, ";") {
			flush()
		}
	}
	flush()
	return statements
}
