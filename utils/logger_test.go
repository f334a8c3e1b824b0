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

package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextFormatterRendersSortedFields(t *testing.T) {
	f := &TextLogFormatter{LoggerName: "DATABASE", NameWidth: 10}
	entry := logrus.NewEntry(logrus.New()).WithFields(logrus.Fields{
		"sql":      "SELECT 1",
		"duration": time.Millisecond,
		"error":    errors.New("boom"),
	})
	entry.Message = "Statement failed"
	entry.Level = logrus.ErrorLevel
	entry.Time = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	out, err := f.Format(entry)
	require.NoError(t, err)
	line := string(out)
	assert.Contains(t, line, "2025-01-02 03:04:05.000")
	assert.Contains(t, line, "Statement failed duration=1ms error=boom sql=\"SELECT 1\"\n")
}

func TestJSONFormatter(t *testing.T) {
	f := &JSONLogFormatter{LoggerName: "GAMEDB"}
	entry := logrus.NewEntry(logrus.New()).WithField("error", errors.New("boom"))
	entry.Message = "hello"
	entry.Level = logrus.WarnLevel

	out, err := f.Format(entry)
	require.NoError(t, err)
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &rec))
	assert.Equal(t, "warning", rec["level"])
	assert.Equal(t, "GAMEDB", rec["logger"])
	assert.Equal(t, map[string]interface{}{"error": "boom"}, rec["fields"])
}

func TestRegistry(t *testing.T) {
	var buf bytes.Buffer
	ConfigureLogOutput(&buf)
	l := NewLogger("REGISTRY_TEST")
	assert.Same(t, l, NewLogger("REGISTRY_TEST"))

	require.True(t, SetLoggerLevel("REGISTRY_TEST", "error"))
	assert.False(t, SetLoggerLevel("NOT_REGISTERED", "error"))
	l.Info("dropped")
	assert.Empty(t, buf.String())
	l.Error("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("GAMEDB_TEST_BOOL", "true")
	t.Setenv("GAMEDB_TEST_STR", "x")
	assert.True(t, EnvDefaultBool("GAMEDB_TEST_BOOL", false))
	assert.False(t, EnvDefaultBool("GAMEDB_TEST_MISSING", false))
	assert.Equal(t, "x", EnvDefaultString("GAMEDB_TEST_STR", "y"))
	assert.Equal(t, "y", EnvDefaultString("GAMEDB_TEST_MISSING", "y"))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel("WARNING"))
}
