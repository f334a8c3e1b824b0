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

package hashid

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID     = errors.New("invalid id")
	ErrUnknownFamily = errors.New("hashid: unknown family")
	ErrEmptySalt     = errors.New("hashid: salt must not be empty")
)

// InvalidIDError is returned when a cursor cannot be decoded for a family.
// It matches ErrInvalidID with errors.Is.
type InvalidIDError struct {
	Family Family
	ID     string
	Cause  error
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid %s id %q", e.Family, e.ID)
}

func (e *InvalidIDError) Is(target error) bool { return target == ErrInvalidID }

func (e *InvalidIDError) Unwrap() error { return e.Cause }

// IsInvalidID reports whether err is a decode failure, optionally for one of
// the given families.
func IsInvalidID(err error, families ...Family) bool {
	var invalid *InvalidIDError
	if !errors.As(err, &invalid) {
		return false
	}
	if len(families) == 0 {
		return true
	}
	for _, f := range families {
		if invalid.Family == f {
			return true
		}
	}
	return false
}
