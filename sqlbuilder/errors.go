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

package sqlbuilder

import (
	"errors"
	"fmt"

	"github.com/tomoncle/gamedb/types"
)

var (
	ErrMissingTable       = errors.New("sqlbuilder: table name is required")
	ErrMissingEntities    = errors.New("sqlbuilder: insert requires at least one entity")
	ErrHeterogeneousBatch = errors.New("sqlbuilder: insert batch rows have differing columns")
	ErrEmptySet           = errors.New("sqlbuilder: update requires at least one column")
	ErrInvalidOperand     = errors.New("sqlbuilder: invalid filter operand")
	ErrUnsupported        = errors.New("sqlbuilder: not supported by dialect")
)

// UnknownFilterOperatorError aborts statement construction when a filter
// carries an operator outside the closed set.
type UnknownFilterOperatorError struct {
	Column string
	Op     types.Operator
}

func (e *UnknownFilterOperatorError) Error() string {
	return fmt.Sprintf("sqlbuilder: unknown filter operator %q for column %s", string(e.Op), e.Column)
}

func invalidOperand(column string, op types.Operator, operand any) error {
	return fmt.Errorf("%w: %s on %s does not accept %T", ErrInvalidOperand, op, column, operand)
}
