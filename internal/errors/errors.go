/*
 * Copyright (c) 2026 Rowgate Authors.
 *
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

/*
Package errors provides structured error handling for rowgate.

The errors package implements a structured error system with:
  - Error categories (Validation, Store, Connection)
  - Error codes for programmatic handling
  - Error wrapping for root cause analysis

The admission-control decorators never create or transform errors; every
error here originates in the store driver or in configuration and crosses
the decorators unchanged.

Error Categories:
  - ValidationError: Input and configuration validation failures
  - StoreError: Failures reported by the row store
  - ConnectionError: Driver lifecycle and connectivity issues
*/
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier.
type ErrorCode int

const (
	// Validation errors (1000-1999)
	ErrCodeValidation      ErrorCode = 1000
	ErrCodeInvalidCapacity ErrorCode = 1001
	ErrCodeInvalidRequest  ErrorCode = 1002

	// Store errors (2000-2999)
	ErrCodeStore         ErrorCode = 2000
	ErrCodeTableNotFound ErrorCode = 2001
	ErrCodeNotCounter    ErrorCode = 2002
	ErrCodeBadRegexp     ErrorCode = 2003

	// Connection errors (3000-3999)
	ErrCodeConnection     ErrorCode = 3000
	ErrCodeClientShutdown ErrorCode = 3001
	ErrCodeScannerClosed  ErrorCode = 3002
)

// Category classifies an error for handling and reporting.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryStore      Category = "store"
	CategoryConnection Category = "connection"
)

// Error is a structured rowgate error.
type Error struct {
	Code     ErrorCode
	Category Category
	Message  string
	Err      error // wrapped cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code, so sentinel instances work with errors.Is
// even after wrapping.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Code == te.Code
	}
	return false
}

// New creates a structured error.
func New(code ErrorCode, category Category, message string) *Error {
	return &Error{Code: code, Category: category, Message: message}
}

// Newf creates a structured error with a formatted message.
func Newf(code ErrorCode, category Category, format string, args ...interface{}) *Error {
	return &Error{Code: code, Category: category, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a structured error wrapping a cause.
func Wrap(code ErrorCode, category Category, message string, err error) *Error {
	return &Error{Code: code, Category: category, Message: message, Err: err}
}
