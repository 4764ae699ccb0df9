/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package reconciler

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
)

// ErrDatabaseConnection represents a lost or refused connection while reading the catalog
type ErrDatabaseConnection struct {
	Msg string
	Err error
}

// ErrQueryExecution represents a catalog query the server rejected
type ErrQueryExecution struct {
	Msg string
	Err error
}

// ErrCancelled represents errors when an operation is cancelled
type ErrCancelled struct {
	Msg string
	Err error
}

func (e *ErrDatabaseConnection) Error() string {
	return fmt.Sprintf("database connection error: %s: %v", e.Msg, e.Err)
}

func (e *ErrDatabaseConnection) Unwrap() error {
	return e.Err
}

func (e *ErrQueryExecution) Error() string {
	return fmt.Sprintf("query execution error: %s: %v", e.Msg, e.Err)
}

func (e *ErrQueryExecution) Unwrap() error {
	return e.Err
}

func (e *ErrCancelled) Error() string {
	return fmt.Sprintf("operation cancelled: %s: %v", e.Msg, e.Err)
}

func (e *ErrCancelled) Unwrap() error {
	return e.Err
}

// classify wraps a catalog error in the typed error matching its cause.
func classify(msg string, err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &ErrCancelled{Msg: msg, Err: err}
	case errors.Is(err, driver.ErrBadConn), errors.As(err, &netErr):
		return &ErrDatabaseConnection{Msg: msg, Err: err}
	}
	return &ErrQueryExecution{Msg: msg, Err: err}
}
