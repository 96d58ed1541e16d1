/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package uploaders stores submission source code on a public paste service.
package uploaders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Uploader posts text to a public paste service and returns a durable URL to
// the stored content.
type Uploader interface {
	Upload(ctx context.Context, content io.Reader) (string, error)
}

// HTTPDoer matches the subset of http.Client the uploaders need.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// UploadError reports a failed upload. Callers treat it as recoverable: the
// submission is recorded without a raw code URL.
type UploadError struct {
	error
}

func NewUploadError(err error) error {
	if err == nil {
		return nil
	}
	return &UploadError{error: err}
}

func NewUploadErrorf(format string, args ...any) error {
	return &UploadError{error: fmt.Errorf(format, args...)}
}

func (e *UploadError) Unwrap() error { return e.error }

func IsUploadError(err error) bool {
	if err == nil {
		return false
	}
	uploadError := &UploadError{}
	return errors.As(err, &uploadError)
}
