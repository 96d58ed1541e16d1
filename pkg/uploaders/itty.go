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

package uploaders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/samber/lo"
)

const (
	ittyURL = "https://ity.sh/"

	DefaultKeyLength = 16
	DefaultTTL       = "30years"
)

// IttyUploader stores pastes on ity.sh. The service takes the JSON-encoded
// text as the request body and answers with a JSON object carrying the paste
// URL. Uploads are neither rate limited nor retried; a failed upload is the
// caller's signal to proceed without a raw code URL.
type IttyUploader struct {
	client    HTTPDoer
	keyLength int
	ttl       string
}

func NewIttyUploader(client HTTPDoer, keyLength int, ttl string) *IttyUploader {
	return &IttyUploader{
		client:    client,
		keyLength: keyLength,
		ttl:       ttl,
	}
}

func (u *IttyUploader) Upload(ctx context.Context, content io.Reader) (string, error) {
	pasteURL, err := u.upload(ctx, content)
	uploadsTotal.WithLabelValues(lo.Ternary(err == nil, "succeeded", "failed")).Inc()
	return pasteURL, err
}

func (u *IttyUploader) upload(ctx context.Context, content io.Reader) (string, error) {
	text, err := io.ReadAll(content)
	if err != nil {
		return "", NewUploadError(fmt.Errorf("reading content, %w", err))
	}
	payload, err := json.Marshal(string(text))
	if err != nil {
		return "", NewUploadError(fmt.Errorf("encoding content, %w", err))
	}

	uploadURL := fmt.Sprintf("%s?ttl=%s&length=%d", ittyURL, url.QueryEscape(u.ttl), u.keyLength)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(payload))
	if err != nil {
		return "", NewUploadError(fmt.Errorf("building request, %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", NewUploadError(fmt.Errorf("posting paste, %w", err))
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewUploadError(fmt.Errorf("reading paste response, %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", NewUploadErrorf("paste service returned status %d", resp.StatusCode)
	}

	parsed := struct {
		URL string `json:"url"`
	}{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", NewUploadError(fmt.Errorf("decoding paste response, %w", err))
	}
	if parsed.URL == "" {
		return "", NewUploadErrorf("paste response carries no url")
	}
	return parsed.URL, nil
}
