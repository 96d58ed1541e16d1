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

package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Integration is a (platform, user-identifier) binding representing one
// external account the crawler tracks. Concrete integrations are tagged by
// their platform and hash their distinguishing field into the id.
type Integration interface {
	ID() ID
	GetPlatform() Platform
	GetLastFetch() *time.Time
	SetLastFetch(time.Time)
	// Validate normalizes the integration in place and reports whether the
	// remaining fields are within the platform's bounds.
	Validate() error
}

// CodeforcesIntegration tracks a Codeforces account by handle. Handles are
// case-insensitive on the judge, so they are lower-cased before hashing.
type CodeforcesIntegration struct {
	Platform  Platform   `json:"platform"`
	Handle    string     `json:"handle"`
	LastFetch *time.Time `json:"last_fetch"`
}

func NewCodeforcesIntegration(handle string) *CodeforcesIntegration {
	return &CodeforcesIntegration{
		Platform: PlatformCodeforces,
		Handle:   strings.ToLower(strings.TrimSpace(handle)),
	}
}

func (i *CodeforcesIntegration) ID() ID {
	return HashTokens(i.Platform, i.Handle)
}

func (i *CodeforcesIntegration) GetPlatform() Platform    { return i.Platform }
func (i *CodeforcesIntegration) GetLastFetch() *time.Time { return i.LastFetch }

func (i *CodeforcesIntegration) SetLastFetch(t time.Time) {
	t = t.UTC()
	i.LastFetch = &t
}

func (i *CodeforcesIntegration) Validate() error {
	i.Platform = PlatformCodeforces
	i.Handle = strings.ToLower(strings.TrimSpace(i.Handle))
	if l := len(i.Handle); l < 3 || l > 30 {
		return fmt.Errorf("codeforces handle must be between 3 and 30 characters, got %d", l)
	}
	return nil
}

func (i CodeforcesIntegration) MarshalJSON() ([]byte, error) {
	type alias CodeforcesIntegration
	return json.Marshal(struct {
		ID ID `json:"id"`
		alias
	}{ID: (&i).ID(), alias: alias(i)})
}

// CsesIntegration tracks a CSES account by its numeric user id. The handle is
// carried alongside because the hack list identifies submitters by display
// name, not number.
type CsesIntegration struct {
	Platform   Platform   `json:"platform"`
	UserNumber int        `json:"user_number"`
	Handle     string     `json:"handle"`
	LastFetch  *time.Time `json:"last_fetch"`
}

func NewCsesIntegration(userNumber int, handle string) *CsesIntegration {
	return &CsesIntegration{
		Platform:   PlatformCses,
		UserNumber: userNumber,
		Handle:     strings.TrimSpace(handle),
	}
}

func (i *CsesIntegration) ID() ID {
	return HashTokens(i.Platform, i.UserNumber)
}

func (i *CsesIntegration) GetPlatform() Platform    { return i.Platform }
func (i *CsesIntegration) GetLastFetch() *time.Time { return i.LastFetch }

func (i *CsesIntegration) SetLastFetch(t time.Time) {
	t = t.UTC()
	i.LastFetch = &t
}

func (i *CsesIntegration) Validate() error {
	i.Platform = PlatformCses
	i.Handle = strings.TrimSpace(i.Handle)
	if i.UserNumber < 1 || i.UserNumber > 10_000_000 {
		return fmt.Errorf("cses user number must be between 1 and 10000000, got %d", i.UserNumber)
	}
	if l := len(i.Handle); l < 1 || l > 16 {
		return fmt.Errorf("cses handle must be between 1 and 16 characters, got %d", l)
	}
	return nil
}

func (i CsesIntegration) MarshalJSON() ([]byte, error) {
	type alias CsesIntegration
	return json.Marshal(struct {
		ID ID `json:"id"`
		alias
	}{ID: (&i).ID(), alias: alias(i)})
}

// AnyIntegration is the serialization envelope for the heterogeneous
// integration collection: one JSON shape discriminated by the top-level
// "platform" field.
type AnyIntegration struct {
	Integration
}

func NewAnyIntegration(i Integration) AnyIntegration {
	return AnyIntegration{Integration: i}
}

func (a AnyIntegration) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Integration)
}

func (a *AnyIntegration) UnmarshalJSON(data []byte) error {
	var probe struct {
		Platform Platform `json:"platform"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("probing integration platform, %w", err)
	}
	switch probe.Platform {
	case PlatformCodeforces:
		integration := &CodeforcesIntegration{}
		if err := json.Unmarshal(data, integration); err != nil {
			return err
		}
		a.Integration = integration
	case PlatformCses:
		integration := &CsesIntegration{}
		if err := json.Unmarshal(data, integration); err != nil {
			return err
		}
		a.Integration = integration
	default:
		return fmt.Errorf("unknown platform %q", probe.Platform)
	}
	return a.Integration.Validate()
}
