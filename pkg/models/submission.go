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
	"time"

	"github.com/samber/lo"
)

// Verdict is a coarse submission outcome. Some judges (CSES) expose no finer
// state than solved or attempted, so everything maps onto these two.
type Verdict string

const (
	VerdictAccepted Verdict = "accepted"
	VerdictRejected Verdict = "rejected"
)

func VerdictFromAccepted(accepted bool) Verdict {
	return lo.Ternary(accepted, VerdictAccepted, VerdictRejected)
}

// CrawledSubmission is the discovery-phase view of a submission: everything a
// single cheap scrape can provide. Fields a judge does not expose stay nil and
// contribute their null representation to the id, so presence is part of
// identity.
type CrawledSubmission struct {
	Integration   AnyIntegration `json:"integration"`
	Problem       Problem        `json:"problem"`
	Verdict       Verdict        `json:"verdict"`
	SubmittedAt   *time.Time     `json:"submitted_at"`
	SubmissionURL *string        `json:"submission_url"`
}

// ID is the stable submission id: re-scraping the same submission always
// yields the same id, which makes upserts idempotent.
func (s CrawledSubmission) ID() ID {
	return HashTokens(s.Integration.ID(), s.Problem.ID(), s.Verdict, s.SubmittedAt, s.SubmissionURL)
}

// Submission extends a crawled submission with the expensive enrichment of the
// finalization phase. Its id is captured from the crawled submission at
// construction and never recomputed: finalization may fill in fields the
// discovery phase could not see (CSES reveals the submission page and
// timestamp only behind the hack list) without forking the identity the
// dedup set was built on.
type Submission struct {
	CrawledSubmission

	// The first time the crawler saw this submission. Stamped once and
	// constant across re-upserts.
	FirstSeenAt time.Time `json:"first_seen_at"`

	// A URL to a raw text file with the submission source code. Nil when the
	// source is not obtainable (private submission, anonymous session) or the
	// paste upload failed.
	RawCodeURL *string `json:"raw_code_url"`

	id ID
}

func NewSubmission(crawled CrawledSubmission, firstSeen time.Time) *Submission {
	return &Submission{
		CrawledSubmission: crawled,
		FirstSeenAt:       firstSeen.UTC(),
		id:                crawled.ID(),
	}
}

// ID shadows the embedded recomputing ID with the captured one.
func (s Submission) ID() ID {
	return s.id
}

func (s Submission) MarshalJSON() ([]byte, error) {
	type alias Submission
	return json.Marshal(struct {
		ID ID `json:"id"`
		alias
	}{ID: s.ID(), alias: alias(s)})
}

func (s *Submission) UnmarshalJSON(data []byte) error {
	type alias Submission
	wire := struct {
		*alias
		ID ID `json:"id"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	s.id = wire.ID
	if s.id == "" {
		s.id = s.CrawledSubmission.ID()
	}
	return nil
}
