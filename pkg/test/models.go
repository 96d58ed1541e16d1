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

package test

import (
	"fmt"
	"strings"
	"time"

	"github.com/Pallinder/go-randomdata"
	"github.com/samber/lo"

	"github.com/RealA10N/cccrawl/pkg/models"
)

// CodeforcesIntegration builds a valid integration with a random handle.
func CodeforcesIntegration() models.AnyIntegration {
	handle := strings.ToLower(randomdata.Alphanumeric(10))
	return models.NewAnyIntegration(models.NewCodeforcesIntegration(handle))
}

// CsesIntegration builds a valid integration with a random user number.
func CsesIntegration() models.AnyIntegration {
	userNumber := randomdata.Number(1, 10_000_000)
	handle := strings.ToLower(randomdata.Alphanumeric(8))
	return models.NewAnyIntegration(models.NewCsesIntegration(userNumber, handle))
}

// CrawledSubmission builds a discovered submission owned by the integration,
// with a random problem, verdict and submission page.
func CrawledSubmission(integration models.AnyIntegration) models.CrawledSubmission {
	submittedAt := time.Unix(int64(randomdata.Number(1_500_000_000, 1_700_000_000)), 0).UTC()
	return models.CrawledSubmission{
		Integration:   integration,
		Problem:       models.NewProblem(fmt.Sprintf("https://judge.test/problem/%d", randomdata.Number(1, 10_000))),
		Verdict:       lo.Ternary(randomdata.Boolean(), models.VerdictAccepted, models.VerdictRejected),
		SubmittedAt:   lo.ToPtr(submittedAt),
		SubmissionURL: lo.ToPtr(fmt.Sprintf("https://judge.test/submission/%d", randomdata.Number(1, 1_000_000))),
	}
}

// Submission builds a finalized submission owned by the integration.
func Submission(integration models.AnyIntegration) *models.Submission {
	submission := models.NewSubmission(CrawledSubmission(integration), time.Now().UTC())
	submission.RawCodeURL = lo.ToPtr(fmt.Sprintf("https://ity.sh/%s", strings.ToLower(randomdata.Alphanumeric(16))))
	return submission
}
