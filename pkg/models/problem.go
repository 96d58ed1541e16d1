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

import "encoding/json"

// Problem is a judge problem, identified by the hash of its canonical URL.
type Problem struct {
	ProblemURL string `json:"problem_url"`
}

func NewProblem(url string) Problem {
	return Problem{ProblemURL: url}
}

func (p Problem) ID() ID {
	return HashTokens(p.ProblemURL)
}

func (p Problem) MarshalJSON() ([]byte, error) {
	type alias Problem
	return json.Marshal(struct {
		ID ID `json:"id"`
		alias
	}{ID: p.ID(), alias: alias(p)})
}
