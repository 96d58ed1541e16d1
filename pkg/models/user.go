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

// UserConfig is the registration-time record binding a user to their
// integrations. The crawl loop is driven by the integrations collection, not
// by user configs.
type UserConfig struct {
	Name         string           `json:"name"`
	Email        string           `json:"email"`
	Integrations []AnyIntegration `json:"integrations"`
}

func (u UserConfig) ID() ID {
	return HashTokens(u.Email)
}

func (u UserConfig) MarshalJSON() ([]byte, error) {
	type alias UserConfig
	return json.Marshal(struct {
		ID ID `json:"id"`
		alias
	}{ID: u.ID(), alias: alias(u)})
}
