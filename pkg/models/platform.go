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
	"fmt"
	"strings"
)

// Platform names a supported competitive-programming judge. Identity depends
// on the textual name, so values never change once released.
type Platform string

const (
	PlatformCodeforces Platform = "codeforces"
	PlatformCses       Platform = "cses"
)

// ParsePlatform maps a string onto a known platform, rejecting anything else.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformCodeforces, PlatformCses:
		return p, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}
