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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// ID is a content-addressed identity: the lower-case hex SHA-256 of the
// entity's canonical token tuple. Two entities with equal ids are the same
// logical entity.
type ID string

// nullToken stands in for absent tokens. The presence or absence of a field is
// part of identity: two submissions differing only in whether a timestamp
// exists must not collapse to one id.
const nullToken = "None"

// HashTokens computes the id of a canonical token tuple. It is a pure
// function: the same tokens produce the same id on every run and machine.
func HashTokens(tokens ...any) ID {
	parts := lo.Map(tokens, func(token any, _ int) string { return canonicalToken(token) })
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return ID(hex.EncodeToString(sum[:]))
}

func canonicalToken(token any) string {
	switch v := token.(type) {
	case nil:
		return nullToken
	case string:
		return v
	case ID:
		return string(v)
	case Platform:
		return string(v)
	case Verdict:
		return string(v)
	case int:
		return strconv.Itoa(v)
	case *string:
		if v == nil {
			return nullToken
		}
		return *v
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return nullToken
		}
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}
