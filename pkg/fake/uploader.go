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

package fake

import (
	"context"
	"fmt"
	"io"

	"github.com/Pallinder/go-randomdata"
	"github.com/samber/lo"

	"github.com/RealA10N/cccrawl/pkg/uploaders"
)

// UploaderBehavior must be reset between tests otherwise tests will
// pollute each other.
type UploaderBehavior struct {
	UploadBehavior MockedFunction[string, string]
}

// Uploader fakes the paste service, answering uploads with generated paste
// URLs. The uploaded text is recorded for assertions.
type Uploader struct {
	UploaderBehavior
}

func NewUploader() *Uploader {
	return &Uploader{}
}

// Reset must be called between tests otherwise tests will pollute
// each other.
func (u *Uploader) Reset() {
	u.UploadBehavior.Reset()
}

func (u *Uploader) Upload(_ context.Context, content io.Reader) (string, error) {
	text, err := io.ReadAll(content)
	if err != nil {
		return "", uploaders.NewUploadError(err)
	}
	out, err := u.UploadBehavior.Invoke(lo.ToPtr(string(text)), func(*string) (*string, error) {
		return lo.ToPtr(fmt.Sprintf("https://ity.sh/%s", randomdata.Alphanumeric(16))), nil
	})
	if err != nil {
		return "", err
	}
	return lo.FromPtr(out), nil
}
