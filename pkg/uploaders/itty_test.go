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

package uploaders_test

import (
	"context"
	"errors"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/RealA10N/cccrawl/pkg/fake"
	"github.com/RealA10N/cccrawl/pkg/test"
	"github.com/RealA10N/cccrawl/pkg/uploaders"
)

const uploadURL = "https://ity.sh/?ttl=30years&length=16"

var _ = Describe("IttyUploader", func() {
	var ctx context.Context
	var client *fake.HTTPClient
	var uploader *uploaders.IttyUploader

	BeforeEach(func() {
		ctx = test.ContextWithLogger()
		client = fake.NewHTTPClient()
		uploader = uploaders.NewIttyUploader(client, uploaders.DefaultKeyLength, uploaders.DefaultTTL)
	})

	It("should post the JSON-encoded source and return the paste URL", func() {
		client.RouteResponse(http.MethodPost, uploadURL, fake.RoutedResponse{
			StatusCode: 200,
			Body:       `{"url":"https://ity.sh/AbCd1234"}`,
		})

		pasteURL, err := uploader.Upload(ctx, strings.NewReader("int main(){}"))
		Expect(err).ToNot(HaveOccurred())
		Expect(pasteURL).To(Equal("https://ity.sh/AbCd1234"))

		requests := client.RequestsFor(http.MethodPost, uploadURL)
		Expect(requests).To(HaveLen(1))
		Expect(string(requests[0].Body)).To(Equal(`"int main(){}"`))
		Expect(requests[0].Header.Get("Content-Type")).To(Equal("application/json"))
	})

	It("should carry the configured ttl and key length in the query", func() {
		client.RouteResponse(http.MethodPost, "https://ity.sh/?ttl=1+day&length=8", fake.RoutedResponse{
			StatusCode: 200,
			Body:       `{"url":"https://ity.sh/AbCd"}`,
		})

		short := uploaders.NewIttyUploader(client, 8, "1 day")
		pasteURL, err := short.Upload(ctx, strings.NewReader("print(1)"))
		Expect(err).ToNot(HaveOccurred())
		Expect(pasteURL).To(Equal("https://ity.sh/AbCd"))
	})

	It("should fail on a non-2xx answer", func() {
		client.RouteResponse(http.MethodPost, uploadURL, fake.RoutedResponse{StatusCode: 500})

		_, err := uploader.Upload(ctx, strings.NewReader("print(1)"))
		Expect(uploaders.IsUploadError(err)).To(BeTrue())
	})

	It("should fail on an undecodable answer", func() {
		client.RouteResponse(http.MethodPost, uploadURL, fake.RoutedResponse{StatusCode: 200, Body: `<html>`})

		_, err := uploader.Upload(ctx, strings.NewReader("print(1)"))
		Expect(uploaders.IsUploadError(err)).To(BeTrue())
	})

	It("should fail on an answer without a url", func() {
		client.RouteResponse(http.MethodPost, uploadURL, fake.RoutedResponse{StatusCode: 200, Body: `{}`})

		_, err := uploader.Upload(ctx, strings.NewReader("print(1)"))
		Expect(uploaders.IsUploadError(err)).To(BeTrue())
	})

	It("should fail on a transport error", func() {
		client.Error.Set(errors.New("connection reset"))

		_, err := uploader.Upload(ctx, strings.NewReader("print(1)"))
		Expect(uploaders.IsUploadError(err)).To(BeTrue())
	})
})
