package request_test

import (
	"strings"

	"github.com/icecave/forkstream/request"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Read", func() {
	read := func(input string) (*request.Request, error) {
		return request.Read(strings.NewReader(input))
	}

	It("parses the upstream URL from the request target", func() {
		req, err := read("GET /http://upstream.example/video?cacheKey=abc HTTP/1.1\r\n\r\n")

		Expect(err).NotTo(HaveOccurred())
		Expect(req.URL).To(Equal("http://upstream.example/video?cacheKey=abc"))
	})

	It("strips exactly one leading slash from the target", func() {
		req, err := read("GET //double HTTP/1.1\r\n\r\n")

		Expect(err).NotTo(HaveOccurred())
		Expect(req.URL).To(Equal("/double"))
	})

	It("accepts a lower-case method", func() {
		req, err := read("get /http://upstream.example/ HTTP/1.1\r\n\r\n")

		Expect(err).NotTo(HaveOccurred())
		Expect(req.URL).To(Equal("http://upstream.example/"))
	})

	It("retains the raw header lines in order", func() {
		req, err := read(
			"GET /http://upstream.example/ HTTP/1.1\r\n" +
				"Host: x\r\n" +
				"Accept: */*\r\n" +
				"X-Custom: value\r\n" +
				"\r\n",
		)

		Expect(err).NotTo(HaveOccurred())
		Expect(req.Headers).To(Equal([]string{
			"Host: x",
			"Accept: */*",
			"X-Custom: value",
		}))
	})

	It("derives query parameters from the target URL", func() {
		req, err := read("GET /http://upstream.example/v?cacheKey=abc&quality=hd HTTP/1.1\r\n\r\n")

		Expect(err).NotTo(HaveOccurred())
		Expect(req.Query).To(Equal(map[string]string{
			"cacheKey": "abc",
			"quality":  "hd",
		}))
	})

	It("retains only the first value of a repeated parameter", func() {
		req, err := read("GET /http://upstream.example/v?k=first&k=second HTTP/1.1\r\n\r\n")

		Expect(err).NotTo(HaveOccurred())
		Expect(req.Query).To(Equal(map[string]string{"k": "first"}))
	})

	It("returns an empty query for a target without parameters", func() {
		req, err := read("GET /http://upstream.example/v HTTP/1.1\r\n\r\n")

		Expect(err).NotTo(HaveOccurred())
		Expect(req.Query).To(BeEmpty())
	})

	It("rejects methods other than GET", func() {
		_, err := read("POST /http://upstream.example/ HTTP/1.1\r\n\r\n")

		Expect(err).To(BeAssignableToTypeOf(&request.UnsupportedMethodError{}))
		Expect(err.(*request.UnsupportedMethodError).Method).To(Equal("POST"))
	})

	It("rejects an empty request line", func() {
		_, err := read("\r\n\r\n")

		Expect(err).To(BeAssignableToTypeOf(&request.MalformedRequestError{}))
	})

	It("rejects a request line without a target", func() {
		_, err := read("GET\r\n\r\n")

		Expect(err).To(BeAssignableToTypeOf(&request.MalformedRequestError{}))
	})

	It("rejects a truncated request line", func() {
		_, err := read("GET /http://upstream.example/")

		Expect(err).To(BeAssignableToTypeOf(&request.MalformedRequestError{}))
	})

	It("rejects an unterminated header section", func() {
		_, err := read("GET /http://upstream.example/ HTTP/1.1\r\nHost: x\r\n")

		Expect(err).To(BeAssignableToTypeOf(&request.MalformedRequestError{}))
	})

	It("rejects an empty stream", func() {
		_, err := read("")

		Expect(err).To(BeAssignableToTypeOf(&request.MalformedRequestError{}))
	})
})
