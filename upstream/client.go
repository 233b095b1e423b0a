package upstream

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// Client is an Executor backed by net/http.
type Client struct {
	// HTTPClient is the underlying HTTP client. If nil,
	// http.DefaultClient is used.
	HTTPClient *http.Client
}

// Do executes a GET request for the given URL, carrying the client's header
// lines, and adapts the result into a Response. net/http does not preserve
// the wire order of response headers, so the headers are emitted in a
// canonical order: names sorted, values in arrival order.
func (c *Client) Do(ctx context.Context, url string, headers []string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	applyHeaders(req, headers)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	res, err := httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	return &Response{
		Proto:      res.Proto,
		StatusCode: res.StatusCode,
		Message:    statusMessage(res),
		Headers:    orderedHeaders(res.Header),
		Body:       res.Body,
	}, nil
}

// applyHeaders adds the raw "Name: Value" header lines to the request.
// Lines without a separator are ignored.
func applyHeaders(req *http.Request, headers []string) {
	for _, line := range headers {
		i := strings.Index(line, ":")
		if i < 0 {
			continue
		}

		name := strings.TrimSpace(line[:i])
		value := strings.TrimSpace(line[i+1:])

		if strings.EqualFold(name, "Host") {
			req.Host = value
		} else {
			req.Header.Add(name, value)
		}
	}
}

// statusMessage extracts the reason phrase from a response status such as
// "200 OK".
func statusMessage(res *http.Response) string {
	message := strings.TrimPrefix(res.Status, strconv.Itoa(res.StatusCode))
	return strings.TrimSpace(message)
}

func orderedHeaders(header http.Header) []Header {
	names := make([]string, 0, len(header))
	for name := range header {
		names = append(names, name)
	}
	sort.Strings(names)

	var headers []Header
	for _, name := range names {
		for _, value := range header[name] {
			headers = append(headers, Header{Name: name, Value: value})
		}
	}

	return headers
}
