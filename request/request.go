package request

import (
	"bufio"
	"io"
	"net/url"
	"strings"
)

// Request is a single parsed inbound proxy request. It is immutable once
// parsed and scoped to one client connection.
type Request struct {
	// URL is the literal upstream URL recovered from the request target by
	// stripping the leading path separator. The target of a proxied request
	// is "/" followed by the absolute upstream URL, including its scheme,
	// host, path and query string. This is a deliberate convention of the
	// proxy, not generic HTTP proxying.
	URL string

	// Headers holds the raw header lines of the request, in the order they
	// were received, without folding or duplicate-key merging.
	Headers []string

	// Query maps each query parameter of the upstream URL to its first
	// value.
	Query map[string]string
}

// Read parses exactly one request from r: a whitespace-tokenized request
// line followed by CRLF-terminated header lines up to a blank line. No
// request body is read.
//
// It returns an UnsupportedMethodError for any method other than GET, and a
// MalformedRequestError for missing tokens, truncated lines, an
// unterminated header section, or an unparseable target URL.
func Read(r io.Reader) (*Request, error) {
	reader := bufio.NewReader(r)

	line, err := readLine(reader)
	if err != nil {
		return nil, err
	}

	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil, &MalformedRequestError{Reason: "empty request line"}
	}

	if !strings.EqualFold(tokens[0], "GET") {
		return nil, &UnsupportedMethodError{Method: tokens[0]}
	}

	if len(tokens) < 2 {
		return nil, &MalformedRequestError{Reason: "missing request target"}
	}

	target := strings.TrimPrefix(tokens[1], "/")

	headers, err := readHeaders(reader)
	if err != nil {
		return nil, err
	}

	query, err := parseQuery(target)
	if err != nil {
		return nil, err
	}

	return &Request{
		URL:     target,
		Headers: headers,
		Query:   query,
	}, nil
}

// readHeaders reads raw header lines up to (and consuming) the blank line
// that terminates the header section.
func readHeaders(reader *bufio.Reader) ([]string, error) {
	var headers []string

	for {
		line, err := readLine(reader)
		if err != nil {
			return nil, &MalformedRequestError{Reason: "unterminated header section"}
		}

		if line == "" {
			return headers, nil
		}

		headers = append(headers, line)
	}
}

// parseQuery maps each parameter in the URL's query string to its first
// value.
func parseQuery(target string) (map[string]string, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, &MalformedRequestError{Reason: "invalid target URL"}
	}

	query := map[string]string{}
	for name, values := range parsed.Query() {
		if len(values) > 0 {
			query[name] = values[0]
		}
	}

	return query, nil
}

// readLine reads a single newline-terminated line, without its terminator.
// End of stream before the terminator is an error.
func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", &MalformedRequestError{Reason: "unexpected end of stream"}
	}

	return strings.TrimRight(line, "\r\n"), nil
}
