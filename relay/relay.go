package relay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/icecave/forkstream/forked"
	"github.com/icecave/forkstream/upstream"
	"go.uber.org/multierr"
)

// DefaultBufferSize is the chunk size used when none is configured.
const DefaultBufferSize = 16384

// Relay streams an upstream response to a client verbatim, duplicating
// every body chunk into a forked stream.
type Relay struct {
	// BufferSize is the maximum chunk size of the body loop. If zero,
	// DefaultBufferSize is used.
	BufferSize int

	Logger *log.Logger
}

// Stream writes the response's status line, headers and body to client,
// forking each body chunk into fork. Each chunk is written to the client
// before the fork, and both are flushed per chunk. The loop stops without
// error as soon as ctx is cancelled.
//
// If the relay fails or is cancelled mid-stream, fork is aborted before
// Stream returns, so no partial capture survives. On every exit path the
// response body and the forked stream are closed exactly once and the
// client writer is flushed; teardown failures are logged, never propagated.
//
// Stream returns the number of body bytes relayed to the client.
func (r *Relay) Stream(
	ctx context.Context,
	client io.Writer,
	response *upstream.Response,
	fork forked.Stream,
) (int64, error) {
	writer := bufio.NewWriter(client)

	relayed, err := r.stream(ctx, writer, response, fork)

	if err != nil || ctx.Err() != nil {
		fork.Abort()
	}

	teardown := multierr.Combine(
		response.Body.Close(),
		writer.Flush(),
		fork.Close(),
	)
	if teardown != nil && r.Logger != nil {
		r.Logger.Printf("relay: teardown: %v", teardown)
	}

	return relayed, err
}

func (r *Relay) stream(
	ctx context.Context,
	writer *bufio.Writer,
	response *upstream.Response,
	fork forked.Stream,
) (int64, error) {
	if err := writeHead(writer, response); err != nil {
		return 0, err
	}

	// The head must be fully visible to the client before any body bytes.
	if err := writer.Flush(); err != nil {
		return 0, err
	}

	size := r.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	buffer := make([]byte, size)

	var relayed int64
	for ctx.Err() == nil {
		n, err := response.Body.Read(buffer)

		if n > 0 {
			chunk := buffer[:n]

			if _, err := writer.Write(chunk); err != nil {
				return relayed, err
			}
			if err := writer.Flush(); err != nil {
				return relayed, err
			}

			if _, err := fork.Write(chunk); err != nil {
				return relayed, err
			}
			if err := fork.Flush(); err != nil {
				return relayed, err
			}

			relayed += int64(n)
		}

		if err == io.EOF {
			break
		} else if err != nil {
			return relayed, err
		}
	}

	return relayed, nil
}

// writeHead writes the status line, each header in the order supplied by
// the executor, and the terminating blank line.
func writeHead(writer *bufio.Writer, response *upstream.Response) error {
	if _, err := fmt.Fprintf(
		writer,
		"%s %d %s\r\n",
		strings.ToUpper(response.Proto),
		response.StatusCode,
		response.Message,
	); err != nil {
		return err
	}

	for _, h := range response.Headers {
		if _, err := fmt.Fprintf(writer, "%s: %s\r\n", h.Name, h.Value); err != nil {
			return err
		}
	}

	_, err := io.WriteString(writer, "\r\n")
	return err
}
