package toolserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
)

// maxLineBytes bounds a single stdio frame; bufio.Scanner's default buffer
// is too small for a unit's source code embedded in params/result, so ServeStdio
// grows it up front instead of failing on the first oversized line.
const maxLineBytes = 16 * 1024 * 1024

// ServeStdio runs the single-reader, single-writer line-delimited stdio
// transport: one JSON Request per line in, one JSON Response per line out.
// Concurrent in-flight requests are not supported on this transport;
// ServeStdio blocks until r is exhausted or ctx is canceled.
func ServeStdio(ctx context.Context, registry *Registry, r io.Reader, w io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			resp := Response{Ok: false, ErrorType: ErrKindParse, Error: "parse failure: " + err.Error()}
			if writeErr := writeLine(w, resp); writeErr != nil {
				return writeErr
			}
			continue
		}

		resp := registry.Dispatch(ctx, req)
		if err := writeLine(w, resp); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		logger.Error("toolserver: stdio scan error", slog.Any("error", err))
		return err
	}
	return nil
}

func writeLine(w io.Writer, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
