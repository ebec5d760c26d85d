package embeddings

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// maxLogLine bounds a single backend log line; trigger lists with many
// embeddings can get long.
const maxLogLine = 1 << 20

// Consume reads backend output line by line and feeds every line carrying
// the trigger marker to IngestLogLine. onLine, when set, sees every line
// after it has been ingested, along with the number of entries it loaded and
// whether it rebuilt the table. It returns nil at EOF and ctx.Err() when
// canceled.
func (r *Resolver) Consume(ctx context.Context, rd io.Reader, onLine func(line string, loaded int, rebuilt bool)) error {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), maxLogLine)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Text()
		n, ok := 0, false
		if strings.Contains(line, r.marker) {
			n, ok = r.IngestLogLine(line)
		}
		if onLine != nil {
			onLine(line, n, ok)
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return ctx.Err()
}
