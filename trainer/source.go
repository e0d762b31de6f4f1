package trainer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/neurlang/fwlearn/cache"
	"github.com/neurlang/fwlearn/feature"
	"github.com/neurlang/fwlearn/recordreader"
	"github.com/neurlang/fwlearn/vwmap"
)

const maxLineLen = 64 << 20

// source sends the records of one pass to out
type source func(ctx context.Context, out chan<- feature.Record) error

func send(ctx context.Context, out chan<- feature.Record, r feature.Record) error {
	select {
	case out <- slices.Clone(r):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// textSource parses vowpal wabbit lines from in, copying every record to cw if set
func textSource(in io.Reader, vw *vwmap.NamespaceMap, cw *cache.Writer) source {
	return func(ctx context.Context, out chan<- feature.Record) error {
		var rr = recordreader.New(vw)
		var sc = bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 1<<20), maxLineLen)
		for sc.Scan() {
			rec, err := rr.Parse(sc.Text())
			if err != nil {
				return err
			}
			if rec == nil {
				continue
			}
			if cw != nil {
				if err := cw.Write(rec); err != nil {
					return fmt.Errorf("write cache: %w", err)
				}
			}
			if err := send(ctx, out, rec); err != nil {
				return err
			}
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("read input line %d: %w", rr.Line()+1, err)
		}
		if cw != nil {
			return cw.Close()
		}
		return nil
	}
}

// cacheSource replays a record cache, rejecting records the combiner would panic on
func cacheSource(in io.Reader, namespaces int) source {
	return func(ctx context.Context, out chan<- feature.Record) error {
		cr, err := cache.NewReader(in, namespaces)
		if err != nil {
			return err
		}
		for n := 1; ; n++ {
			rec, err := cr.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := feature.CheckRecord(rec, namespaces); err != nil {
				return fmt.Errorf("%w: record %d: %w", cache.ErrCorrupt, n, err)
			}
			if err := send(ctx, out, rec); err != nil {
				return err
			}
		}
	}
}
