package remote

import (
	"context"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Dedupe wraps c so that identical requests issued while one is already in
// flight share its result instead of going out again. Requests with a body
// are never shared.
//
// The shared request runs without any one caller's cancellation, bounded by
// the wrapped client's own timeout. A caller whose context ends stops
// waiting and gets its context error; the others still receive the result.
func Dedupe(c Client) Client {
	return &dedupeClient{next: c}
}

type dedupeClient struct {
	next  Client
	group singleflight.Group
}

func (d *dedupeClient) Request(ctx context.Context, url string, opts Options) ([]byte, error) {
	if opts.Body != nil {
		return d.next.Request(ctx, url, opts)
	}
	shared := context.WithoutCancel(ctx)
	ch := d.group.DoChan(requestKey(url, opts), func() (any, error) {
		return d.next.Request(shared, url, opts)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func requestKey(url string, opts Options) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(opts.Method))
	b.WriteByte(' ')
	b.WriteString(url)
	b.WriteByte(' ')
	b.WriteString(opts.Headers["Authorization"])
	return b.String()
}
