package ledger

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// ObjectStat is what a HEAD probe observed about a stored object. SizeBytes
// is the object store's own account of bytes written — the authoritative
// figure for accounting, regardless of what the client declared.
type ObjectStat struct {
	SizeBytes   int64
	ContentType string
}

// ObjectProbe performs verification calls against the object store through
// presigned URLs. A timeout is treated identically to a failed probe.
type ObjectProbe interface {
	Head(ctx context.Context, url string) (ObjectStat, error)
	Delete(ctx context.Context, url string) error
}

// HTTPProbe is the production ObjectProbe over a plain HTTP client.
type HTTPProbe struct {
	client *http.Client
}

func NewHTTPProbe(client *http.Client) *HTTPProbe {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProbe{client: client}
}

func (p *HTTPProbe) Head(ctx context.Context, url string) (ObjectStat, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return ObjectStat{}, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return ObjectStat{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ObjectStat{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	size := resp.ContentLength
	if size < 0 {
		size, err = strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
		if err != nil {
			return ObjectStat{}, fmt.Errorf("no content length in probe response")
		}
	}

	return ObjectStat{SizeBytes: size, ContentType: resp.Header.Get("Content-Type")}, nil
}

func (p *HTTPProbe) Delete(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 404 means the bytes are already gone, which is all we wanted.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
