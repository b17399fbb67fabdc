package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/starford/jotter/internal/models"
)

// Watch follows the server's change feed until ctx ends, calling fn for
// every note change. author, when set, narrows the feed to that author's
// notes. A cancelled ctx is not an error.
func (c *Client) Watch(ctx context.Context, author string, fn func(models.Change)) error {
	path := "/events"
	if author != "" {
		path += "?author=" + url.QueryEscape(author)
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return statusError(resp)
	}

	err = readFeed(resp.Body, fn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readFeed parses an SSE stream and hands note events to fn. Other events
// are skipped.
func readFeed(r io.Reader, fn func(models.Change)) error {
	sc := bufio.NewScanner(r)
	var event, data string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if strings.HasPrefix(event, "note.") && data != "" {
				var ch models.Change
				if err := json.Unmarshal([]byte(data), &ch); err != nil {
					slog.Warn("skip malformed change", slog.String("event", event), slog.String("error", err.Error()))
				} else {
					fn(ch)
				}
			}
			event, data = "", ""
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	return sc.Err()
}

// Follow keeps co's cache in step with the server's change feed until ctx
// ends.
func (c *Client) Follow(ctx context.Context, co *Coordinator, author string) error {
	return c.Watch(ctx, author, co.Apply)
}
