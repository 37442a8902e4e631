package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/pkg/jsonmessage"
)

// errPullConsumed is yielded when Events is iterated a second time.
var errPullConsumed = errors.New("pull progress stream already consumed")

// PullEvent is one decoded progress message from an image pull.
type PullEvent struct {
	// ID is the layer ID, or the tag for whole-image messages.
	ID      string
	Status  string
	Current int64
	Total   int64
}

// PullProgress is the progress stream of an in-flight image pull.
// Ranging over Events, to the end or not, releases the daemon connection.
type PullProgress struct {
	ref      string
	body     io.ReadCloser
	consumed bool
}

// PullImage asks the daemon to pull ref and returns its progress stream.
// The pull runs on the daemon as the stream is read.
func (c *Client) PullImage(ctx context.Context, ref string) (*PullProgress, error) {
	start := time.Now()
	body, err := c.inner.ImagePull(ctx, ref, image.PullOptions{})
	c.metrics.ObserveRuntime("pull_image", start, err)
	if err != nil {
		return nil, classify("pull image", ref, err)
	}
	return &PullProgress{ref: ref, body: body}, nil
}

// Events returns the pull's progress messages, decoded lazily as the
// sequence is ranged over. The sequence is finite and can be ranged over
// once; the stream is closed when iteration ends. A message reporting a
// daemon-side error is yielded with that error and iteration continues;
// a malformed stream yields a decode error and stops.
func (p *PullProgress) Events() iter.Seq2[PullEvent, error] {
	return func(yield func(PullEvent, error) bool) {
		if p.consumed {
			yield(PullEvent{ID: p.ref}, errPullConsumed)
			return
		}
		p.consumed = true
		defer p.body.Close()

		dec := json.NewDecoder(p.body)
		for {
			var msg jsonmessage.JSONMessage
			if err := dec.Decode(&msg); err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				yield(PullEvent{ID: p.ref}, fmt.Errorf("decode pull progress for %s: %w", p.ref, err))
				return
			}

			ev := PullEvent{ID: msg.ID, Status: msg.Status}
			if msg.Progress != nil {
				ev.Current = msg.Progress.Current
				ev.Total = msg.Progress.Total
			}

			var evErr error
			if msg.Error != nil {
				evErr = fmt.Errorf("pull %s: %w", p.ref, msg.Error)
			}
			if !yield(ev, evErr) {
				return
			}
		}
	}
}

// RemoveImage removes the image ref. Removal is not forced, so an image
// still used by another container fails.
func (c *Client) RemoveImage(ctx context.Context, ref string) error {
	start := time.Now()
	_, err := c.inner.ImageRemove(ctx, ref, image.RemoveOptions{})
	c.metrics.ObserveRuntime("remove_image", start, err)
	if err != nil {
		return classify("remove image", ref, err)
	}
	return nil
}

// RemoveVolume removes the named volume.
func (c *Client) RemoveVolume(ctx context.Context, name string) error {
	start := time.Now()
	err := c.inner.VolumeRemove(ctx, name, false)
	c.metrics.ObserveRuntime("remove_volume", start, err)
	if err != nil {
		return classify("remove volume", name, err)
	}
	return nil
}
