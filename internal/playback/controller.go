package playback

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wamp/internal/models"
	"github.com/desertthunder/wamp/internal/shared"
)

// DefaultBuffer is the per-subscriber channel size used when Subscribe is given zero.
const DefaultBuffer = 16

// Controller is the playback facade. Intents are forwarded to the [Player] after clamping;
// state updates are republished to subscribers in emission order.
type Controller struct {
	player Player
	logger *log.Logger

	mu     sync.RWMutex
	state  models.PlaybackState
	subs   map[int]chan models.PlaybackState
	nextID int
}

// NewController creates a [Controller] whose state starts idle.
func NewController(player Player, logger *log.Logger) *Controller {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Controller{
		player: player,
		logger: logger,
		state:  models.IdlePlaybackState(),
		subs:   make(map[int]chan models.PlaybackState),
	}
}

// Run consumes the player's state stream until ctx is done or the stream closes.
func (c *Controller) Run(ctx context.Context) error {
	updates := c.player.States()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			c.mu.RLock()
			volume := c.state.Volume
			c.mu.RUnlock()
			c.publish(u.ToModel(volume))
		}
	}
}

// State returns the most recent state.
func (c *Controller) State() models.PlaybackState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Subscribe returns a channel receiving every subsequent state, and a func to stop the subscription.
//
// A subscriber that falls behind loses its oldest pending state, never the newest.
func (c *Controller) Subscribe(buffer int) (<-chan models.PlaybackState, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan models.PlaybackState, buffer)

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
			close(ch)
		})
	}
}

func (c *Controller) publish(state models.PlaybackState) {
	c.update(func(models.PlaybackState) (models.PlaybackState, bool) { return state, true })
}

// update derives the next state from the latest one and fans it out under a single lock,
// so a patch never overwrites a newer state published concurrently.
func (c *Controller) update(fn func(models.PlaybackState) (models.PlaybackState, bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, changed := fn(c.state)
	if !changed {
		return
	}
	c.state = state
	for _, ch := range c.subs {
		select {
		case ch <- state:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- state:
		default:
		}
	}
}

// Play starts uri, a track or context URI.
func (c *Controller) Play(ctx context.Context, uri string) error {
	if uri == "" {
		return fmt.Errorf("%w: uri", shared.ErrMissingArgument)
	}
	c.logger.Debug("play", "uri", uri)
	return c.player.Play(ctx, uri)
}

func (c *Controller) Pause(ctx context.Context) error  { return c.player.Pause(ctx) }
func (c *Controller) Resume(ctx context.Context) error { return c.player.Resume(ctx) }

// SkipNext and SkipPrevious are delegated entirely to the player; there is no local queue.
func (c *Controller) SkipNext(ctx context.Context) error     { return c.player.Next(ctx) }
func (c *Controller) SkipPrevious(ctx context.Context) error { return c.player.Previous(ctx) }

// TogglePlay pauses when playing and resumes otherwise.
func (c *Controller) TogglePlay(ctx context.Context) error {
	if c.State().IsPlaying {
		return c.Pause(ctx)
	}
	return c.Resume(ctx)
}

// Seek moves to seconds. Negative input seeks to 0; input past the known duration seeks to the end.
func (c *Controller) Seek(ctx context.Context, seconds float64) error {
	ms := 0
	if seconds > 0 && !math.IsNaN(seconds) {
		ms = int(math.Min(math.Round(seconds*1000), math.MaxInt32))
	}
	if d := c.State().DurationMs; d > 0 && ms > d {
		ms = d
	}
	return c.player.Seek(ctx, ms)
}

// SetVolume clamps percent to 0..100 and forwards it. The new volume is published once the player accepts it.
func (c *Controller) SetVolume(ctx context.Context, percent int) error {
	v := shared.Clamp(percent, 0, 100)
	if err := c.player.SetVolume(ctx, v); err != nil {
		return err
	}

	c.update(func(s models.PlaybackState) (models.PlaybackState, bool) {
		if s.Volume == v {
			return s, false
		}
		s.Volume = v
		return s, true
	})
	return nil
}

// AdjustVolume changes the volume by delta relative to the current state.
func (c *Controller) AdjustVolume(ctx context.Context, delta int) error {
	return c.SetVolume(ctx, c.State().Volume+delta)
}

func (c *Controller) ToggleShuffle(ctx context.Context) error { return c.player.ToggleShuffle(ctx) }

// CycleRepeatMode advances off -> context -> track -> off from the latest state and returns the requested mode.
func (c *Controller) CycleRepeatMode(ctx context.Context) (models.RepeatMode, error) {
	next := c.State().RepeatMode.Next()
	if err := c.player.SetRepeatMode(ctx, next); err != nil {
		return c.State().RepeatMode, err
	}
	return next, nil
}

// StateReader is implemented by players that can report their state on demand.
type StateReader interface {
	CurrentState(ctx context.Context) (StateUpdate, bool, error)
}

// Refresh asks the player for its current state and publishes it. ok=false from the player
// publishes the idle state. Players that only push state are left alone.
func (c *Controller) Refresh(ctx context.Context) error {
	reader, ok := c.player.(StateReader)
	if !ok {
		return nil
	}

	u, active, err := reader.CurrentState(ctx)
	if err != nil {
		return err
	}

	volume := c.State().Volume
	if !active {
		idle := models.IdlePlaybackState()
		idle.Volume = volume
		c.publish(idle)
		return nil
	}
	c.publish(u.ToModel(volume))
	return nil
}
