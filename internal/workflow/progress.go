// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"sync"
	"time"
)

// progressStage pairs an elapsed-time threshold with the status line
// emitted once that much time has passed since the operation started.
type progressStage struct {
	After   time.Duration
	Message string
}

// progressStages escalates feedback during long conversions. Tests
// shrink the thresholds.
var progressStages = []progressStage{
	{2 * time.Second, "Converting PDF to Markdown..."},
	{10 * time.Second, "Still converting... large papers can take a while."},
	{30 * time.Second, "Still working... complex layouts and tables take the longest."},
}

// progressFeed is one running feedback sequence. The pointer identity
// lets the controller tell its own feed from a replacement.
type progressFeed struct {
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// startProgress emits each stage message at its threshold until stop
// is called. stop is idempotent, and no message fires after it
// returns.
func startProgress(notify func(string)) *progressFeed {
	f := &progressFeed{done: make(chan struct{})}
	if notify == nil {
		return f
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		start := time.Now()
		for _, stage := range progressStages {
			wait := time.Until(start.Add(stage.After))
			if wait > 0 {
				select {
				case <-f.done:
					return
				case <-time.After(wait):
				}
			}
			select {
			case <-f.done:
				return
			default:
			}
			notify(stage.Message)
		}
	}()

	return f
}

// stop ends the feed and waits for any in-flight message to finish.
// Must not be called from inside the notify callback.
func (f *progressFeed) stop() {
	f.once.Do(func() {
		close(f.done)
		f.wg.Wait()
	})
}
