// Package views binds each read model to a cache key and the tables it is
// derived from. A mounted view holds a change subscription and drops its
// cached result on every change to those tables.
package views

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"fitchallenge/internal/broadcast"
	"fitchallenge/internal/querycache"
)

// LoadError is the error state of a view: a message for the user plus the
// underlying cause.
type LoadError struct {
	View    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.View, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type View struct {
	Name         string
	Key          string
	Tables       []string
	StaleTime    time.Duration
	ErrorMessage string

	fetch   func(context.Context) (any, error)
	cache   *querycache.Cache
	manager *broadcast.Manager
	log     *logrus.Entry

	mu   sync.Mutex
	sub  *broadcast.Subscription
	done chan struct{}
}

// Mount subscribes to the view's tables. Mounting twice is a no-op.
func (v *View) Mount() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.sub != nil {
		return nil
	}
	sub, err := v.manager.Subscribe(v.Tables...)
	if err != nil {
		return fmt.Errorf("mounting %s: %w", v.Name, err)
	}
	v.sub = sub
	v.done = make(chan struct{})
	go v.watch(sub, v.done)
	return nil
}

func (v *View) watch(sub *broadcast.Subscription, done chan struct{}) {
	defer close(done)
	for ev := range sub.C {
		v.cache.Invalidate(v.Key)
		v.log.WithFields(logrus.Fields{"key": v.Key, "table": ev.Table}).Debug("invalidated")
	}
}

// Unmount releases the subscription and waits for the watcher to stop.
func (v *View) Unmount() {
	v.mu.Lock()
	sub, done := v.sub, v.done
	v.sub, v.done = nil, nil
	v.mu.Unlock()
	if sub == nil {
		return
	}
	sub.Close()
	<-done
}

func (v *View) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sub != nil
}

// Load returns the cached result or fetches it. Failures come back as a
// *LoadError.
func (v *View) Load(ctx context.Context) (any, error) {
	res, err := v.cache.Get(ctx, v.Key, v.StaleTime, v.fetch)
	if err != nil {
		return nil, &LoadError{View: v.Name, Message: v.ErrorMessage, Err: err}
	}
	return res, nil
}
