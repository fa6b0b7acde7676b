package mutation

import (
	"strconv"
	"sync"
)

type Kind string

const (
	KindLoading = Kind("loading")
	KindSuccess = Kind("success")
	KindError   = Kind("error")
	KindDismiss = Kind("dismiss")
)

// Notice is a toast-style message about a write in progress or finished.
type Notice struct {
	ID      string `json:"id,omitempty"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message,omitempty"`
}

// Notifier shows notices. Loading returns an id that Dismiss later removes.
// Implementations must not block and must drop notices they cannot deliver.
type Notifier interface {
	Loading(msg string) string
	Dismiss(id string)
	Success(msg string)
	Error(msg string)
}

// Recorder keeps every notice in order. Handlers use it to echo notices in
// the HTTP response.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
	next    int
}

func (r *Recorder) add(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *Recorder) Loading(msg string) string {
	r.mu.Lock()
	r.next++
	id := "n" + strconv.Itoa(r.next)
	r.mu.Unlock()
	r.add(Notice{ID: id, Kind: KindLoading, Message: msg})
	return id
}

func (r *Recorder) Dismiss(id string)  { r.add(Notice{ID: id, Kind: KindDismiss}) }
func (r *Recorder) Success(msg string) { r.add(Notice{Kind: KindSuccess, Message: msg}) }
func (r *Recorder) Error(msg string)   { r.add(Notice{Kind: KindError, Message: msg}) }

func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Last returns the last success or error notice, if any.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.notices) - 1; i >= 0; i-- {
		if k := r.notices[i].Kind; k == KindSuccess || k == KindError {
			return r.notices[i], true
		}
	}
	return Notice{}, false
}

type tee struct {
	mu       sync.Mutex
	children []Notifier
	ids      map[string][]string
}

// Tee sends every notice to all of ns.
func Tee(ns ...Notifier) Notifier {
	return &tee{children: ns, ids: make(map[string][]string)}
}

func (t *tee) Loading(msg string) string {
	ids := make([]string, len(t.children))
	for i, n := range t.children {
		ids[i] = n.Loading(msg)
	}
	if len(ids) == 0 {
		return ""
	}
	t.mu.Lock()
	t.ids[ids[0]] = ids
	t.mu.Unlock()
	return ids[0]
}

func (t *tee) Dismiss(id string) {
	t.mu.Lock()
	ids, ok := t.ids[id]
	delete(t.ids, id)
	t.mu.Unlock()
	if !ok {
		return
	}
	for i, n := range t.children {
		n.Dismiss(ids[i])
	}
}

func (t *tee) Success(msg string) {
	for _, n := range t.children {
		n.Success(msg)
	}
}

func (t *tee) Error(msg string) {
	for _, n := range t.children {
		n.Error(msg)
	}
}
