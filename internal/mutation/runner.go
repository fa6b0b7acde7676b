// Package mutation runs create/update/delete operations with in-flight,
// success and error notices and cache invalidation on success.
package mutation

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"fitchallenge/internal/logging"
	"fitchallenge/internal/metrics"
)

// ErrNoWrite is returned by Run for a Spec without a Write func.
var ErrNoWrite = errors.New("mutation has no write")

type Invalidator interface {
	Invalidate(prefixes ...string) int
}

type Spec struct {
	Name        string // metrics label, e.g. "submit_proof"
	Loading     string
	Success     string
	Invalidates []string
	// Write performs the remote write (and any upload that must precede it).
	Write func(ctx context.Context) error
}

type Runner struct {
	Cache    Invalidator
	Friendly func(error) string
	log      *logrus.Entry
}

func NewRunner(cache Invalidator, friendly func(error) string, log logrus.FieldLogger) *Runner {
	if friendly == nil {
		friendly = func(err error) string { return err.Error() }
	}
	return &Runner{Cache: cache, Friendly: friendly, log: logging.For(log, "Mutation")}
}

// Run shows the loading notice, performs the write once, then either
// invalidates and shows the success notice or shows an error notice. The
// loading notice is dismissed exactly once on every path.
func (r *Runner) Run(ctx context.Context, n Notifier, spec Spec) (err error) {
	id := n.Loading(spec.Loading)
	defer n.Dismiss(id)

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s: panic: %v", spec.Name, p)
			r.fail(n, spec, err)
		}
	}()

	if spec.Write == nil {
		r.fail(n, spec, ErrNoWrite)
		return ErrNoWrite
	}
	if err := ctx.Err(); err != nil {
		r.fail(n, spec, err)
		return err
	}
	if err := spec.Write(ctx); err != nil {
		r.fail(n, spec, err)
		return err
	}

	if r.Cache != nil && len(spec.Invalidates) > 0 {
		r.Cache.Invalidate(spec.Invalidates...)
	}
	metrics.Mutations.WithLabelValues(spec.Name, "success").Inc()
	n.Success(spec.Success)
	return nil
}

func (r *Runner) fail(n Notifier, spec Spec, err error) {
	metrics.Mutations.WithLabelValues(spec.Name, "error").Inc()
	r.log.WithError(err).WithField("operation", spec.Name).Warn("write failed")
	n.Error(r.Friendly(err))
}
