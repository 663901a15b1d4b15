package telemetry

import (
	"fmt"
)

// API is how pipeline components report what happened to a batch. The slog
// implementation logs, the Recorder keeps reports so tests can check that a
// skipped listing or subcategory was reported and not silently dropped.
//
// note: fault injection point
type API interface {
	// ReportBroken reports something that needs a code or config change:
	// a gateway answer that no longer decodes, a journal write that failed.
	//
	// The `id` names the component and operation, `fetch.by-user` or
	// `submit.create`, never the failing line. Ids are lowercase, dots separate
	// the component from the operation, dashes join words. Listing ids,
	// subcategories and the error go into the params.
	ReportBroken(id string, params ...any)

	// ReportWarning reports a failure the batch survives, a listing that was
	// skipped or a subcategory whose lots could not be read.
	ReportWarning(id string, params ...any)

	// ReportDebug reports progress, "no lots" answers and non-2xx statuses.
	// Dropped unless verbose logging is on.
	ReportDebug(msg string, params ...any)

	// ReportCount reports a gauge such as listings fetched or subcategories
	// resolved. Counts are points in time, not to be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with "<namespace>:", each pipeline stage
// scopes its API with its package name (`fetcher:fetch.by-user`).
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s:%s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s:%s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s:%s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s:%s", s.namespace, id), count)
}
