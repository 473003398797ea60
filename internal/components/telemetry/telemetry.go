package telemetry

// API is what every component reports through instead of logging directly,
// so tests can swap in a Recorder and assert on what was reported.
//
// Ids name the component and method that reported, not the detail of what
// went wrong: `roster.extract-course`, not `roster.extract-course.http-get`.
// Details belong in params. Ids are lowercase, underscores separate words
// in a component name and dashes separate words in a method name. Package
// level namespaces are added with NewScopedAPI.
type API interface {
	// ReportBroken is for failures someone should look at.
	ReportBroken(id string, params ...any)
	// ReportWarning is for things that are unusual but expected to happen,
	// a profile page without an email for example.
	ReportWarning(id string, params ...any)
	// ReportDebug is dropped unless verbose logging is on.
	ReportDebug(msg string, params ...any)
	// ReportCount reports a point-in-time value (a gauge), not an increment.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace. Scoping an already scoped
// API appends to the existing namespace instead of nesting wrappers.
type ScopedAPI struct {
	prefix string
	inner  API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	if scoped, ok := inner.(ScopedAPI); ok {
		return ScopedAPI{prefix: scoped.prefix + namespace + ": ", inner: scoped.inner}
	}
	return ScopedAPI{prefix: namespace + ": ", inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.prefix+id, params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.prefix+id, params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.prefix+msg, params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.prefix+id, count)
}
