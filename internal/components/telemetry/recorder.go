package telemetry

import (
	"strings"
	"sync"
)

type Report struct {
	Id     string
	Params []any
}

// Recorder is an API that keeps everything reported to it, it is meant
// for tests that need to assert that something was (or wasn't) reported.
type Recorder struct {
	mutex    sync.Mutex
	broken   []Report
	warnings []Report
	counts   map[string]int64
}

func NewRecorder() *Recorder {
	return &Recorder{counts: map[string]int64{}}
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.broken = append(r.broken, Report{Id: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.warnings = append(r.warnings, Report{Id: id, Params: params})
}

func (r *Recorder) ReportDebug(string, ...any) {}

func (r *Recorder) ReportCount(id string, count int64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.counts[id] = count
}

func (r *Recorder) Broken() []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]Report(nil), r.broken...)
}

func (r *Recorder) Warnings() []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]Report(nil), r.warnings...)
}

// WarningsWithSuffix returns the warnings whose id ends with the given suffix,
// this is so that tests don't have to care about ScopedAPI namespaces.
func (r *Recorder) WarningsWithSuffix(suffix string) []Report {
	var out []Report
	for _, w := range r.Warnings() {
		if strings.HasSuffix(w.Id, suffix) {
			out = append(out, w)
		}
	}
	return out
}

func (r *Recorder) Count(id string) (int64, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for k, v := range r.counts {
		if strings.HasSuffix(k, id) {
			return v, true
		}
	}
	return 0, false
}
