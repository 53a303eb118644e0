package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"time"
)

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
	Run()
}

// StatsUpdater keeps the process counters in an expvar map and applies
// increments from a single goroutine, so callers never contend on the
// counters themselves.
type StatsUpdater struct {
	vars    *expvar.Map
	deltaCh chan metricDelta
}

type metricDelta struct {
	name  string
	delta int64
}

func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		vars:    expvar.NewMap("gosocial-stats"),
		deltaCh: make(chan metricDelta, 512),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(su.serveVars))

	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))

	return su
}

func (su *StatsUpdater) serveVars(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	data := make(map[string]any)
	su.vars.Do(func(kv expvar.KeyValue) {
		var value any
		json.Unmarshal([]byte(kv.Value.String()), &value)
		data[kv.Key] = value
	})

	json.NewEncoder(w).Encode(data)
}

// RegisterMetric declares a counter. Every counter must be registered
// before the first Incr or Decr touches it.
func (su *StatsUpdater) RegisterMetric(name string) {
	su.vars.Set(name, expvar.NewInt(name))
}

func (su *StatsUpdater) Incr(name string) {
	su.deltaCh <- metricDelta{name: name, delta: 1}
}

func (su *StatsUpdater) Decr(name string) {
	su.deltaCh <- metricDelta{name: name, delta: -1}
}

func (su *StatsUpdater) Run() {
	go func() {
		for d := range su.deltaCh {
			metric := su.vars.Get(d.name)
			if metric == nil {
				panic("unregistered metric: " + d.name)
			}

			metric.(*expvar.Int).Add(d.delta)
		}
	}()
}

func (su *StatsUpdater) Stop() {
	close(su.deltaCh)
}
