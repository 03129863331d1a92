package main

import (
	"io"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

type metrics struct {
	log  io.Writer
	reg  gometrics.Registry
	tick time.Duration
	stop chan bool
}

func newMetrics(log io.Writer, tick time.Duration) *metrics {
	return &metrics{
		log:  log,
		reg:  gometrics.NewRegistry(),
		tick: tick,
	}
}

// start writes the registry to m.log every tick until stopped. A zero tick
// disables periodic reports.
func (m *metrics) start() {
	if m.tick <= 0 || m.log == nil {
		return
	}
	m.stop = make(chan bool)
	go func(t *time.Ticker, stop chan bool) {
		defer t.Stop()
		for {
			select {
			case <-t.C:
				m.writeOnce(m.log)
			case <-stop:
				return
			}
		}
	}(time.NewTicker(m.tick), m.stop)
}

// final stops periodic reports and writes one last report.
func (m *metrics) final() {
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
	if m.log != nil {
		m.writeOnce(m.log)
	}
}

func (m *metrics) writeOnce(w io.Writer) {
	gometrics.WriteJSONOnce(m.reg, w)
}

func (m *metrics) incr(name string, i int64) {
	gometrics.GetOrRegisterCounter(name, m.reg).Inc(i)
}

func (m *metrics) decr(name string, i int64) {
	gometrics.GetOrRegisterCounter(name, m.reg).Dec(i)
}

func (m *metrics) mark(name string, i int64) {
	gometrics.GetOrRegisterMeter(name, m.reg).Mark(i)
}

func (m *metrics) size(name string, n int) {
	gometrics.GetOrRegisterHistogram(name, m.reg, gometrics.NewExpDecaySample(1028, 0.015)).Update(int64(n))
}

func (m *metrics) count(name string) int64 {
	switch v := m.reg.Get(name).(type) {
	case gometrics.Counter:
		return v.Count()
	case gometrics.Meter:
		return v.Count()
	case gometrics.Histogram:
		return v.Count()
	}
	return 0
}
