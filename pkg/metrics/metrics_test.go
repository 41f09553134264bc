package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then metrics register under the engine namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.updatesDebounced.Inc()
				manager.evaluationLatency.Observe(7)
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["courtside_engine_updates_debounced_total"], ShouldBeTrue)
				So(names["courtside_engine_evaluation_latency_milliseconds"], ShouldBeTrue)
			})

			Convey("Then a second manager on the same registry is refused", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})

		Convey("When a nil registry is passed", func() {
			m := &Manager{registry: prometheus.DefaultRegisterer}
			WithPrometheusRegistry(nil)(m)

			Convey("Then the default registerer is kept", func() {
				So(m.registry, ShouldEqual, prometheus.DefaultRegisterer)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording ingest metrics", func() {
			before := testutil.ToFloat64(globalManager.updatesDebounced)
			RecordUpdateDebounced()

			Convey("Then the counter moves", func() {
				So(testutil.ToFloat64(globalManager.updatesDebounced), ShouldEqual, before+1)
			})
		})

		Convey("When recording every helper", func() {
			So(func() {
				RecordUpdateReceived("http")
				RecordUpdateRejected("in_flight")
				RecordUpdateProcessed()
				UpdateGamesTracked(3)
				RecordGamesEvicted(2)
				RecordEvaluationLatency(1.5)
				RecordTriggerFired("sequential", "entry")
				RecordSignalTransition("watching")
				UpdateSignalsActive(1)
				UpdateStrategiesLoaded(4)
				RecordStrategyLoadError()
				RecordSinkDelivery("postgres", 2)
				RecordSinkFailure("redis")
				UpdateQueueSize("0", 5)
				RecordQueueEnqueueError("queue_full")
				UpdateWorkerCount(8)
				RecordWorkerProcessingLatency(3)
				RecordWorkerError()
				RecordHTTPRequest("updates", "POST", "202")
				RecordHTTPRequestDuration("updates", "POST", "202", 4)
				UpdateStreamClients(2)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)

			Convey("Then the registry exposes the engine namespace", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				hasEngine := false
				for _, f := range families {
					if strings.HasPrefix(f.GetName(), "courtside_engine_") {
						hasEngine = true
					}
				}
				So(hasEngine, ShouldBeTrue)
			})
		})
	})
}
