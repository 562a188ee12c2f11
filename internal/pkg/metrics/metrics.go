package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every installer collector. Go runtime collectors are not
// registered.
var Registry = prometheus.NewRegistry()

var (
	// UpgradeEventsTotal counts envelopes delivered to caller callbacks.
	UpgradeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "installer_upgrade_events_total",
			Help: "Total number of upgrade events delivered to callers, by event tag.",
		},
		[]string{"tag"},
	)

	// UpgradesTotal counts finished upgrade calls.
	UpgradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "installer_upgrades_total",
			Help: "Total number of upgrade and resume calls, by operation and result.",
		},
		[]string{"op", "result"}, // op: upgrade/resume, result: success/failure
	)

	// QuirkApplicationsTotal counts graphics quirk resolutions.
	QuirkApplicationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "installer_quirk_applications_total",
			Help: "Total number of hardware quirk resolutions, by component and resulting policy.",
		},
		[]string{"component", "policy"}, // component: install/runtime
	)
)

func init() {
	Registry.MustRegister(UpgradeEventsTotal)
	Registry.MustRegister(UpgradesTotal)
	Registry.MustRegister(QuirkApplicationsTotal)
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
// An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
