package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "debtbook_build_info",
			Help: "Debt book build information.",
		},
		[]string{"version", "component"},
	)
)

// InitBuildInfo sets debtbook_build_info{version, component} to 1.
func InitBuildInfo(version, component string) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.WithLabelValues(version, component).Set(1)
}
