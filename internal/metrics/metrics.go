package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	settingsUpdated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aerowatch_settings",
			Name:      "section_updated_total",
			Help:      "Count of settings section updates by section.",
		},
		[]string{"section"},
	)

	validationRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aerowatch_settings",
			Name:      "validation_rejected_total",
			Help:      "Count of settings patches rejected by validation.",
		},
		[]string{"section"},
	)

	avatarUploaded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "aerowatch_settings",
			Name:      "avatar_uploaded_total",
			Help:      "Count of avatar uploads.",
		},
	)

	accountDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "aerowatch_settings",
			Name:      "account_deleted_total",
			Help:      "Count of deleted accounts.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(settingsUpdated, validationRejected, avatarUploaded, accountDeleted)
	})
}

func IncSettingsUpdate(section string) {
	settingsUpdated.WithLabelValues(section).Inc()
}

func IncValidationRejected(section string) {
	validationRejected.WithLabelValues(section).Inc()
}

func IncAvatarUploaded() {
	avatarUploaded.Inc()
}

func IncAccountDeleted() {
	accountDeleted.Inc()
}
