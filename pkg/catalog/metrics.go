package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// upsertsTotal counts successful atomic upsert transactions.
	upsertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_upserts_total",
		Help: "Total number of successful product upsert transactions",
	})

	// stockUpdatesTotal counts successful set-stock transactions.
	stockUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_stock_updates_total",
		Help: "Total number of successful stock update transactions",
	})

	// indexTxFailures counts rejected index-maintenance transactions.
	indexTxFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_index_tx_failures_total",
		Help: "Total number of rejected index-maintenance transactions",
	}, []string{"operation"}) // "upsert", "set_stock"

	// registryRaces counts create-if-absent races lost to a concurrent
	// creator (the winner's id is returned instead).
	registryRaces = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_nk_registry_races_total",
		Help: "Total number of natural-key creations that lost a race and adopted the winner's id",
	})
)
