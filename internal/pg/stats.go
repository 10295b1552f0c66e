package pg

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RegisterStats публикует состояние пула как gauge-функции, значения читаются на scrape.
func RegisterStats(reg prometheus.Registerer, pool *pgxpool.Pool) {
	f := promauto.With(reg)
	gauge := func(name, help string, v func(s *pgxpool.Stat) float64) {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "chat",
			Subsystem: "pg_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return v(pool.Stat()) })
	}

	gauge("acquired_conns", "Connections currently in use", func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) })
	gauge("idle_conns", "Idle connections", func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) })
	gauge("total_conns", "Total connections", func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) })
	gauge("max_conns", "Pool size limit", func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) })
}
