package notify

import "github.com/prometheus/client_golang/prometheus"

var (
	// rendersTotal は通知の描画回数。
	rendersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chronotify_renders_total",
			Help: "Total number of notification renders",
		},
	)
	// renderFailuresTotal は通知の描画に失敗した回数。
	renderFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chronotify_render_failures_total",
			Help: "Total number of failed notification renders",
		},
	)
	// commandsTotal はコマンド種別ごとの処理回数。
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronotify_commands_total",
			Help: "Total number of processed commands",
		},
		[]string{"command"},
	)
)

func init() {
	prometheus.MustRegister(rendersTotal, renderFailuresTotal, commandsTotal)
}
