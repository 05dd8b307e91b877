package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpdatesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "constructionbot",
		Name:      "updates_processed_total",
		Help:      "Обработанные апдейты Telegram по типу.",
	}, []string{"kind"})

	DuplicatesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "constructionbot",
		Name:      "duplicates_dropped_total",
		Help:      "Отброшенные повторы: layer=update|message.",
	}, []string{"layer"})

	MalformedUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "constructionbot",
		Name:      "malformed_updates_total",
		Help:      "Невалидные тела вебхука.",
	})

	OutboundFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "constructionbot",
		Name:      "outbound_failures_total",
		Help:      "Ошибки исходящих вызовов по операции и виду.",
	}, []string{"op", "kind"})

	ResolverPushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "constructionbot",
		Name:      "resolver_pushes_total",
		Help:      "Выгрузки строк в записи этапа: outcome=created|updated|no_shape|missing_task|error.",
	}, []string{"outcome"})

	BatchTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "constructionbot",
		Name:      "batch_transitions_total",
		Help:      "Переходы статуса заявок на материалы.",
	}, []string{"to"})
)
