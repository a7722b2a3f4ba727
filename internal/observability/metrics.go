package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthFailures counts rejected authentication attempts by reason.
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_auth_failures_total",
		Help: "Total number of rejected authentication attempts by reason",
	}, []string{"reason"})

	// AccessDenied counts authorization and ownership rejections by gate.
	AccessDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_access_denied_total",
		Help: "Total number of requests rejected by an access gate",
	}, []string{"gate"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// RateLimited counts requests rejected by the rate limiter per resource.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter",
	}, []string{"resource"})

	// PostsCreated counts successfully created posts.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_posts_created_total",
		Help: "Total number of posts created",
	})

	// UsersRegistered counts successful registrations.
	UsersRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_users_registered_total",
		Help: "Total number of registered users",
	})
)

// Collectors returns the application counters so they can be exposed on
// registries other than the default one.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		AuthFailures,
		AccessDenied,
		RedisErrorRate,
		RateLimited,
		PostsCreated,
		UsersRegistered,
	}
}
