package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "naborly_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "status"})

	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "naborly_posts_created_total",
		Help: "Posts created.",
	})

	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "naborly_comments_created_total",
		Help: "Comments created.",
	})

	ReactionsToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "naborly_reactions_toggled_total",
		Help: "Reaction toggles by resulting state.",
	}, []string{"state"})
)
