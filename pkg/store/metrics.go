package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadchat_store_messages_created_total",
		Help: "Messages durably written to the store.",
	})
	childLinks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadchat_store_child_links_total",
		Help: "Child ids appended to a parent record.",
	})
	orphanLinks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadchat_store_orphan_links_total",
		Help: "Link attempts dropped because the parent does not exist.",
	})
)
