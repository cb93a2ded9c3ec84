package main

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "lampmock_requests_total",
	Help: "HTTP requests served, by path template and status.",
}, []string{"path", "status"})

// SetupRouter wires the API subset the engine consumes.
func SetupRouter(store *Store) *gin.Engine {
	r := gin.Default()

	r.Use(func(c *gin.Context) {
		c.Next()
		requestsTotal.WithLabelValues(
			c.FullPath(), strconv.Itoa(c.Writer.Status())).Inc()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/participant/:id/sensor_event", func(c *gin.Context) {
		from := queryInt64(c, "_from", 0)
		to := queryInt64(c, "to", int64(1)<<62)
		limit := int(queryInt64(c, "_limit", 1000))

		events, err := store.SensorEvents(c.Param("id"), c.Query("origin"), from, to, limit)
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": emptyList(events)})
	})

	r.GET("/participant/:id/activity_event", func(c *gin.Context) {
		from := queryInt64(c, "_from", 0)
		to := queryInt64(c, "to", int64(1)<<62)
		limit := int(queryInt64(c, "_limit", 1000))

		events, err := store.ActivityEvents(c.Param("id"), from, to, limit)
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": emptyList(events)})
	})

	r.GET("/participant/:id/activity", func(c *gin.Context) {
		activities, err := store.Activities(c.Param("id"))
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": emptyList(activities)})
	})

	r.GET("/type/:id/attachment/:key", func(c *gin.Context) {
		value, ok, err := store.AttachmentGet(c.Param("id"), c.Param("key"))
		if err != nil {
			serverError(c, err)
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "404.object-not-found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": value})
	})

	r.PUT("/type/:id/attachment/:key", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil || !json.Valid(body) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "400.invalid-json"})
			return
		}
		if err := store.AttachmentSet(c.Param("id"), c.Param("key"), body); err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": nil})
	})

	r.GET("/type/:id/attachment", func(c *gin.Context) {
		keys, err := store.AttachmentKeys(c.Param("id"))
		if err != nil {
			serverError(c, err)
			return
		}
		if keys == nil {
			keys = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"data": keys})
	})

	r.GET("/type/:id/parent", func(c *gin.Context) {
		parents, ok, err := store.Parent(c.Param("id"))
		if err != nil {
			serverError(c, err)
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "404.object-not-found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": parents})
	})

	r.GET("/researcher/:id/study", func(c *gin.Context) {
		studies, err := store.Studies(c.Param("id"))
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": emptyList(studies)})
	})

	r.GET("/study/:id/participant", func(c *gin.Context) {
		participants, err := store.Participants(c.Param("id"))
		if err != nil {
			serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": emptyList(participants)})
	})

	return r
}

func queryInt64(c *gin.Context, key string, def int64) int64 {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}

func serverError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func emptyList(v []map[string]interface{}) []map[string]interface{} {
	if v == nil {
		return []map[string]interface{}{}
	}
	return v
}
