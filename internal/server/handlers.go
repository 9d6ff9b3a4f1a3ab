package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smokyabdulrahman/salah-times/internal/geo"
	"github.com/smokyabdulrahman/salah-times/internal/prayer"
)

// handleHealth reports liveness and the coordinator phase.
// GET /healthz
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"phase":  s.coord.Phase(),
	})
}

// handleToday returns the published snapshot.
// GET /v1/today
func (s *Server) handleToday(c *gin.Context) {
	snap := s.coord.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"data": snap,
		"meta": gin.H{
			"no_data": snap.NoData(),
		},
	})
}

// handleState returns the latest clock evaluation, ticking once if the
// clock has not run yet.
// GET /v1/state
func (s *Server) handleState(c *gin.Context) {
	st, ok := s.clock.Latest()
	if !ok {
		st = s.clock.Tick()
	}
	c.JSON(http.StatusOK, gin.H{"data": newStateView(st)})
}

// handleLocations lists the known cities and the active one.
// GET /v1/locations
func (s *Server) handleLocations(c *gin.Context) {
	all := geo.All()
	c.JSON(http.StatusOK, gin.H{
		"data": all,
		"meta": gin.H{
			"count":   len(all),
			"current": s.coord.Snapshot().Location.Key,
		},
	})
}

// handleSetLocation switches the active location. The refresh it triggers
// runs in the background; the response carries the cache verdict.
// PUT /v1/location/:key
func (s *Server) handleSetLocation(c *gin.Context) {
	loc, err := geo.Lookup(c.Param("key"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	verdict := s.coord.SetLocation(s.bg, loc)
	s.logger.Info().Str("location", loc.Key).Stringer("cache", verdict).Msg("location changed")

	c.JSON(http.StatusOK, gin.H{
		"data": loc,
		"meta": gin.H{"cache": verdict.String()},
	})
}

// handleGetIqama returns the active Iqama delays in minutes.
// GET /v1/iqama
func (s *Server) handleGetIqama(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": iqamaView(s.clock.IqamaDelays())})
}

// handleSetIqama merges the posted delays into the active table.
// PUT /v1/iqama with a body such as {"Fajr": 25, "Isha": 10}.
func (s *Server) handleSetIqama(c *gin.Context) {
	var body map[string]int
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}

	delays := s.clock.IqamaDelays().Clone()
	for name, minutes := range body {
		n, err := prayer.ParseName(name)
		if err != nil || !n.IsPrayer() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no iqama for " + name})
			return
		}
		if minutes < 0 || minutes > 120 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "iqama delay must be between 0 and 120 minutes"})
			return
		}
		delays[n] = minutes
	}
	s.clock.SetIqamaDelays(delays)

	c.JSON(http.StatusOK, gin.H{"data": iqamaView(delays)})
}
