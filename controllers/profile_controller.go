package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"debatehub/store"
)

// ProfileController serves user profiles with their aggregate stats.
type ProfileController struct {
	store store.Store
}

// NewProfileController creates the controller.
func NewProfileController(st store.Store) *ProfileController {
	return &ProfileController{store: st}
}

// GetProfile handles GET /users/:id. The response bundles the user row with
// its stats record and rating history.
func (ctl *ProfileController) GetProfile(c *gin.Context) {
	userID := c.Param("id")

	user, err := ctl.store.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch user"})
		return
	}

	userStats, err := ctl.store.GetUserStats(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch user stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  user,
		"stats": userStats,
	})
}
