package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/montanaflynn/stats"

	"debatehub/store"
)

// Debater represents a leaderboard entry
type Debater struct {
	ID       string `json:"id"`
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
}

// LeaderboardData defines the leaderboard response
type LeaderboardData struct {
	Debaters     []Debater `json:"debaters"`
	TotalUsers   int       `json:"totalUsers"`
	MeanRating   float64   `json:"meanRating"`
	MedianRating float64   `json:"medianRating"`
	TopRating    float64   `json:"topRating"`
}

// LeaderboardController serves rating standings.
type LeaderboardController struct {
	store store.Store
}

// NewLeaderboardController creates the controller.
func NewLeaderboardController(st store.Store) *LeaderboardController {
	return &LeaderboardController{store: st}
}

// GetLeaderboard handles GET /leaderboard.
func (ctl *LeaderboardController) GetLeaderboard(c *gin.Context) {
	users, err := ctl.store.ListUsersByRating(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch leaderboard data"})
		return
	}

	debaters := make([]Debater, 0, len(users))
	ratings := make([]float64, 0, len(users))
	for i, user := range users {
		debaters = append(debaters, Debater{
			ID:       user.ID,
			Rank:     i + 1,
			Username: user.Username,
			Rating:   user.Rating,
		})
		ratings = append(ratings, float64(user.Rating))
	}

	data := LeaderboardData{Debaters: debaters, TotalUsers: len(users)}
	if len(ratings) > 0 {
		data.MeanRating, _ = stats.Mean(ratings)
		data.MedianRating, _ = stats.Median(ratings)
		data.TopRating, _ = stats.Percentile(ratings, 90)
	}
	c.JSON(http.StatusOK, data)
}
