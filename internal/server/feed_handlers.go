package server

import (
	"tera/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed serves one page of the home or profile feed.
// GET /api/feed?limit=&feedFor=home|profile&cursor=&userId=&direction=newest|oldest
func (s *Server) GetFeed(c *fiber.Ctx) error {
	viewer, err := viewerID(c)
	if err != nil {
		return respondWithAppError(c, err)
	}
	limit, err := queryLimit(c)
	if err != nil {
		return respondWithAppError(c, err)
	}

	result, err := s.feedService.GetFeed(c.UserContext(), service.GetFeedInput{
		ViewerID:      viewer,
		Limit:         limit,
		FeedFor:       c.Query("feedFor"),
		Cursor:        c.Query("cursor"),
		ProfileUserID: c.Query("userId"),
		Direction:     c.Query("direction"),
	})
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(result)
}

// GetUserPosts is the profile feed addressed by path.
// GET /api/users/:id/posts?limit=&cursor=&direction=
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	viewer, err := viewerID(c)
	if err != nil {
		return respondWithAppError(c, err)
	}
	limit, err := queryLimit(c)
	if err != nil {
		return respondWithAppError(c, err)
	}

	result, err := s.feedService.GetFeed(c.UserContext(), service.GetFeedInput{
		ViewerID:      viewer,
		Limit:         limit,
		FeedFor:       service.FeedForProfile,
		Cursor:        c.Query("cursor"),
		ProfileUserID: c.Params("id"),
		Direction:     c.Query("direction"),
	})
	if err != nil {
		return respondWithAppError(c, err)
	}
	return c.JSON(result)
}

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)

	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userID),
	})
}
