package api

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kittclouds/babylog/internal/auth"
	"github.com/kittclouds/babylog/pkg/tracker"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var payload loginRequest
	if err := parseBody(c, &payload); err != nil {
		return err
	}
	sess, err := s.auth.Login(strings.TrimSpace(payload.Username), payload.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sess})
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	if sess, ok := c.Locals(sessionKey).(*auth.Session); ok {
		s.auth.Logout(sess.Token)
	}
	return c.JSON(fiber.Map{"success": true})
}

// =============================================================================
// Intervals
// =============================================================================

func (s *Server) handleToggleSleep(c *fiber.Ctx) error {
	res, err := s.tracker.ToggleSleep(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": res})
}

func (s *Server) handleToggleNightWake(c *fiber.Ctx) error {
	res, err := s.tracker.ToggleNightWake(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": res})
}

// =============================================================================
// Appends
// =============================================================================

func (s *Server) handleAppendFeed(c *fiber.Ctx) error {
	var payload tracker.FeedInput
	if err := parseBody(c, &payload); err != nil {
		return err
	}
	evt, err := s.tracker.AppendFeed(c.UserContext(), payload)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": evt})
}

func (s *Server) handleAppendDiaper(c *fiber.Ctx) error {
	var payload tracker.DiaperInput
	if err := parseBody(c, &payload); err != nil {
		return err
	}
	evt, err := s.tracker.AppendDiaper(c.UserContext(), payload)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": evt})
}

func (s *Server) handleAppendGrowth(c *fiber.Ctx) error {
	var payload tracker.GrowthInput
	if err := parseBody(c, &payload); err != nil {
		return err
	}
	evt, err := s.tracker.AppendGrowth(c.UserContext(), payload)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": evt})
}

func (s *Server) handleAppendNote(c *fiber.Ctx) error {
	var payload tracker.NoteInput
	if err := parseBody(c, &payload); err != nil {
		return err
	}
	evt, err := s.tracker.AppendNote(c.UserContext(), payload)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": evt})
}

// =============================================================================
// Projections
// =============================================================================

func (s *Server) handleStatus(c *fiber.Ctx) error {
	st, err := s.tracker.Status(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": st})
}

// handleSummary takes ?hours=N or ?days=N; the default window is one day.
func (s *Server) handleSummary(c *fiber.Ctx) error {
	hours, err := queryInt(c, "hours", tracker.DayWindowHours)
	if err != nil {
		return err
	}
	days, err := queryInt(c, "days", 0)
	if err != nil {
		return err
	}
	if days != 0 {
		hours = days * 24
	}

	sum, err := s.tracker.Summary(c.UserContext(), hours)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sum})
}

// =============================================================================
// Event management
// =============================================================================

func (s *Server) handleListEvents(c *fiber.Ctx) error {
	days, err := queryInt(c, "days", 0)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return err
	}
	var exclude []string
	if raw := c.Query("exclude"); raw != "" {
		exclude = strings.Split(raw, ",")
	}

	items, err := s.tracker.ListEvents(c.UserContext(), tracker.ListInput{
		SinceDays:    days,
		Limit:        limit,
		ExcludeTypes: exclude,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": fiber.Map{"count": len(items)},
	})
}

func (s *Server) handleUpdateEvent(c *fiber.Ctx) error {
	id, err := eventID(c)
	if err != nil {
		return err
	}
	var payload tracker.EventPatch
	if err := parseBody(c, &payload); err != nil {
		return err
	}
	evt, err := s.tracker.UpdateEvent(c.UserContext(), id, payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": evt})
}

func (s *Server) handleDeleteEvent(c *fiber.Ctx) error {
	id, err := eventID(c)
	if err != nil {
		return err
	}
	if err := s.tracker.DeleteEvent(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	data, err := s.exporter.Export(c.UserContext())
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="babylog-export.json"`)
	return c.Send(data)
}

// =============================================================================
// Helpers
// =============================================================================

// parseBody decodes a JSON body into dst. An empty body leaves dst untouched.
func parseBody(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	return nil
}

func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, key+" must be an integer")
	}
	return n, nil
}

func eventID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid event id")
	}
	return id, nil
}
