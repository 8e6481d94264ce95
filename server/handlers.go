package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/pfrances/transcendence-back/ponggame"
)

// playerIDHeader carries the caller's identity, prevalidated by the
// auth layer in front of this service.
const playerIDHeader = "X-User-Id"

func (s *Server) registerRoutes(app *fiber.App) {
	api := app.Group("/api/game")
	api.Post("/queue/join", s.handleJoinQueue)
	api.Delete("/queue/leave", s.handleLeave)
	api.Get("/matchmaking", s.handleMatchmakingStatus)
	api.Get("/proposals/:id", s.handleGetProposal)
	api.Patch("/proposals/:id/rules", s.handleUpdateRules)
	api.Patch("/proposals/:id/accept", s.handleAccept)
	api.Get("/history", s.handleMatchHistory)
}

func callerID(c *fiber.Ctx) (ponggame.PlayerID, error) {
	id, err := strconv.ParseInt(c.Get(playerIDHeader), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "missing or invalid "+playerIDHeader+" header")
	}
	return ponggame.PlayerID(id), nil
}

func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// apiError translates the engine's sentinel errors into response codes.
func apiError(err error) error {
	switch {
	case errors.Is(err, ponggame.ErrNotInMatch):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ponggame.ErrNotFound), errors.Is(err, ponggame.ErrNotQueued):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ponggame.ErrInvalidRules):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ponggame.ErrAlreadyQueued),
		errors.Is(err, ponggame.ErrAlreadyStarted),
		errors.Is(err, ponggame.ErrAlreadyAccepted),
		errors.Is(err, ponggame.ErrNotMatched):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}

func (s *Server) handleJoinQueue(c *fiber.Ctx) error {
	player, err := callerID(c)
	if err != nil {
		return err
	}
	if err := s.coord.JoinQueue(player); err != nil {
		return apiError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleLeave(c *fiber.Ctx) error {
	player, err := callerID(c)
	if err != nil {
		return err
	}
	if err := s.coord.Leave(player); err != nil {
		return apiError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleMatchmakingStatus(c *fiber.Ctx) error {
	player, err := callerID(c)
	if err != nil {
		return err
	}
	return c.JSON(s.coord.GetMatchmakingStatus(player))
}

func (s *Server) handleGetProposal(c *fiber.Ctx) error {
	player, err := callerID(c)
	if err != nil {
		return err
	}
	proposalID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	view, err := s.coord.GetProposalState(player, proposalID)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(view)
}

func (s *Server) handleUpdateRules(c *fiber.Ctx) error {
	player, err := callerID(c)
	if err != nil {
		return err
	}
	proposalID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var rules ponggame.Rules
	if err := c.BodyParser(&rules); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed rules body")
	}
	if err := s.coord.UpdateProposalRules(player, proposalID, rules); err != nil {
		return apiError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type acceptBody struct {
	HasAccepted bool `json:"hasAccepted"`
}

func (s *Server) handleAccept(c *fiber.Ctx) error {
	player, err := callerID(c)
	if err != nil {
		return err
	}
	proposalID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body acceptBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed accept body")
	}
	if err := s.coord.AcceptProposal(player, proposalID, body.HasAccepted); err != nil {
		return apiError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleMatchHistory(c *fiber.Ctx) error {
	player, err := callerID(c)
	if err != nil {
		return err
	}
	if s.history == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "match history not available")
	}
	entries, err := s.history.MatchHistory(c.Context(), player)
	if err != nil {
		s.log.Errorf("match history for %d: %v", player, err)
		return fiber.NewError(fiber.StatusInternalServerError, "match history unavailable")
	}
	return c.JSON(entries)
}
