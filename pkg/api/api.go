// Package api implements the REST API for evaluating expressions and
// browsing evaluation history.
package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lemonberrylabs/intcalc/pkg/expr"
	"github.com/lemonberrylabs/intcalc/pkg/runtime"
	"github.com/lemonberrylabs/intcalc/pkg/store"
	"github.com/lemonberrylabs/intcalc/pkg/types"
)

// Server is the HTTP API server.
type Server struct {
	app    *fiber.App
	engine *runtime.Engine
	logger zerolog.Logger
}

// New creates a new API server around engine. History endpoints answer
// 404 when the engine has no store.
func New(engine *runtime.Engine, logger zerolog.Logger) *Server {
	srv := &Server{
		engine: engine,
		logger: logger,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	app.Get("/healthz", srv.health)
	app.Post("/v1/tokens", srv.tokenize)
	app.Post("/v1/evaluations", srv.createEvaluation)
	app.Get("/v1/evaluations", srv.listEvaluations)
	app.Get("/v1/evaluations/:id", srv.getEvaluation)
	app.Delete("/v1/evaluations/:id", srv.deleteEvaluation)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

type expressionRequest struct {
	Expression string `json:"expression"`
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) tokenize(c *fiber.Ctx) error {
	req, err := parseExpressionRequest(c)
	if err != nil {
		return errorResponse(c, err)
	}

	lexer := expr.NewLexer(zerolog.Nop())
	tokens := lexer.Tokenize(req.Expression)
	diags := make([]types.Diagnostic, 0, len(lexer.Dropped()))
	for _, d := range lexer.Dropped() {
		diags = append(diags, types.Diagnostic{Tag: types.TagLexicalError, Message: d.String()})
	}

	return c.JSON(fiber.Map{
		"tokens":      runtime.StoreTokens(tokens),
		"dump":        expr.FormatTokens(tokens),
		"diagnostics": diags,
	})
}

func (s *Server) createEvaluation(c *fiber.Ctx) error {
	req, err := parseExpressionRequest(c)
	if err != nil {
		return errorResponse(c, err)
	}

	res, err := s.engine.Execute(c.UserContext(), req.Expression)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return errorResponse(c, err)
		}
		body := errorBody(err)
		body["evaluation"] = resultToJSON(res, false)
		return c.Status(errorCode(err)).JSON(body)
	}

	withTree := c.QueryBool("tree", false)
	return c.Status(fiber.StatusCreated).JSON(resultToJSON(res, withTree))
}

func (s *Server) listEvaluations(c *fiber.Ctx) error {
	st, err := s.history()
	if err != nil {
		return errorResponse(c, err)
	}

	limit := 0
	if v := c.Query("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return errorResponse(c, types.NewSyntaxError(fmt.Sprintf("invalid pageSize %q", v)))
		}
		limit = n
	}

	return c.JSON(fiber.Map{"evaluations": st.List(limit)})
}

func (s *Server) getEvaluation(c *fiber.Ctx) error {
	st, err := s.history()
	if err != nil {
		return errorResponse(c, err)
	}
	e, err := st.Get(c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(e)
}

func (s *Server) deleteEvaluation(c *fiber.Ctx) error {
	st, err := s.history()
	if err != nil {
		return errorResponse(c, err)
	}
	if err := st.Delete(c.Params("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{})
}

func (s *Server) history() (*store.Store, error) {
	st := s.engine.Store()
	if st == nil {
		return nil, types.NewNotFoundError("evaluation history is disabled")
	}
	return st, nil
}

func parseExpressionRequest(c *fiber.Ctx) (expressionRequest, error) {
	var req expressionRequest
	if err := c.BodyParser(&req); err != nil {
		return req, types.NewSyntaxError(fmt.Sprintf("invalid request body: %v", err))
	}
	if strings.TrimSpace(req.Expression) == "" {
		return req, types.NewSyntaxError("expression is required")
	}
	return req, nil
}

func resultToJSON(res *runtime.Result, withTree bool) fiber.Map {
	m := fiber.Map{
		"id":          res.ID,
		"expression":  res.Expression,
		"tokens":      runtime.StoreTokens(res.Tokens),
		"diagnostics": res.Diagnostics,
	}
	if res.Tree != nil {
		m["value"] = res.Value
		if withTree {
			m["tree"] = strings.Split(strings.TrimSuffix(res.Tree.Dump(), "\n"), "\n")
		}
	}
	return m
}

func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(errorCode(err)).JSON(errorBody(err))
}

func errorCode(err error) int {
	if ce, ok := types.AsCalcError(err); ok && ce.Code != 0 {
		return int(ce.Code)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fiber.StatusGatewayTimeout
	}
	return fiber.StatusInternalServerError
}

func errorBody(err error) fiber.Map {
	code := errorCode(err)
	body := fiber.Map{
		"code":    code,
		"message": err.Error(),
	}
	if ce, ok := types.AsCalcError(err); ok {
		body = ce.ToMap()
	}
	body["status"] = statusName(code)
	return fiber.Map{"error": body}
}

func statusName(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return "INVALID_ARGUMENT"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusRequestEntityTooLarge:
		return "OUT_OF_RANGE"
	case fiber.StatusUnprocessableEntity:
		return "FAILED_PRECONDITION"
	case fiber.StatusGatewayTimeout:
		return "DEADLINE_EXCEEDED"
	default:
		return "INTERNAL"
	}
}
