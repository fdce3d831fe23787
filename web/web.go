// Package web provides the embedded web UI for browsing evaluations.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lemonberrylabs/intcalc/pkg/expr"
	"github.com/lemonberrylabs/intcalc/pkg/runtime"
	"github.com/lemonberrylabs/intcalc/pkg/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// recentLimit caps the dashboard's history table.
const recentLimit = 25

// Handler serves the web UI pages.
type Handler struct {
	engine  *runtime.Engine
	funcMap template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Data      any
}

// New creates a new web UI handler. The engine must have a store.
func New(engine *runtime.Engine) *Handler {
	return &Handler{
		engine: engine,
		funcMap: template.FuncMap{
			"timeAgo":    timeAgo,
			"formatTime": formatTime,
			"stateClass": stateClass,
			"stateIcon":  stateIcon,
			"truncate":   truncate,
			"shortID":    shortID,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data any) error {
	// Each page is parsed with the layout on its own so the "content"
	// blocks of different pages do not collide.
	tmpl := template.Must(
		template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page),
	)

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pageData{NavActive: navActive, Data: data}); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.dashboard)
	app.Post("/ui/evaluations", h.submit)
	app.Get("/ui/evaluations/:id", h.evaluationDetail)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type dashboardContent struct {
	Evaluations    []*store.Evaluation
	Total          int
	SucceededCount int
	FailedCount    int
}

type evaluationDetailContent struct {
	Evaluation *store.Evaluation
	Tree       string
}

type notFoundContent struct {
	Message string
}

// --- Page Handlers ---

func (h *Handler) dashboard(c *fiber.Ctx) error {
	all := h.engine.Store().List(0)

	var succeeded, failed int
	for _, e := range all {
		switch e.State {
		case store.EvaluationSucceeded:
			succeeded++
		case store.EvaluationFailed:
			failed++
		}
	}

	recent := all
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}

	return h.render(c, "dashboard.html", "dashboard", dashboardContent{
		Evaluations:    recent,
		Total:          len(all),
		SucceededCount: succeeded,
		FailedCount:    failed,
	})
}

func (h *Handler) submit(c *fiber.Ctx) error {
	expression := c.FormValue("expression")
	if strings.TrimSpace(expression) == "" {
		return c.Redirect("/ui")
	}
	// A failed evaluation is still recorded with its error, and its detail
	// page shows it.
	res, _ := h.engine.Execute(c.UserContext(), expression)
	if res.ID == "" {
		return c.Redirect("/ui")
	}
	return c.Redirect("/ui/evaluations/"+res.ID, fiber.StatusSeeOther)
}

func (h *Handler) evaluationDetail(c *fiber.Ctx) error {
	id := c.Params("id")
	e, err := h.engine.Store().Get(id)
	if err != nil {
		return h.render(c.Status(fiber.StatusNotFound), "not_found.html", "", notFoundContent{
			Message: fmt.Sprintf("Evaluation '%s' not found", id),
		})
	}

	content := evaluationDetailContent{Evaluation: e}
	if e.State == store.EvaluationSucceeded {
		content.Tree = treeDump(e.Expression, h.engine.MaxInputLength())
	}
	return h.render(c, "evaluation_detail.html", "dashboard", content)
}

// treeDump rebuilds the parse tree of a stored expression. The store keeps
// tokens but not trees. Expressions longer than maxLen are not parsed.
func treeDump(expression string, maxLen int) string {
	if len(expression) > maxLen {
		return ""
	}
	tokens := expr.NewLexer(zerolog.Nop()).Tokenize(expression)
	root := expr.NewParser(tokens, zerolog.Nop()).GetTree()
	if root == nil {
		return ""
	}
	if _, err := expr.Evaluate(root); err != nil {
		return ""
	}
	return root.Dump()
}

// --- Template Helpers ---

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("2006-01-02 15:04:05")
}

func stateClass(state store.EvaluationState) string {
	switch state {
	case store.EvaluationSucceeded:
		return "state-succeeded"
	case store.EvaluationFailed:
		return "state-failed"
	default:
		return ""
	}
}

func stateIcon(state store.EvaluationState) template.HTML {
	switch state {
	case store.EvaluationSucceeded:
		return "&#10003;"
	case store.EvaluationFailed:
		return "&#10007;"
	default:
		return "&#8226;"
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
