// Package server exposes the admin HTTP API over echo.
package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"newsforge/internal/generation"
	"newsforge/internal/metrics"
	"newsforge/internal/pipeline"
)

// Server wires the pipeline service into HTTP handlers.
type Server struct {
	echo    *echo.Echo
	service *pipeline.Service
}

func New(service *pipeline.Service) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{echo: e, service: service}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.echo.Group("/api")
	api.POST("/generations", s.submitGeneration)
	api.GET("/generations", s.listGenerations)
	api.GET("/generations/:id", s.getGeneration)
	api.POST("/generations/:id/process", s.processGeneration)
	api.POST("/generations/:id/publish", s.publishGeneration)
	api.GET("/generations/:id/preview", s.previewGeneration)

	s.echo.GET("/health", s.health)
	s.echo.GET("/metrics", s.metricsHandler)
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

type submitRequest struct {
	Tags       string `json:"tags"`
	ManualURLs string `json:"manual_urls"`
}

func (s *Server) submitGeneration(c echo.Context) error {
	var body submitRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("cuerpo de la petición inválido"))
	}

	req, err := s.service.Submit(c.Request().Context(), body.Tags, body.ManualURLs)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, req)
}

func (s *Server) listGenerations(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	reqs, err := s.service.List(c.Request().Context(), limit)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, reqs)
}

func (s *Server) getGeneration(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("id inválido"))
	}

	req, err := s.service.Get(c.Request().Context(), id)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, req)
}

func (s *Server) processGeneration(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("id inválido"))
	}

	req, err := s.service.Process(c.Request().Context(), id)
	if err != nil {
		// A failed pipeline run still has a persisted request with the
		// error recorded; return it alongside the failure status.
		if req != nil {
			return c.JSON(statusForError(err), req)
		}
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, req)
}

func (s *Server) publishGeneration(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("id inválido"))
	}

	post, err := s.service.Publish(c.Request().Context(), id)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, post)
}

func (s *Server) previewGeneration(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("id inválido"))
	}

	preview, err := s.service.Preview(c.Request().Context(), id)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, preview)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) metricsHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, metrics.Global.GetStats())
}

func (s *Server) writeError(c echo.Context, err error) error {
	return c.JSON(statusForError(err), errorResponse(err))
}

func pathID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// statusForError maps error kinds to HTTP status codes.
func statusForError(err error) int {
	switch generation.KindOf(err) {
	case generation.KindValidation:
		return http.StatusBadRequest
	case generation.KindNotFound:
		return http.StatusNotFound
	case generation.KindNotReady, generation.KindAlreadyRunning, generation.KindAlreadyPublished:
		return http.StatusConflict
	case generation.KindConfigurationMissing:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(err error) map[string]string {
	body := errorBody(err.Error())
	if kind := generation.KindOf(err); kind != "" {
		body["kind"] = string(kind)
	}
	return body
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
