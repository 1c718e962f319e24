package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	adactor "github.com/berfenger/easee2mqtt/internal/adapter/actor"
	"github.com/berfenger/easee2mqtt/internal/core/domain"
	"github.com/berfenger/easee2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := e.Group("/api")
	api.GET("/services", s.ListServicesHandler)
	api.POST("/services/:domain/:service", s.CallServiceHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) ListServicesHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ListServicesRequest{}, 5*time.Second).Result()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	response, ok := res.(domain.ListServicesResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	return c.JSON(http.StatusOK, response.Services)
}

func (s *Server) CallServiceHandler(c echo.Context) error {
	data := map[string]any{}
	if err := json.NewDecoder(c.Request().Body).Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		return echo.NewHTTPError(http.StatusBadRequest, "body must be a JSON object")
	}

	req := domain.ServiceCallRequest{
		RequestId: actorutil.NewRequestId(),
		Domain:    c.Param("domain"),
		Service:   c.Param("service"),
		Data:      data,
	}
	// leave the host time to report its own timeout first
	res, err := s.rootContext.RequestFuture(s.masterActor, req, s.callTimeout+time.Second).Result()
	if err != nil {
		return c.JSON(http.StatusGatewayTimeout, adactor.ServiceResultToPayload(domain.ServiceCallResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			RequestId:          req.RequestId,
			Domain:             req.Domain,
			Service:            req.Service,
		}))
	}
	response, ok := res.(domain.ServiceCallResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	return c.JSON(StatusForError(response.GetResponseError()), adactor.ServiceResultToPayload(response))
}

// StatusForError maps a service call failure to an HTTP status.
func StatusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrInvalidCallData):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownService), errors.Is(err, domain.ErrTargetNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrServiceTimeout), errors.Is(err, context.DeadlineExceeded), errors.Is(err, actor.ErrTimeout):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
