package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/berfenger/modbus2mqtt/internal/core/domain"
	"github.com/berfenger/modbus2mqtt/pkg/regmap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const requestTimeout = 5 * time.Second

type propertyValue struct {
	Value any    `json:"value"`
	Text  string `json:"text"`
}

type deviceValues struct {
	Device domain.DeviceInfo        `json:"device"`
	Values map[string]propertyValue `json:"values"`
}

type writeRequest struct {
	Value *float64 `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics))
	}

	api := e.Group("/api")
	api.GET("/devices", s.DevicesHandler)
	api.GET("/devices/:id", s.DeviceValuesHandler)
	api.PUT("/devices/:id/properties/:name", s.WritePropertyHandler)

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

func (s *Server) DevicesHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetDevicesRequest{}, requestTimeout).Result()
	if err != nil {
		return errorJSON(c, http.StatusGatewayTimeout, err)
	}
	response, ok := res.(domain.GetDevicesResponse)
	if !ok {
		return errorJSON(c, http.StatusInternalServerError, errors.New("unexpected response"))
	}
	return c.JSON(http.StatusOK, response.Devices)
}

func (s *Server) DeviceValuesHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetDeviceValuesRequest{DeviceId: c.Param("id")}, requestTimeout).Result()
	if err != nil {
		return errorJSON(c, http.StatusGatewayTimeout, err)
	}
	response, ok := res.(domain.GetDeviceValuesResponse)
	if !ok {
		return errorJSON(c, http.StatusInternalServerError, errors.New("unexpected response"))
	}
	if response.HasResponseError() {
		return errorJSON(c, statusOf(response.GetResponseError()), response.GetResponseError())
	}

	out := deviceValues{Device: response.Device, Values: make(map[string]propertyValue, len(response.Values))}
	for name, v := range response.Values {
		if v.IsZero() {
			continue
		}
		out.Values[name] = propertyValue{Value: jsonValue(v), Text: v.String()}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) WritePropertyHandler(c echo.Context) error {
	var body writeRequest
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}
	if body.Value == nil {
		// without a JSON body the value may come as a query parameter
		v, err := strconv.ParseFloat(c.QueryParam("value"), 64)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, domain.ErrInvalidPayload)
		}
		body.Value = &v
	}

	req := domain.WritePropertyRequest{
		DeviceId: c.Param("id"),
		Property: c.Param("name"),
		Value:    *body.Value,
	}
	res, err := s.rootContext.RequestFuture(s.masterActor, req, requestTimeout).Result()
	if err != nil {
		return errorJSON(c, http.StatusGatewayTimeout, err)
	}
	response, ok := res.(domain.WritePropertyResponse)
	if !ok {
		return errorJSON(c, http.StatusInternalServerError, errors.New("unexpected response"))
	}
	if response.HasResponseError() {
		return errorJSON(c, statusOf(response.GetResponseError()), response.GetResponseError())
	}
	return c.NoContent(http.StatusNoContent)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownDevice), errors.Is(err, regmap.ErrUnknownProperty):
		return http.StatusNotFound
	case errors.Is(err, regmap.ErrNotWritable), errors.Is(err, regmap.ErrOutOfRange), errors.Is(err, domain.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotInitialized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func errorJSON(c echo.Context, status int, err error) error {
	return c.JSON(status, errorResponse{Error: err.Error()})
}

func jsonValue(v regmap.Value) any {
	switch v.Kind {
	case regmap.KindString:
		return v.Str
	case regmap.KindBool:
		return v.Bool
	case regmap.KindEnum:
		return v.Enum.Tag
	case regmap.KindBitfield:
		return v.Bits
	default:
		f, _ := v.Float64()
		return f
	}
}
