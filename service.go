package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Depado/ginprom"
	analytics "github.com/chemlink/analytics-api/lib"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	requestsTotalMetric   = "analytics_requests_total"
	requestDurationMetric = "analytics_request_duration_seconds"
)

// Querier runs read-only queries. *analytics.Executor implements it.
type Querier interface {
	Execute(ctx context.Context, query string, args ...any) (*analytics.ResultSet, error)
	ExecuteOne(ctx context.Context, query string, args ...any) (analytics.Row, error)
	Ping(ctx context.Context) error
}

var _ Querier = (*analytics.Executor)(nil)

// AnalyticsService serves the route table over HTTP.
type AnalyticsService struct {
	q Querier
	p *ginprom.Prometheus
}

// NewAnalyticsService creates the service. p may be nil, in which case no
// request metrics are recorded.
func NewAnalyticsService(q Querier, p *ginprom.Prometheus) *AnalyticsService {
	if p != nil {
		p.AddCustomCounter(requestsTotalMetric, "The total number of analytics query requests.", []string{"route", "code"})
		p.AddCustomHistogram(requestDurationMetric, "The duration of each analytics query request.", []string{"route", "code"})
	}

	return &AnalyticsService{q: q, p: p}
}

// Register mounts every route plus the catalog and readiness endpoints.
func (s *AnalyticsService) Register(r gin.IRouter, routes []Route) {
	for _, route := range routes {
		r.GET(route.Path, s.Serve(route))
	}

	r.GET("/api/sql-queries", s.ServeCatalog)
	r.GET("/readyz", s.ServeReady)
}

// Serve returns the handler for one route.
func (s *AnalyticsService) Serve(route Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()

		ctx, span := tracer.Start(c.Request.Context(), "AnalyticsService.Serve",
			trace.WithAttributes(attribute.String("analytics.route", route.Path)))
		defer span.End()

		query, args := route.Query, []any(nil)
		if route.Bind != nil {
			span.AddEvent("route.bind")

			var err error
			query, args, err = route.Bind(c.Params)
			if err != nil {
				s.fail(ctx, c, span, route.Path, now, err)
				return
			}
		}

		span.AddEvent("executor.query")
		body, err := s.run(ctx, route.Shape, query, args)
		if err != nil {
			s.fail(ctx, c, span, route.Path, now, err)
			return
		}

		s.observe(route.Path, http.StatusOK, now)
		span.SetStatus(codes.Ok, "success")

		c.JSON(http.StatusOK, body)
	}
}

func (s *AnalyticsService) run(ctx context.Context, shape Shape, query string, args []any) (any, error) {
	if shape == ShapeSingle {
		return s.q.ExecuteOne(ctx, query, args...)
	}

	result, err := s.q.Execute(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return result.Rows, nil
}

// ServeCatalog returns the chart query catalog. It never touches the database.
func (s *AnalyticsService) ServeCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, Catalog())
}

// ServeReady reports whether the analytics database is reachable.
func (s *AnalyticsService) ServeReady(c *gin.Context) {
	if err := s.q.Ping(c.Request.Context()); err != nil {
		status, resp := NewFailedResponse(err)
		if status == http.StatusInternalServerError {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *AnalyticsService) fail(ctx context.Context, c *gin.Context, span trace.Span, path string, now time.Time, err error) {
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)

	status, resp := NewFailedResponse(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "Query request failed", slog.String("route", path), slog.Any("error", err))
	}

	s.observe(path, status, now)
	c.JSON(status, resp)
}

func (s *AnalyticsService) observe(path string, status int, since time.Time) {
	if s.p == nil {
		return
	}

	labels := []string{path, strconv.Itoa(status)}
	if err := s.p.IncrementCounterValue(requestsTotalMetric, labels); err != nil {
		slog.Warn("increment request counter", slog.Any("error", err))
	}
	if err := s.p.AddCustomHistogramValue(requestDurationMetric, labels, time.Since(since).Seconds()); err != nil {
		slog.Warn("observe request duration", slog.Any("error", err))
	}
}

// FailedResponse is the body of every error response.
type FailedResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BadParameterError is returned when a path parameter does not have the
// type its route declares.
type BadParameterError struct {
	Name  string
	Value string
}

func NewBadParameterError(name, value string) BadParameterError {
	return BadParameterError{Name: name, Value: value}
}

func (e BadParameterError) Error() string {
	return "bad parameter: " + e.Name + " must be an integer, got " + strconv.Quote(e.Value)
}

// NewFailedResponse maps an error to its HTTP status and response body.
func NewFailedResponse(err error) (int, FailedResponse) {
	var badParameterError BadParameterError
	var emptyResultError analytics.EmptyResultError
	var queryError analytics.QueryError
	var connectionError analytics.ConnectionError

	var status int
	var code string
	var message string

	if errors.As(err, &badParameterError) {
		status = http.StatusBadRequest
		code = "BAD_PARAMETER"
		message = badParameterError.Error()
	} else if errors.As(err, &emptyResultError) {
		status = http.StatusNotFound
		code = "EMPTY_RESULT"
		message = emptyResultError.Parent.Error()
	} else if errors.As(err, &connectionError) {
		status = http.StatusServiceUnavailable
		code = "CONNECTION_ERROR"
		message = connectionError.Parent.Error()
	} else if errors.As(err, &queryError) {
		status = http.StatusInternalServerError
		code = "QUERY_ERROR"
		message = queryError.Parent.Error()
	} else {
		status = http.StatusInternalServerError
		code = "INTERNAL_ERROR"
		message = err.Error()
	}

	return status, FailedResponse{
		Success: false,
		Code:    code,
		Message: message,
	}
}
