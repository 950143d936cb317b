package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/remote"
)

const (
	maxBodySize     = 1 << 20
	defaultActivity = 50
	subjectKey      = "subject"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, svc *Service, auth Authenticator, logger *log.Logger) {
	e.GET("/healthz", healthz())

	api := e.Group("/api", requireAuth(auth, logger))
	api.GET("/boards/:board/tasks", listTasks(svc))
	api.POST("/boards/:board/tasks", createTask(svc))
	api.GET("/boards/:board/activity", activity(svc))
	api.GET("/tasks/:id", getTask(svc))
	api.PATCH("/tasks/:id", updateTask(svc))
	api.PUT("/tasks/:id/status", setStatus(svc))
	api.DELETE("/tasks/:id", deleteTask(svc))
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

func requireAuth(auth Authenticator, logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sub, err := auth.SubjectFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				logger.WithError(err).WithField("path", c.Path()).Debug("rejected request")
				return clierr.Wrap(clierr.Unauthorized, err, "unauthorized: %v", err)
			}
			c.Set(subjectKey, sub)
			return next(c)
		}
	}
}

func listTasks(svc *Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tasks, err := svc.ListTasks(c.Request().Context(), c.Param("board"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, remote.TasksResponse{Tasks: tasks})
	}
}

func createTask(svc *Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req remote.CreateRequest
		if err := decodeBody(c, &req); err != nil {
			return err
		}
		t, err := svc.CreateTask(c.Request().Context(), c.Param("board"), req)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, t)
	}
}

func getTask(svc *Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		t, err := svc.GetTask(c.Request().Context(), c.Param("id"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, t)
	}
}

func updateTask(svc *Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req remote.UpdateRequest
		if err := decodeBody(c, &req); err != nil {
			return err
		}
		t, err := svc.UpdateTask(c.Request().Context(), c.Param("id"), req)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, t)
	}
}

func setStatus(svc *Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req remote.StatusRequest
		if err := decodeBody(c, &req); err != nil {
			return err
		}
		t, err := svc.SetStatus(c.Request().Context(), c.Param("id"), req.Status)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, t)
	}
}

func deleteTask(svc *Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		hard, _ := strconv.ParseBool(c.QueryParam("hard"))
		if err := svc.DeleteTask(c.Request().Context(), c.Param("id"), hard); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func activity(svc *Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := defaultActivity
		if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				return clierr.Newf(clierr.InvalidInput, "invalid limit %q", raw).
					WithDetails(map[string]any{"field": "limit"})
			}
			limit = n
		}
		entries, err := svc.Activity(c.Request().Context(), c.Param("board"), limit)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, remote.ActivityResponse{Entries: entries})
	}
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return clierr.Wrap(clierr.InvalidInput, err, "invalid body: %v", err)
	}
	return nil
}

// errorHandler renders every error as the JSON error envelope.
func errorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			status int
			body   remote.ErrorResponse
			he     *echo.HTTPError
			ce     *clierr.Error
		)
		switch {
		case errors.As(err, &ce):
			status = clierr.HTTPStatus(ce.Code)
			body = remote.ErrorResponse{Error: ce.Message, Code: ce.Code, Details: ce.Details}
		case errors.As(err, &he):
			status = he.Code
			body = remote.ErrorResponse{Error: http.StatusText(he.Code), Code: httpErrorCode(he.Code)}
			if msg, ok := he.Message.(string); ok {
				body.Error = msg
			}
		default:
			status = http.StatusInternalServerError
			body = remote.ErrorResponse{Error: err.Error(), Code: clierr.InternalError}
		}

		if status >= http.StatusInternalServerError {
			logger.WithError(err).WithField("path", c.Path()).Error("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.WithError(err).Warn("writing error response")
		}
	}
}

func httpErrorCode(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return clierr.Unauthorized
	case status >= http.StatusInternalServerError:
		return clierr.InternalError
	default:
		return clierr.InvalidInput
	}
}
