package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"

	"orgboard-api/domain"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, tasks TaskAccess, audit AuditLog, auth Authenticator, memberships MembershipSource, deduper Deduper, logger *log.Logger) {
	resolver := callerResolver{auth: auth, memberships: memberships}

	e.POST("/api/sessions", postSession(resolver, audit))
	e.GET("/api/tasks", getTasks(tasks, resolver, logger))
	e.POST("/api/tasks", postTask(tasks, audit, resolver, deduper))
	e.GET("/api/tasks/:id", getTask(tasks, resolver))
	e.PATCH("/api/tasks/:id", patchTask(tasks, audit, resolver))
	e.DELETE("/api/tasks/:id", deleteTask(tasks, audit, resolver))
	e.GET("/api/audit-log", getAuditLog(audit, resolver))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// postSession verifies the bearer token, resolves the caller's role in the
// chosen organization and records the login.
func postSession(resolver callerResolver, audit AuditLog) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		caller, err := resolver.Resolve(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return writeAuthError(c, err)
		}
		if err := audit.RecordLogin(ctx, caller.UserID, caller.OrganizationID); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusCreated, sessionResponse{
			UserID:         caller.UserID,
			OrganizationID: caller.OrganizationID,
			Role:           caller.Role,
		})
	}
}

func getTasks(tasks TaskAccess, resolver callerResolver, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newTaskRequestMetrics(ctx, logger)
		if spanCtx != nil {
			req := c.Request().WithContext(spanCtx)
			c.SetRequest(req)
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		caller, authErr := resolver.Resolve(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = writeAuthError(c, authErr)
			return err
		}
		if guardErr := domain.Authorize(caller, domain.RoleViewer); guardErr != nil {
			metrics.SetErrorStage("authorize")
			err = writeAuthError(c, guardErr)
			return err
		}

		fetchStart := time.Now()
		found, fetchErr := tasks.FindAll(ctx, caller.OrganizationID)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusInternalServerError, fetchErr.Error())
			return err
		}
		metrics.SetTasksReturned(len(found))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasksResponse{Tasks: found})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getTask(tasks TaskAccess, resolver callerResolver) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		caller, err := resolver.Resolve(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return writeAuthError(c, err)
		}
		if err := domain.Authorize(caller, domain.RoleViewer); err != nil {
			return writeAuthError(c, err)
		}
		task, err := tasks.FindOne(ctx, c.Param("id"), caller.OrganizationID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func postTask(tasks TaskAccess, audit AuditLog, resolver callerResolver, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		caller, err := resolver.Resolve(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return writeAuthError(c, err)
		}
		if denied := authorizeMutation(c, audit, caller, "create_task", "task"); denied != nil {
			return denied
		}

		var draft domain.TaskDraft
		if err := decodeBody(c, &draft); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		idempotencyKey := strings.TrimSpace(c.Request().Header.Get("Idempotency-Key"))
		if idempotencyKey != "" && deduper != nil {
			added, dedupeErr := deduper.Add(ctx, caller.UserID, idempotencyKey)
			if dedupeErr != nil {
				c.Logger().Warnf("idempotency check unavailable: %v", dedupeErr)
			} else if !added {
				return c.String(http.StatusConflict, "duplicate request")
			}
		}

		task, err := tasks.Create(ctx, draft, caller.OrganizationID, caller.UserID)
		if err != nil {
			if idempotencyKey != "" && deduper != nil {
				if removeErr := deduper.Remove(ctx, caller.UserID, idempotencyKey); removeErr != nil {
					c.Logger().Warnf("idempotency rollback failed: %v", removeErr)
				}
			}
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func patchTask(tasks TaskAccess, audit AuditLog, resolver callerResolver) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		caller, err := resolver.Resolve(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return writeAuthError(c, err)
		}
		if denied := authorizeMutation(c, audit, caller, "update_task", "task"); denied != nil {
			return denied
		}

		var patch domain.TaskPatch
		if err := decodeBody(c, &patch); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		task, err := tasks.Update(ctx, c.Param("id"), patch, caller.OrganizationID, caller.UserID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(tasks TaskAccess, audit AuditLog, resolver callerResolver) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		caller, err := resolver.Resolve(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return writeAuthError(c, err)
		}
		if denied := authorizeMutation(c, audit, caller, "delete_task", "task"); denied != nil {
			return denied
		}
		if err := tasks.Remove(ctx, c.Param("id"), caller.OrganizationID, caller.UserID); err != nil {
			return writeServiceError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getAuditLog(audit AuditLog, resolver callerResolver) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		caller, err := resolver.Resolve(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return writeAuthError(c, err)
		}
		if guardErr := domain.Authorize(caller, domain.RoleAdmin, domain.RoleOwner); guardErr != nil {
			return writeDenial(c, audit, caller, "read_audit_log", "audit_log", guardErr)
		}

		limit := 0
		if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
			var parseErr error
			limit, parseErr = strconv.Atoi(raw)
			if parseErr != nil || limit <= 0 {
				return c.String(http.StatusBadRequest, "invalid limit")
			}
		}

		entries, err := audit.FindByOrganization(ctx, caller.OrganizationID, limit)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, auditLogResponse{Entries: entries})
	}
}

// authorizeMutation runs the role check for task mutations and, when the
// caller's role is insufficient, records the denial before responding.
func authorizeMutation(c echo.Context, audit AuditLog, caller *domain.Caller, action, resource string) error {
	guardErr := domain.Authorize(caller, domain.RoleAdmin, domain.RoleOwner)
	if guardErr == nil {
		return nil
	}
	return writeDenial(c, audit, caller, action, resource, guardErr)
}

// writeDenial records a permission_denied audit entry and answers 403. The
// denial response stands even when recording it fails; that failure is only
// logged because the caller's operation was already refused.
func writeDenial(c echo.Context, audit AuditLog, caller *domain.Caller, action, resource string, guardErr error) error {
	var insufficient *domain.InsufficientRoleError
	if !errors.As(guardErr, &insufficient) {
		return writeAuthError(c, guardErr)
	}
	ctx := c.Request().Context()
	if err := audit.RecordPermissionDenied(ctx, caller.UserID, caller.OrganizationID, action, resource, guardErr.Error()); err != nil {
		c.Logger().Error(err)
	}
	return c.String(http.StatusForbidden, guardErr.Error())
}

func writeAuthError(c echo.Context, err error) error {
	var insufficient *domain.InsufficientRoleError
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return c.String(http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNoRole):
		return c.String(http.StatusForbidden, err.Error())
	case errors.As(err, &insufficient):
		return c.String(http.StatusForbidden, err.Error())
	default:
		c.Logger().Error(err)
		return c.String(http.StatusInternalServerError, err.Error())
	}
}

func writeServiceError(c echo.Context, err error) error {
	var validationErr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		return c.String(http.StatusNotFound, err.Error())
	case errors.As(err, &validationErr):
		return c.String(http.StatusBadRequest, err.Error())
	default:
		c.Logger().Error(err)
		return c.String(http.StatusInternalServerError, err.Error())
	}
}

// decodeBody reads a size-capped JSON body. Unknown fields are tolerated so
// clients sending organization or creator identifiers simply have them
// ignored rather than rejected.
func decodeBody(c echo.Context, out any) error {
	lr := io.LimitReader(c.Request().Body, taskBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	return dec.Decode(out)
}
