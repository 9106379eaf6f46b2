package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/rpggio/siteflow/internal/workflow"
)

type contextKey int

const callerKey contextKey = iota

// Identification sources: the X-Role / X-User-Id headers over HTTP, or
// _meta.role / _meta.user_id over stdio.
const (
	headerRole   = "X-Role"
	headerUserID = "X-User-Id"
	metaRole     = "role"
	metaUserID   = "user_id"
)

// getCaller extracts the session caller from context.
func getCaller(ctx context.Context) (workflow.Caller, bool) {
	c, ok := ctx.Value(callerKey).(workflow.Caller)
	return c, ok
}

// resolveCaller prefers an explicit role argument over the session caller.
func resolveCaller(ctx context.Context, role string) (workflow.Caller, error) {
	if strings.TrimSpace(role) != "" {
		r, ok := team.Parse(role)
		if !ok {
			return workflow.Caller{}, fmt.Errorf("%q: %w", role, workflow.ErrUnknownRole)
		}
		c, _ := getCaller(ctx)
		if c.Role != r {
			c.UserID = ""
		}
		c.Role = r
		return c, nil
	}
	if c, ok := getCaller(ctx); ok {
		return c, nil
	}
	return workflow.Caller{}, errMissingRole
}

// identityMiddleware reads the caller from HTTP headers (HTTP) or metadata
// (stdio). A default role, when set, applies to sessions that name none.
func identityMiddleware(defaultRole team.Role) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			var role, userID string

			extra := req.GetExtra()
			if extra != nil && extra.Header != nil {
				role = extra.Header.Get(headerRole)
				userID = extra.Header.Get(headerUserID)
			}

			if role == "" {
				role, userID = metaIdentity(req)
			}

			caller := workflow.Caller{Role: defaultRole}
			if role != "" {
				r, ok := team.Parse(role)
				if !ok {
					return nil, fmt.Errorf("%q: %w", role, workflow.ErrUnknownRole)
				}
				caller = workflow.Caller{Role: r, UserID: strings.TrimSpace(userID)}
			}
			if caller.Role != "" {
				ctx = context.WithValue(ctx, callerKey, caller)
			}
			return next(ctx, method, req)
		}
	}
}

// metaIdentity reads role and user_id from request metadata. Some
// notifications carry nil params behind a non-nil interface, so GetMeta is
// guarded.
func metaIdentity(req sdkmcp.Request) (role, userID string) {
	params := req.GetParams()
	if params == nil {
		return "", ""
	}
	defer func() { _ = recover() }()
	meta := params.GetMeta()
	if meta == nil {
		return "", ""
	}
	role, _ = meta[metaRole].(string)
	userID, _ = meta[metaUserID].(string)
	return role, userID
}
