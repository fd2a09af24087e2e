package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// EngineConfig wires the collaborators of an Engine. Store, Cache and
// Tenants are required; the value resolvers default to
// DefaultValueResolver and Metrics may be nil.
type EngineConfig struct {
	Store       GrantStore
	Cache       *DecisionCache
	Tenants     TenantContext
	Permissions ValueResolver
	Roles       ValueResolver
	Metrics     MetricsRecorder
	Logger      *slog.Logger
}

// Engine is the shared authorization engine. Principal binds it to a
// concrete identity; any entity type gains the grant capability by
// delegating to a bound Principal.
type Engine struct {
	store    GrantStore
	cache    *DecisionCache
	tenants  TenantContext
	perms    ValueResolver
	roles    ValueResolver
	metrics  MetricsRecorder
	resolver *Resolver
	logger   *slog.Logger
}

// NewEngine validates the collaborator wiring and constructs an
// Engine. A missing collaborator fails fast, before any check runs.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("authz: engine requires a grant store")
	}
	if cfg.Cache == nil {
		return nil, errors.New("authz: engine requires a decision cache")
	}
	if cfg.Tenants == nil {
		return nil, errors.New("authz: engine requires a tenant context")
	}
	perms := cfg.Permissions
	if perms == nil {
		perms = DefaultValueResolver{}
	}
	roles := cfg.Roles
	if roles == nil {
		roles = DefaultValueResolver{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    cfg.Store,
		cache:    cfg.Cache,
		tenants:  cfg.Tenants,
		perms:    perms,
		roles:    roles,
		metrics:  cfg.Metrics,
		resolver: NewResolver(cfg.Store, cfg.Cache, perms, cfg.Metrics),
		logger:   logger,
	}, nil
}

// Resolver exposes the decision resolver for callers that already
// carry a principal reference and tenant scope.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// Cache exposes the decision cache for admin surfaces that need
// broader invalidation than the capability methods perform.
func (e *Engine) Cache() *DecisionCache {
	return e.cache
}

// Principal binds the engine to one grant-holding identity.
func (e *Engine) Principal(kind string, id int64) *Principal {
	return &Principal{ref: PrincipalRef{Kind: kind, ID: id}, engine: e}
}

// Principal is the capability surface one identity exposes: grant
// mutations and checks, each invalidating or consulting the decision
// cache as the operation requires.
type Principal struct {
	ref    PrincipalRef
	engine *Engine
}

// Ref returns the bound identity.
func (p *Principal) Ref() PrincipalRef {
	return p.ref
}

// Allow grants the permission, scoped to tenant or to the ambient
// tenant context when tenant is nil. Unknown permissions are a silent
// no-op.
func (p *Principal) Allow(ctx context.Context, permission any, tenant *int64) error {
	return p.attachPermission(ctx, permission, tenant, EffectAllow)
}

// Deny records an explicit denial, which takes precedence over every
// allow and role-derived grant. Unknown permissions are a silent no-op.
func (p *Principal) Deny(ctx context.Context, permission any, tenant *int64) error {
	return p.attachPermission(ctx, permission, tenant, EffectDeny)
}

func (p *Principal) attachPermission(ctx context.Context, permission any, tenant *int64, effect Effect) error {
	permissionID, err := p.engine.resolver.permissionID(ctx, permission)
	if err != nil {
		return err
	}
	if permissionID == nil {
		p.engine.logger.Debug("skip grant for unknown permission",
			slog.String("principal", p.ref.String()),
			slog.String("effect", string(effect)))
		return nil
	}
	tenant = p.engine.resolveTenant(ctx, tenant)
	if err := p.engine.store.AttachPermission(ctx, p.ref, *permissionID, tenant, effect); err != nil {
		return fmt.Errorf("authz: attach %s edge: %w", effect, err)
	}
	return p.flush(ctx, tenant)
}

// AddRole assigns the role under the resolved tenant scope. The role
// must be provisioned already; unknown roles fail with ErrRoleNotFound.
func (p *Principal) AddRole(ctx context.Context, role any, tenant *int64) error {
	roleID, err := p.engine.roleID(ctx, role)
	if err != nil {
		return err
	}
	tenant = p.engine.resolveTenant(ctx, tenant)
	if err := p.engine.store.AttachRole(ctx, p.ref, roleID, tenant); err != nil {
		return fmt.Errorf("authz: attach role edge: %w", err)
	}
	return p.flush(ctx, tenant)
}

// RemoveRole deletes the role assignment matching the exact tenant
// scope. Removing under tenant T leaves a global assignment in place
// and vice versa.
func (p *Principal) RemoveRole(ctx context.Context, role any, tenant *int64) error {
	roleID, err := p.engine.roleID(ctx, role)
	if err != nil {
		return err
	}
	tenant = p.engine.resolveTenant(ctx, tenant)
	if err := p.engine.store.DetachRole(ctx, p.ref, roleID, tenant); err != nil {
		return fmt.Errorf("authz: detach role edge: %w", err)
	}
	return p.flush(ctx, tenant)
}

// HasRole reports whether the principal holds the role at exactly the
// resolved tenant scope. Role existence checks bypass the cache.
func (p *Principal) HasRole(ctx context.Context, role any, tenant *int64) (bool, error) {
	roleID, err := p.engine.roleID(ctx, role)
	if err != nil {
		return false, err
	}
	tenant = p.engine.resolveTenant(ctx, tenant)
	exists, err := p.engine.store.RoleEdgeExists(ctx, p.ref, roleID, tenant)
	if err != nil {
		return false, fmt.Errorf("authz: role edge lookup: %w", err)
	}
	return exists, nil
}

// HasPermission resolves the tenant scope and delegates to the
// resolver.
func (p *Principal) HasPermission(ctx context.Context, permission any, tenant *int64) (bool, error) {
	tenant = p.engine.resolveTenant(ctx, tenant)
	return p.engine.resolver.HasPermission(ctx, p.ref, permission, tenant)
}

// flush invalidates the cached decisions a mutation can affect. A
// tenant-scoped edge only influences checks under that tenant, so the
// exact (principal, tenant) tag suffices. A global edge influences
// checks under every tenant, so global mutations drop the principal's
// decisions across all scopes.
func (p *Principal) flush(ctx context.Context, tenant *int64) error {
	var err error
	if tenant == nil {
		err = p.engine.cache.FlushPrincipal(ctx, p.ref)
	} else {
		err = p.engine.cache.FlushFor(ctx, p.ref, tenant)
	}
	if err != nil {
		return err
	}
	if p.engine.metrics != nil {
		p.engine.metrics.Invalidation()
	}
	return nil
}

// resolveTenant applies the ambient tenant context when the caller
// passed no explicit scope. Mutations call it before writing the edge
// so the invalidation tag matches the persisted tenant value.
func (e *Engine) resolveTenant(ctx context.Context, tenant *int64) *int64 {
	if tenant != nil {
		return tenant
	}
	return e.tenants.TenantID(ctx)
}

// roleID resolves any accepted role reference to its numeric id. Raw
// numeric references pass through unchecked, mirroring permission
// handling; named references must exist.
func (e *Engine) roleID(ctx context.Context, role any) (int64, error) {
	switch v := role.(type) {
	case Role:
		return v.ID, nil
	case *Role:
		if v != nil {
			return v.ID, nil
		}
	}
	if id, ok := numericID(role); ok {
		return id, nil
	}
	name := e.roles.Resolve(role)
	found, err := e.store.FindRoleByName(ctx, name)
	if errors.Is(err, ErrRoleNotFound) {
		return 0, fmt.Errorf("authz: role %q: %w", name, ErrRoleNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("authz: role lookup: %w", err)
	}
	return found.ID, nil
}

var _ PermissionChecker = (*Principal)(nil)
