package service

import (
	"fmt"
	"slices"

	"eventhub/internal/auth"
	"eventhub/internal/domain"
)

type Resource string

type Action string

const (
	ResourceEvent Resource = "event"
	ResourceRSVP  Resource = "rsvp"

	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionUpsert Action = "upsert"
)

// Rule grants an action to the listed roles and, when AllowOwner is set, to
// the owner of the resource regardless of role.
type Rule struct {
	Roles      []domain.Role
	AllowOwner bool
}

type permission struct {
	resource Resource
	action   Action
}

// Policy maps resource actions to the rule that guards them. Actions without
// a rule are denied.
type Policy map[permission]Rule

func (p Policy) Allow(resource Resource, action Action, rule Rule) Policy {
	p[permission{resource: resource, action: action}] = rule
	return p
}

// DefaultPolicy returns the access rules of the event backend. Deleting an
// event is reserved to admins even though owners may update it.
func DefaultPolicy() Policy {
	anyone := []domain.Role{domain.RoleAdmin, domain.RoleOrganizer, domain.RoleAttendee}
	return Policy{}.
		Allow(ResourceEvent, ActionCreate, Rule{Roles: []domain.Role{domain.RoleOrganizer, domain.RoleAdmin}}).
		Allow(ResourceEvent, ActionUpdate, Rule{Roles: []domain.Role{domain.RoleAdmin}, AllowOwner: true}).
		Allow(ResourceEvent, ActionDelete, Rule{Roles: []domain.Role{domain.RoleAdmin}}).
		Allow(ResourceRSVP, ActionUpsert, Rule{Roles: anyone}).
		Allow(ResourceRSVP, ActionDelete, Rule{AllowOwner: true})
}

// Check returns domain.ErrForbidden unless identity may perform action on a
// resource owned by ownerID. Pass 0 when the resource has no owner yet.
func (p Policy) Check(resource Resource, action Action, identity auth.Identity, ownerID int64) error {
	rule, ok := p[permission{resource: resource, action: action}]
	if !ok {
		return fmt.Errorf("%w: %s %s is not allowed", domain.ErrForbidden, action, resource)
	}
	if slices.Contains(rule.Roles, identity.Role) {
		return nil
	}
	if rule.AllowOwner && ownerID != 0 && ownerID == identity.UserID {
		return nil
	}
	return fmt.Errorf("%w: not allowed to %s this %s", domain.ErrForbidden, action, resource)
}
