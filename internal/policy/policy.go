// Package policy decides which actors may perform which actions on library records.
package policy

import "github.com/noah-isme/sma-library-api/internal/models"

// Resource names a record type guarded by the policy.
type Resource string

const (
	ResourceBook    Resource = "book"
	ResourceStudent Resource = "student"
	ResourceSchool  Resource = "school"
	ResourceUser    Resource = "user"
)

// Action names an operation on a resource.
type Action string

const (
	ActionList     Action = "list"
	ActionRetrieve Action = "retrieve"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionExport   Action = "export"
)

// Decision is the outcome of an evaluation.
type Decision int

const (
	Denied Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

// Actor is the requester identity threaded through every service call.
type Actor struct {
	UserID        string
	Authenticated bool
	StaffOrAdmin  bool
}

// Anonymous returns an unauthenticated actor.
func Anonymous() Actor {
	return Actor{}
}

// ActorFor builds an authenticated actor from a user identity.
func ActorFor(userID string, userType models.UserType) Actor {
	return Actor{
		UserID:        userID,
		Authenticated: userID != "",
		StaffOrAdmin:  userID != "" && userType.IsStaffOrAdmin(),
	}
}

// rule receives the actor and the id of the targeted record, if any.
type rule func(actor Actor, targetID string) bool

func allowAll(Actor, string) bool { return true }

func authenticated(a Actor, _ string) bool { return a.Authenticated }

func staffOrAdmin(a Actor, _ string) bool { return a.Authenticated && a.StaffOrAdmin }

func staffOrSelf(a Actor, targetID string) bool {
	if !a.Authenticated {
		return false
	}
	return a.StaffOrAdmin || (targetID != "" && a.UserID == targetID)
}

var table = map[Resource]map[Action]rule{
	ResourceBook: {
		ActionList:     allowAll,
		ActionRetrieve: allowAll,
		ActionCreate:   authenticated,
		ActionUpdate:   authenticated,
		ActionDelete:   authenticated,
	},
	ResourceStudent: {
		ActionList:     authenticated,
		ActionRetrieve: authenticated,
		ActionCreate:   staffOrAdmin,
		ActionUpdate:   staffOrAdmin,
		ActionDelete:   staffOrAdmin,
	},
	ResourceSchool: {
		ActionList:     authenticated,
		ActionRetrieve: authenticated,
		ActionCreate:   staffOrAdmin,
		ActionUpdate:   staffOrAdmin,
		ActionDelete:   staffOrAdmin,
	},
	ResourceUser: {
		ActionList:     authenticated,
		ActionCreate:   staffOrAdmin,
		ActionRetrieve: staffOrSelf,
		ActionUpdate:   staffOrSelf,
		ActionDelete:   staffOrSelf,
	},
}

// Evaluate decides whether actor may perform action on resource. targetID is
// the id of the addressed record and only matters for self-service user rules.
// Actions missing from the table fall back to the staff-or-admin rule and
// unknown resources are always denied.
func Evaluate(resource Resource, action Action, actor Actor, targetID string) Decision {
	rules, ok := table[resource]
	if !ok {
		return Denied
	}
	check, ok := rules[action]
	if !ok {
		check = staffOrAdmin
	}
	if check(actor, targetID) {
		return Allowed
	}
	return Denied
}

// Allow is Evaluate reduced to a bool.
func Allow(resource Resource, action Action, actor Actor, targetID string) bool {
	return Evaluate(resource, action, actor, targetID) == Allowed
}
