package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-library-api/internal/models"
)

func TestEvaluateTable(t *testing.T) {
	anon := Anonymous()
	teacher := ActorFor("u-teacher", models.UserTypeTeacher)
	staff := ActorFor("u-staff", models.UserTypeStaff)
	admin := ActorFor("u-admin", models.UserTypeAdmin)

	tests := []struct {
		name     string
		resource Resource
		action   Action
		actor    Actor
		target   string
		want     Decision
	}{
		{"anonymous lists books", ResourceBook, ActionList, anon, "", Allowed},
		{"anonymous retrieves book", ResourceBook, ActionRetrieve, anon, "b1", Allowed},
		{"anonymous cannot create book", ResourceBook, ActionCreate, anon, "", Denied},
		{"teacher creates book", ResourceBook, ActionCreate, teacher, "", Allowed},
		{"teacher deletes book", ResourceBook, ActionDelete, teacher, "b1", Allowed},
		{"anonymous cannot list students", ResourceStudent, ActionList, anon, "", Denied},
		{"teacher lists students", ResourceStudent, ActionList, teacher, "", Allowed},
		{"teacher cannot create student", ResourceStudent, ActionCreate, teacher, "", Denied},
		{"staff creates student", ResourceStudent, ActionCreate, staff, "", Allowed},
		{"admin deletes student", ResourceStudent, ActionDelete, admin, "s1", Allowed},
		{"teacher retrieves school", ResourceSchool, ActionRetrieve, teacher, "sc1", Allowed},
		{"teacher cannot update school", ResourceSchool, ActionUpdate, teacher, "sc1", Denied},
		{"teacher lists users", ResourceUser, ActionList, teacher, "", Allowed},
		{"teacher cannot create user", ResourceUser, ActionCreate, teacher, "", Denied},
		{"teacher retrieves self", ResourceUser, ActionRetrieve, teacher, "u-teacher", Allowed},
		{"teacher cannot retrieve other", ResourceUser, ActionRetrieve, teacher, "u-staff", Denied},
		{"teacher updates self", ResourceUser, ActionUpdate, teacher, "u-teacher", Allowed},
		{"staff deletes other user", ResourceUser, ActionDelete, staff, "u-teacher", Allowed},
		{"anonymous cannot retrieve user", ResourceUser, ActionRetrieve, anon, "", Denied},
		{"unknown action falls back to staff", ResourceBook, Action("archive"), teacher, "", Denied},
		{"unknown action allowed for staff", ResourceUser, Action("archive"), staff, "", Allowed},
		{"export requires staff", ResourceStudent, ActionExport, teacher, "", Denied},
		{"unknown resource denied", Resource("loan"), ActionList, admin, "", Denied},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(tc.resource, tc.action, tc.actor, tc.target))
		})
	}
}

func TestActorForEmptyUserIsAnonymous(t *testing.T) {
	actor := ActorFor("", models.UserTypeAdmin)
	assert.False(t, actor.Authenticated)
	assert.False(t, actor.StaffOrAdmin)
	assert.False(t, Allow(ResourceStudent, ActionCreate, actor, ""))
}

func TestSelfRuleNeedsTarget(t *testing.T) {
	actor := Actor{UserID: "", Authenticated: true}
	assert.Equal(t, Denied, Evaluate(ResourceUser, ActionRetrieve, actor, ""))
}
