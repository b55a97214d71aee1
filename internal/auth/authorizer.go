package auth

// Authorizer decides whether an actor may apply catalog mutations directly
// instead of going through moderation. Injected into the variant mutation
// router so richer role models can replace the flag check without touching
// the change-request machinery.
type Authorizer interface {
	CanApplyDirectly(actor Actor) bool
}

// RoleAuthorizer grants direct application to admins and owners.
type RoleAuthorizer struct{}

func NewRoleAuthorizer() RoleAuthorizer {
	return RoleAuthorizer{}
}

func (RoleAuthorizer) CanApplyDirectly(actor Actor) bool {
	return actor.Role == RoleAdmin || actor.Role == RoleOwner
}
