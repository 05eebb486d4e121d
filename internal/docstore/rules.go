package docstore

// AuthContext identifies the caller of a store operation.
type AuthContext struct {
	UserID string
	Role   string

	system bool
}

const roleAdmin = "admin"

// System returns a context that bypasses access rules. Used by internal
// flows (login lookups, seeding) that run before a user identity exists.
func System() AuthContext {
	return AuthContext{system: true}
}

func (a AuthContext) IsSystem() bool { return a.system }

func (a AuthContext) isAdmin() bool { return a.system || a.Role == roleAdmin }

func (a AuthContext) authenticated() bool { return a.system || a.UserID != "" }

// Rule is the access policy for one collection.
type Rule struct {
	// OwnerField names the document field holding the owning user id.
	// Reads and writes require the caller to match it; lists require an
	// equality filter pinning it to the caller.
	OwnerField string

	// AdminOnly restricts the collection to admin callers regardless of
	// document contents.
	AdminOnly bool
}

// Rules maps collection name to its access policy. Collections without an
// entry are denied outright.
type Rules map[string]Rule

// allow reports whether auth may perform op. doc is the stored document
// for get/update/delete and the incoming fields for create; q is set for
// list only.
func (r Rules) allow(op string, auth AuthContext, collection string, doc Document, q *Query) bool {
	if auth.system {
		return true
	}
	if !auth.authenticated() {
		return false
	}

	rule, ok := r[collection]
	if !ok {
		return false
	}
	if rule.AdminOnly {
		return auth.isAdmin()
	}
	if rule.OwnerField == "" {
		return true
	}
	if auth.isAdmin() {
		return true
	}

	if q != nil {
		return q.hasOwnerFilter(rule.OwnerField, auth.UserID)
	}
	owner, _ := normalize(doc[rule.OwnerField]).(string)
	return owner == auth.UserID
}
