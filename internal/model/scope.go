package model

import "github.com/google/uuid"

// Role constants carried in access tokens
const (
	RoleOwner        = "OWNER"
	RoleStoreManager = "STORE_MANAGER"
)

// Scope is the caller identity passed into every workflow and query.
// A store manager is bound to StoreID; an owner sees every store.
type Scope struct {
	UserID  uuid.UUID
	Role    string
	StoreID *uuid.UUID
}

func (s Scope) IsOwner() bool {
	return s.Role == RoleOwner
}

// CanAccessStore reports whether the caller may read or write data of storeID.
func (s Scope) CanAccessStore(storeID uuid.UUID) bool {
	if s.IsOwner() {
		return true
	}
	return s.StoreID != nil && *s.StoreID == storeID
}

// StoreFilter returns the store queries must be limited to, or nil when the
// caller is unrestricted. A store manager without an assigned store gets
// uuid.Nil, which matches nothing.
func (s Scope) StoreFilter() *uuid.UUID {
	if s.IsOwner() {
		return nil
	}
	if s.StoreID == nil {
		none := uuid.Nil
		return &none
	}
	id := *s.StoreID
	return &id
}
