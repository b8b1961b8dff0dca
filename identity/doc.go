// Package identity generates the identifiers attached to provisioned records:
// login usernames, 16-digit policy numbers, and sortable record ids.
//
// Nothing here touches a store. Username uniqueness is checked through a
// caller-supplied existence function, and the final guarantee belongs to the
// store's unique constraint.
package identity
