package middleware

import (
	"net/http"

	tenantAuth "github.com/MrEthical07/tenantAuth"
)

func RequireSuperAdmin(v SessionValidator, cookieName string) func(http.Handler) http.Handler {
	return RequireRole(v, cookieName, tenantAuth.EntityTypeSuperAdmin)
}

func RequireEmployee(v SessionValidator, cookieName string) func(http.Handler) http.Handler {
	return RequireRole(v, cookieName, tenantAuth.EntityTypeEmployee)
}

func RequireOrganizationAdmin(v SessionValidator, cookieName string) func(http.Handler) http.Handler {
	return RequireRole(v, cookieName, tenantAuth.EntityTypeOrganizationAdmin)
}
