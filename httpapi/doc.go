// Package httpapi mounts the authentication engine on a chi router.
//
// Routes:
//
//	POST /auth/login                      public, per-IP rate limited
//	POST /auth/logout                     public, idempotent
//	POST /auth/logout-all                 any valid session
//	POST /auth/validate-session           public, returns the verdict
//	POST /auth/validate-employee-session  public, returns the verdict
//	GET  /admin/dashboard                 SuperAdmin
//	POST /organization/create             SuperAdmin
//	POST /manage-employees/add-employee   Employee
//	GET  /metrics                         Prometheus exposition
//	GET  /healthz                         liveness
package httpapi
