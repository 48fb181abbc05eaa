package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/deskforge/helpdesk/internal/api/http/handlers"
	"github.com/deskforge/helpdesk/internal/auth"
	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Users          *handlers.UsersHandler
	Organizations  *handlers.OrganizationHandler
	Plans          *handlers.PlansHandler
	AuthMiddleware *auth.AuthMiddleware
	LoginLimiter   *IPRateLimiter
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Tenant routes only require an
// authenticated actor; the services apply the access rules.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Get("/plans", cfg.Plans.ListPlans)

	authGroup := app.Group("/auth")
	authGroup.Post("/signup", cfg.Auth.Signup)
	login := []fiber.Handler{}
	if cfg.LoginLimiter != nil {
		login = append(login, cfg.LoginLimiter.Handler())
	}
	authGroup.Post("/login", append(login, cfg.Auth.Login)...)
	authGroup.Post("/password", cfg.AuthMiddleware.Handle, cfg.Auth.ChangePassword)

	authn := cfg.AuthMiddleware.Handle

	tickets := app.Group("/tickets", authn)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Get("/:id/responses", cfg.Tickets.ListResponses)
	tickets.Post("/:id/responses", cfg.Tickets.AddResponse)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)

	users := app.Group("/users", authn)
	users.Get("/", cfg.Users.ListUsers)
	users.Post("/", cfg.Users.CreateUser)
	users.Get("/:id", cfg.Users.GetUser)
	users.Patch("/:id", cfg.Users.UpdateUser)
	users.Delete("/:id", cfg.Users.DeleteUser)
	users.Post("/:id/deactivate", cfg.Users.DeactivateUser)

	org := app.Group("/organization", authn)
	org.Get("/", cfg.Organizations.GetOwn)
	org.Post("/subscription", cfg.Organizations.Subscribe)
	org.Delete("/subscription", cfg.Organizations.Cancel)

	admin := app.Group("/admin", authn, auth.RequireRole(domain.RoleSuperAdmin))
	admin.Get("/organizations", cfg.Organizations.ListOrganizations)
	admin.Get("/organizations/:id", cfg.Organizations.GetOrganization)
	admin.Get("/plans", cfg.Plans.ListAllPlans)
	admin.Post("/plans", cfg.Plans.CreatePlan)
	admin.Patch("/plans/:id", cfg.Plans.UpdatePlan)
}
