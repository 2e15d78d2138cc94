package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/fixhub-app/fixhub/internal/admin"
	"github.com/fixhub-app/fixhub/internal/agent"
	"github.com/fixhub-app/fixhub/internal/alerts"
	"github.com/fixhub-app/fixhub/internal/auth"
	"github.com/fixhub-app/fixhub/internal/badge"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/fixer"
	"github.com/fixhub-app/fixhub/internal/gig"
	"github.com/fixhub-app/fixhub/internal/identity"
	"github.com/fixhub-app/fixhub/internal/logger"
	"github.com/fixhub-app/fixhub/internal/order"
	"github.com/fixhub-app/fixhub/internal/request"
)

func main() {
	_ = godotenv.Load()
	logger.Init()

	db.Init()
	defer db.Close()
	if err := alerts.ConfigureMailerFromEnv(); err != nil {
		logger.Log.Warn().Err(err).Msg("mailer not configured, emails disabled")
	}
	alerts.Init()
	defer alerts.Close()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// Public
	e.POST("/signup", auth.Signup)
	e.POST("/login", auth.Login)
	e.POST("/auth/magic-link", auth.RequestMagicLink)
	e.POST("/auth/magic-link/verify", auth.VerifyMagicLink)
	e.GET("/gigs", gig.Browse)
	e.GET("/gigs/:id", gig.Get)

	// Authenticated
	g := e.Group("")
	g.Use(identity.Middleware)

	g.GET("/me", auth.Me)
	g.GET("/notifications", alerts.ListNotifications)
	g.POST("/notifications/:id/read", alerts.MarkNotificationRead)
	g.GET("/purse", order.MyPurse)

	// Fixer onboarding
	g.POST("/fixer/profile", fixer.CreateProfile)
	g.PUT("/fixer/profile", fixer.UpdateProfile)
	g.GET("/fixer/profile", fixer.MyProfile)

	// Gigs
	g.POST("/fixer/gigs", gig.Create)
	g.GET("/fixer/gigs", gig.Mine)
	g.PUT("/fixer/gigs/:id", gig.Update)
	g.POST("/fixer/gigs/:id/packages", gig.AddPackage)
	g.POST("/fixer/gigs/:id/submit", gig.Submit)
	g.POST("/fixer/gigs/:id/pause", gig.Pause)
	g.POST("/fixer/gigs/:id/resume", gig.Resume)

	// Service requests and quotes
	g.POST("/requests", request.Create)
	g.GET("/requests/mine", request.Mine)
	g.GET("/requests/open", request.Open)
	g.POST("/requests/:id/cancel", request.Cancel)
	g.POST("/requests/:id/quotes", request.SubmitQuote)
	g.GET("/requests/:id/quotes", request.ListQuotes)
	g.POST("/quotes/:quoteId/pay-inspection", request.PayInspection)
	g.POST("/quotes/:quoteId/accept", request.AcceptQuote)

	// Orders
	g.POST("/orders", order.Create)
	g.GET("/orders", order.Mine)
	g.GET("/orders/:id", order.Get)
	g.POST("/orders/:id/start", order.Start)
	g.POST("/orders/:id/complete", order.Complete)
	g.POST("/orders/:id/pay", order.Pay)
	g.POST("/orders/:id/cancel", order.Cancel)

	// Badges
	g.POST("/badges", badge.Create)
	g.GET("/badges", badge.Mine)
	g.POST("/badges/:id/resubmit", badge.Resubmit)

	// Agents
	g.POST("/agent/apply", agent.Apply)
	g.GET("/agent/me", agent.Me)
	g.GET("/agent/commissions", agent.ListCommissions)
	g.POST("/agent/roster/fixers", agent.AddFixer)
	g.POST("/agent/roster/clients", agent.AddClient)
	g.GET("/agent/roster", agent.Roster)
	g.POST("/agent/gigs", agent.CreateGigFor)
	g.POST("/agent/requests/:id/quotes", agent.QuoteFor)

	// Admin
	a := e.Group("/admin")
	a.Use(identity.Middleware)
	a.Use(identity.AdminGuard)
	a.GET("/stats", admin.Stats)
	a.GET("/users", admin.ListUsers)
	a.POST("/users/:id/suspend", admin.SuspendUser)
	a.POST("/users/:id/activate", admin.ActivateUser)
	a.POST("/users/:id/reject", admin.RejectUser)
	a.GET("/settings", admin.ListSettings)
	a.PUT("/settings/:key", admin.UpdateSetting)

	a.GET("/fixers/pending", fixer.ListPendingProfiles)
	a.POST("/fixers/:id/approve", fixer.ApproveProfile)
	a.POST("/fixers/:id/reject", fixer.RejectProfile)

	a.GET("/gigs/pending", gig.ListPendingReview)
	a.POST("/gigs/:id/approve", gig.Approve)
	a.POST("/gigs/:id/reject", gig.Reject)

	a.GET("/requests/pending", request.ListPending)
	a.POST("/requests/:id/approve", request.Approve)

	a.GET("/agents/pending", agent.ListPending)
	a.POST("/agents/:id/approve", agent.Approve)
	a.POST("/agents/:id/reject", agent.Reject)
	a.POST("/agents/:id/suspend", agent.Suspend)
	a.POST("/agents/:id/ban", agent.Ban)
	a.POST("/agents/:id/reinstate", agent.Reinstate)
	a.PUT("/agents/:id/commission", agent.UpdateCommission)
	a.POST("/roster/:id/vet", agent.VetRelationship)
	a.POST("/roster/clients/:id/vet", agent.VetClientRelationship)

	a.GET("/badges", badge.ListOpen)
	a.POST("/badges/:id/confirm-payment", badge.ConfirmPayment)
	a.POST("/badges/:id/approve", badge.Approve)
	a.POST("/badges/:id/reject", badge.Reject)
	a.POST("/badges/:id/request-info", badge.RequestInfo)

	a.POST("/orders/:id/settle", order.Settle)
	a.POST("/orders/auto-release", order.AutoRelease)
	a.POST("/orders/:id/reverse-commission", order.ReverseCommission)
	a.GET("/purses", order.ListPurses)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Log.Info().Str("port", port).Msg("api listening")
	if err := e.Start(":" + port); err != nil {
		logger.Log.Fatal().Err(err).Msg("server error")
	}
}
