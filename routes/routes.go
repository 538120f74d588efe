package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/marchpool/bracket-pool/handlers"
	"github.com/marchpool/bracket-pool/middleware"
	"github.com/marchpool/bracket-pool/models"
	httpSwagger "github.com/swaggo/http-swagger"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	teamHandler *handlers.TeamHandler,
	tournamentHandler *handlers.TournamentHandler,
	gameHandler *handlers.GameHandler,
	poolHandler *handlers.PoolHandler,
	bracketHandler *handlers.BracketHandler,
	scoreHandler *handlers.ScoreHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)
	adminOnly := middleware.Authorize(models.RoleAdmin)

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Route("/users", func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/me", userHandler.Me)
		r.Get("/{id}", userHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/", userHandler.List)
			r.Post("/", userHandler.Create)
		})
	})

	router.Route("/teams", func(r chi.Router) {
		r.Get("/", teamHandler.List)
		r.Get("/{id}", teamHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Post("/", teamHandler.Create)
			r.Post("/{id}/logo", teamHandler.UploadLogo)
			r.Delete("/{id}/logo", teamHandler.RemoveLogo)
		})
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Get("/{id}", tournamentHandler.GetByID)
		r.Get("/{id}/teams", tournamentHandler.ListTeams)
		r.Get("/{id}/games", tournamentHandler.ListGames)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Post("/", tournamentHandler.Create)
			r.Post("/{id}/teams", tournamentHandler.AssignTeams)
			r.Post("/{id}/bracket", tournamentHandler.GenerateBracket)
		})
	})

	router.Route("/games", func(r chi.Router) {
		r.Get("/{id}", gameHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Put("/{id}/result", gameHandler.RecordResult)
		})
	})

	router.Route("/pools", func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/", poolHandler.Create)
		r.Get("/", poolHandler.ListMine)
		r.Post("/join", poolHandler.Join)
		r.Get("/{id}", poolHandler.GetByID)
		r.Post("/{id}/leave", poolHandler.Leave)
		r.Post("/{id}/members", poolHandler.AddMember)
		r.Delete("/{id}/members/{userID}", poolHandler.RemoveMember)
		r.Get("/{id}/leaderboard", poolHandler.Leaderboard)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/{id}/scores/recalculate", poolHandler.RecalculateScores)
		})
	})

	router.Route("/brackets", func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/", bracketHandler.Create)
		r.Get("/", bracketHandler.ListMine)
		r.Get("/{id}", bracketHandler.GetByID)
		r.Put("/{id}", bracketHandler.Update)
		r.Delete("/{id}", bracketHandler.Delete)
		r.Get("/{id}/score", bracketHandler.GetScore)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Put("/{id}/lock", bracketHandler.SetLock)
		})
	})

	router.Route("/scores", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(adminOnly)

		r.Post("/recalculate", scoreHandler.RecalculateAll)
	})
}
