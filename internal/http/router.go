package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/spendy/internal/auth"
	authHandler "github.com/MrJamesThe3rd/spendy/internal/http/auth"
	"github.com/MrJamesThe3rd/spendy/internal/http/category"
	"github.com/MrJamesThe3rd/spendy/internal/http/importcsv"
	"github.com/MrJamesThe3rd/spendy/internal/http/matching"
	"github.com/MrJamesThe3rd/spendy/internal/http/profile"
	"github.com/MrJamesThe3rd/spendy/internal/http/transaction"
	"github.com/MrJamesThe3rd/spendy/internal/http/wallet"
)

func New(
	tokens *auth.Tokens,
	authV1 *authHandler.Handler,
	profileV1 *profile.Handler,
	walletsV1 *wallet.Handler,
	transactionsV1 *transaction.Handler,
	importV1 *importcsv.Handler,
	matchingV1 *matching.Handler,
	categoriesV1 *category.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			authV1.Routes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(tokens))

			r.Route("/profile", profileV1.Routes)
			r.Route("/wallets", walletsV1.Routes)
			r.Route("/transactions", transactionsV1.Routes)
			r.Route("/import", importV1.Routes)

			r.Route("/matching", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				matchingV1.Routes(r)
			})

			r.Route("/categories", categoriesV1.Routes)
		})
	})

	return router
}
