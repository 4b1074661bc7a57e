package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders, makeResponseJSON)
	adminMiddleware := standardMiddleware.Append(app.requireAdmin)

	mux := pat.New()

	// Orders
	mux.Post("/order", standardMiddleware.ThenFunc(app.orderHandler.CreateOrder))
	mux.Get("/order/:id/return", standardMiddleware.ThenFunc(app.orderHandler.Return))
	mux.Get("/order/:id", standardMiddleware.ThenFunc(app.orderHandler.GetOrderByID))
	mux.Post("/order/:id/cancel", standardMiddleware.ThenFunc(app.orderHandler.CancelOrder))
	mux.Post("/order/:id/checkout", standardMiddleware.ThenFunc(app.orderHandler.CreateCheckout))

	// Donations
	mux.Post("/donate/checkout", standardMiddleware.ThenFunc(app.donationHandler.CreateCheckout))
	mux.Get("/donate/return", standardMiddleware.ThenFunc(app.donationHandler.Return))

	// Stripe webhook (authenticated by signature, not by session)
	mux.Post("/stripe/webhook", standardMiddleware.ThenFunc(app.webhookHandler.HandleWebhook))

	// Admin
	mux.Post("/admin/login", standardMiddleware.ThenFunc(app.adminHandler.Login))
	mux.Get("/admin/orders", adminMiddleware.ThenFunc(app.adminHandler.GetOrders))
	mux.Put("/admin/order/:id/status", adminMiddleware.ThenFunc(app.adminHandler.UpdateOrderStatus))
	mux.Get("/admin/donations", adminMiddleware.ThenFunc(app.adminHandler.GetDonations))
	mux.Get("/admin/report", adminMiddleware.ThenFunc(app.adminHandler.GetReport))

	return standardMiddleware.Then(mux)
}
