package main

import (
	"context"
	"log"
	"time"

	"github.com/shax201/ecommerce-backend-sub001/internal/core/cache"
	"github.com/shax201/ecommerce-backend-sub001/internal/core/config"
	"github.com/shax201/ecommerce-backend-sub001/internal/core/database"
	"github.com/shax201/ecommerce-backend-sub001/internal/core/logger"
	"github.com/shax201/ecommerce-backend-sub001/internal/core/server"
	couponadapter "github.com/shax201/ecommerce-backend-sub001/internal/features/coupons/adapters"
	couponhandler "github.com/shax201/ecommerce-backend-sub001/internal/features/coupons/handler"
	couponservice "github.com/shax201/ecommerce-backend-sub001/internal/features/coupons/service"
	courieradapter "github.com/shax201/ecommerce-backend-sub001/internal/features/courier/adapters"
	courierservice "github.com/shax201/ecommerce-backend-sub001/internal/features/courier/service"
	orderadapter "github.com/shax201/ecommerce-backend-sub001/internal/features/orders/adapters"
	orderhandler "github.com/shax201/ecommerce-backend-sub001/internal/features/orders/handler"
	orderservice "github.com/shax201/ecommerce-backend-sub001/internal/features/orders/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// @title Fulfillment API
// @version 1.0
// @description Order fulfillment service: coupons, courier bookings and shipment tracking.
// @contact.name API Support
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		l.Fatal("MongoDB connection failed", zap.Error(err))
	}
	defer db.Close(context.Background())
	l.Info("MongoDB connection verified", zap.String("database", cfg.Mongo.Database))

	var trackingCache cache.Cache
	if redisCache, err := cache.NewRedisAdapter(cfg.Redis.URL); err != nil {
		// Tracking falls back to persisted state when the snapshot cache is down.
		l.Warn("Redis unavailable, tracking snapshots disabled", zap.Error(err))
	} else {
		trackingCache = redisCache
	}

	// Coupons
	couponRepo := couponadapter.NewMongoCouponRepository(db.DB)
	couponSvc := couponservice.NewCouponService(couponRepo)
	couponHdl := couponhandler.NewCouponHandler(couponSvc)

	// Couriers
	credentialRepo := courieradapter.NewMongoCredentialRepository(db.DB)
	courierSvc := courierservice.NewCourierService(credentialRepo, courierservice.DefaultAdapterFactory(cfg.Courier))

	// Orders
	orderRepo := orderadapter.NewMongoOrderRepository(db.DB)
	fulfillmentSvc := orderservice.NewFulfillmentService(orderRepo, courierSvc, trackingCache, cfg.Shipment, cfg.Redis.TrackingTTL())
	orderHdl := orderhandler.NewOrderHandler(fulfillmentSvc)

	srv := server.New(cfg)

	// Register Routes
	srv.App.Post("/coupons", couponHdl.CreateCoupon)
	srv.App.Get("/coupons", couponHdl.ListCoupons)
	srv.App.Post("/coupons/validate", couponHdl.ValidateCoupon)
	srv.App.Post("/coupons/apply", couponHdl.ApplyCoupon)
	srv.App.Delete("/coupons/:code", couponHdl.DeactivateCoupon)

	srv.App.Get("/couriers", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"couriers": courierSvc.AvailableCouriers(c.Context())})
	})

	srv.App.Post("/orders/courier/refresh", orderHdl.RefreshAll)
	srv.App.Delete("/orders/courier", orderHdl.BulkRemoveCourierBookings)
	srv.App.Post("/orders/:id/courier", orderHdl.BookCourier)
	srv.App.Delete("/orders/:id/courier", orderHdl.RemoveCourierBooking)
	srv.App.Post("/orders/:id/courier/status", orderHdl.RefreshCourierStatus)
	srv.App.Get("/orders/:id/courier/options", orderHdl.CourierOptions)
	srv.App.Get("/orders/:id/courier/price", orderHdl.EstimatePrice)
	srv.App.Get("/orders/:id/tracking", orderHdl.TrackOrder)

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}
