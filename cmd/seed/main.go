// Seed creates the schema and loads a few sample products for local runs.
package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/tfinproject/shop-api/internal/config"
	"github.com/tfinproject/shop-api/internal/postgres"
)

type seedProduct struct {
	name, description, category, imageURL string
	price                                 float64
	stock                                 int
}

var products = []seedProduct{
	{"Wireless Headphones", "High-quality wireless headphones with noise cancellation", "Electronics", "https://via.placeholder.com/300x300?text=Headphones", 99.99, 50},
	{"Smartphone", "Latest model smartphone with advanced features", "Electronics", "https://via.placeholder.com/300x300?text=Smartphone", 699.99, 30},
	{"Laptop", "Powerful laptop for work and gaming", "Electronics", "https://via.placeholder.com/300x300?text=Laptop", 1299.99, 20},
	{"Running Shoes", "Comfortable running shoes for daily exercise", "Sports", "https://via.placeholder.com/300x300?text=Shoes", 79.99, 100},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		zlog.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	if _, err := db.Exec(ctx, postgres.Schema); err != nil {
		zlog.Fatal().Err(err).Msg("apply schema")
	}

	for _, p := range products {
		_, err := db.Exec(ctx, `
			INSERT INTO products(id, name, description, price, stock, category, image_url, is_active)
			SELECT $1, $2, $3, $4, $5, $6, $7, TRUE
			WHERE NOT EXISTS (SELECT 1 FROM products WHERE name = $2)`,
			uuid.NewString(), p.name, p.description, p.price, p.stock, p.category, p.imageURL)
		if err != nil {
			zlog.Fatal().Err(err).Str("product", p.name).Msg("seed product")
		}
	}
	zlog.Info().Int("products", len(products)).Msg("seed complete")
}
