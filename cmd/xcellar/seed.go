package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jaswdr/faker"
	"github.com/spf13/cobra"

	"github.com/xcellar/xcellar/internal/bootstrap"
	"github.com/xcellar/xcellar/internal/config"
	"github.com/xcellar/xcellar/internal/migrations"
	"github.com/xcellar/xcellar/internal/repository"
	"github.com/xcellar/xcellar/internal/repository/sqlite"
)

var seedCategories = []struct {
	name        string
	description string
	featured    bool
}{
	{"Food & Groceries", "Everyday essentials, fresh produce and pantry staples", true},
	{"Electronics", "Phones, accessories and gadgets", true},
	{"Fashion", "Clothing, shoes and accessories", false},
	{"Health & Beauty", "Personal care, wellness and cosmetics", false},
	{"Home & Living", "Furniture, kitchenware and decor", false},
}

var seedFAQs = []struct {
	question string
	answer   string
	category string
}{
	{"How do I track my order?", "Open the order from your order list and tap Track. Every status change appears there with a timestamp.", "orders"},
	{"How long does delivery take?", "Within the same city most deliveries complete in under two hours once a courier accepts the order.", "orders"},
	{"How do I fund my wallet?", "Use the deposit option in the wallet screen. You will be redirected to a secure checkout page, and your balance updates once payment is confirmed.", "payments"},
	{"Can I withdraw my wallet balance?", "Yes. Add your bank account as a payout recipient, then request a transfer from the wallet screen.", "payments"},
	{"How do I become a courier?", "Register a courier account, add your vehicle and upload your driver's licence. Deliveries are offered to you once your account is approved.", "couriers"},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo marketplace data",
	Long:  "Populate categories, shops, products and FAQs with generated demo data. Safe to run on an empty database only.",
	RunE:  runSeed,
}

var seedShopCount int
var seedProductsPerShop int

func init() {
	seedCmd.Flags().IntVar(&seedShopCount, "shops", 8, "Number of shops to create")
	seedCmd.Flags().IntVar(&seedProductsPerShop, "products", 12, "Number of products per shop")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := bootstrap.OpenSQLite(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := migrations.Up(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	store := sqlite.NewStore(db)
	ctx := context.Background()

	existing, err := store.Categories().ListActive(ctx)
	if err != nil {
		return fmt.Errorf("check categories: %w", err)
	}
	if len(existing) > 0 {
		return fmt.Errorf("database already has %d categories, refusing to seed", len(existing))
	}

	fake := faker.New()
	now := time.Now().Unix()

	categories := make([]*repository.Category, 0, len(seedCategories))
	for _, c := range seedCategories {
		created, err := store.Categories().Create(ctx, &repository.Category{
			Name:        c.name,
			Slug:        slugify(c.name),
			Description: c.description,
			IsFeatured:  c.featured,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("seed category %q: %w", c.name, err)
		}
		categories = append(categories, created)
	}

	productCount := 0
	for i := 0; i < seedShopCount; i++ {
		name := fake.Company().Name()
		shop, err := store.Shops().Create(ctx, &repository.Shop{
			Name:        name,
			Slug:        fmt.Sprintf("%s-%d", slugify(name), i+1),
			Description: fake.Lorem().Sentence(12),
			OwnerName:   fake.Person().Name(),
			Address:     fake.Address().Address(),
			PhoneNumber: fake.Phone().Number(),
			Email:       fake.Internet().Email(),
			Rating:      fake.Float64(1, 30, 50) / 10,
			IsVerified:  i%3 != 0,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("seed shop %q: %w", name, err)
		}

		for j := 0; j < seedProductsPerShop; j++ {
			category := categories[fake.IntBetween(0, len(categories)-1)]
			productName := titleCase(fake.Lorem().Word()) + " " + titleCase(fake.Lorem().Word())
			priceKobo := int64(fake.IntBetween(500, 250_000)) * 100
			product := &repository.Product{
				ShopID:           shop.ID,
				CategoryID:       category.ID,
				Name:             productName,
				Slug:             fmt.Sprintf("%s-%d-%d", slugify(productName), shop.ID, j+1),
				Description:      fake.Lorem().Sentence(20),
				ShortDescription: fake.Lorem().Sentence(6),
				SKU:              fmt.Sprintf("XC-%04d-%04d", shop.ID, j+1),
				PriceKobo:        priceKobo,
				StockQuantity:    int64(fake.IntBetween(0, 200)),
				WeightKG:         fake.Float64(2, 1, 2000) / 100,
				IsAvailable:      true,
				IsFeatured:       fake.IntBetween(0, 9) == 0,
				Rating:           fake.Float64(1, 25, 50) / 10,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			if fake.IntBetween(0, 4) == 0 {
				discounted := priceKobo + int64(fake.IntBetween(100, 5000))*100
				product.CompareAtPriceKobo = &discounted
			}
			if _, err := store.Products().Create(ctx, product); err != nil {
				return fmt.Errorf("seed product %q: %w", productName, err)
			}
			productCount++
		}
	}

	for i, f := range seedFAQs {
		cat := f.category
		if _, err := store.FAQs().Create(ctx, &repository.FAQ{
			Question:     f.question,
			Answer:       f.answer,
			Category:     cat,
			DisplayOrder: int64(i + 1),
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return fmt.Errorf("seed faq: %w", err)
		}
	}

	fmt.Printf("Seeded %d categories, %d shops, %d products, %d FAQs.\n",
		len(categories), seedShopCount, productCount, len(seedFAQs))
	return nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
