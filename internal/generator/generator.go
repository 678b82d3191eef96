package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/vigilx/pricewatch/internal/domain"
)

// Dataset contains the generated users with their tracked items.
type Dataset struct {
	Users []domain.User `json:"users"`
}

// Generator produces synthetic tracking data shaped like real receipts.
type Generator struct {
	cfg  Config
	rand *rand.Rand
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	if cfg.NumUsers <= 0 {
		cfg.NumUsers = DefaultConfig().NumUsers
	}
	if cfg.MinItems <= 0 {
		cfg.MinItems = DefaultConfig().MinItems
	}
	if cfg.MaxItems < cfg.MinItems {
		cfg.MaxItems = cfg.MinItems
	}
	if cfg.DropChance <= 0 {
		cfg.DropChance = DefaultConfig().DropChance
	}
	if cfg.ResolvedRate <= 0 {
		cfg.ResolvedRate = DefaultConfig().ResolvedRate
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
	}
}

type catalogEntry struct {
	name     string
	variants []string
	minPrice int64
	maxPrice int64
}

var catalog = []catalogEntry{
	{"Google Pixel 8", []string{"128GB Obsidian", "256GB Hazel", ""}, 45000, 75000},
	{"Samsung Galaxy S23", []string{"256GB Phantom Black", "128GB Cream"}, 50000, 80000},
	{"Sony WH-1000XM5", []string{"Black", "Silver", ""}, 22000, 33000},
	{"Nike Air Max 270", []string{"UK 9", "UK 10", "UK 8"}, 8000, 14000},
	{"Apple AirPods Pro", []string{"2nd Gen", ""}, 18000, 26000},
	{"boAt Rockerz 450", []string{"Luscious Black", ""}, 1200, 2200},
	{"Mi Smart Band 8", []string{"", "Black Strap"}, 2500, 4500},
	{"Lenovo IdeaPad Slim 3", []string{"i5 16GB", "Ryzen 5 8GB"}, 42000, 62000},
	{"Prestige Induction Cooktop", []string{"PIC 20", ""}, 1800, 3500},
	{"Adidas Ultraboost", []string{"UK 9", "UK 10"}, 11000, 18000},
}

var firstNames = []string{
	"Arjun", "Priya", "Rohan", "Ananya", "Vikram", "Sneha", "Karan",
	"Divya", "Aditya", "Meera", "Rahul", "Isha", "Nikhil", "Pooja",
}

var platforms = []string{"amazon", "flipkart"}

// Generate synthesises users with tracked items. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	users := make([]domain.User, g.cfg.NumUsers)
	now := time.Now().UTC()

	for i := 0; i < g.cfg.NumUsers; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		chatID := int64(100000 + i)
		createdAt := now.Add(-time.Duration(g.rand.Intn(90*24)) * time.Hour)

		itemCount := g.cfg.MinItems + g.rand.Intn(g.cfg.MaxItems-g.cfg.MinItems+1)
		tracking := make([]domain.TrackedItem, 0, itemCount)
		for j := 0; j < itemCount; j++ {
			item := g.randomItem(createdAt, j)
			tracking = append(tracking, item)
		}

		users[i] = domain.User{
			ChatID:    chatID,
			Name:      firstNames[g.rand.Intn(len(firstNames))],
			Tracking:  tracking,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		}
	}

	return Dataset{Users: users}, nil
}

func (g *Generator) randomItem(base time.Time, ordinal int) domain.TrackedItem {
	entry := catalog[g.rand.Intn(len(catalog))]
	variant := entry.variants[g.rand.Intn(len(entry.variants))]
	platform := platforms[g.rand.Intn(len(platforms))]
	paid := entry.minPrice + g.rand.Int63n(entry.maxPrice-entry.minPrice+1)
	addedAt := base.Add(time.Duration(g.rand.Intn(72)) * time.Hour)

	item := domain.TrackedItem{
		ID:        addedAt.UnixMilli() + int64(ordinal),
		Name:      entry.name,
		Variant:   variant,
		Platform:  platform,
		URL:       g.maybeProductURL(platform, entry.name),
		PricePaid: paid,
		AddedAt:   addedAt,
	}

	if g.rand.Float64() < g.cfg.ResolvedRate {
		current := paid
		if g.rand.Float64() < g.cfg.DropChance {
			// Drop between 5% and 30% of the paid price.
			current = paid - (paid*int64(5+g.rand.Intn(26)))/100
		} else {
			current = paid + g.rand.Int63n(paid/10+1)
		}
		item.CurrentPrice = &current
	}

	return item
}

// maybeProductURL leaves the URL empty part of the time so seeded items
// exercise both the direct-fetch and search-fallback resolution paths.
func (g *Generator) maybeProductURL(platform, name string) string {
	if g.rand.Float64() < 0.4 {
		return ""
	}
	slug := ""
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			slug += string(r)
		case r >= 'A' && r <= 'Z':
			slug += string(r + 32)
		case r == ' ':
			slug += "-"
		}
	}
	if platform == "flipkart" {
		return fmt.Sprintf("https://www.flipkart.com/%s/p/itm%07d", slug, g.rand.Intn(10000000))
	}
	return fmt.Sprintf("https://www.amazon.in/%s/dp/B0%08d", slug, g.rand.Intn(100000000))
}
