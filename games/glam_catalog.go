/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"hash/fnv"
	"math/rand/v2"
	"strings"
)

// Product is one item of a glam builder catalog. Prices are in INR.
type Product struct {
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	EcoFriendly bool     `json:"ecoFriendly"`
	Tags        []string `json:"tags"`
}

var catalogCategories = []string{
	"Cleanser", "Moisturizer", "Sunscreen", "Serum", "Exfoliant", "Toner", "Eye Cream", "Mask",
	"Lip Care", "Body Lotion", "Hair Care", "Primer", "Spot Treatment",
}

var catalogNames = map[string][]string{
	"Cleanser":       {"Hydrating Gel Cleanser", "Gentle Foam Wash", "Rice Water Cleanser", "Amino Acid Face Wash", "Ceramide Cleanser"},
	"Moisturizer":    {"Barrier Repair Cream", "Oil-Free Gel Moisturizer", "Nourishing Day Cream", "Lightweight Milk Lotion", "Ceramide+HA Cream"},
	"Sunscreen":      {"Matte Sunscreen SPF50 PA+++", "Hybrid Sunscreen SPF40", "Mineral Sunscreen SPF50", "Aqua Gel SPF50", "Daily Shield SPF30"},
	"Serum":          {"Vitamin C 10% Serum", "Niacinamide 5% Serum", "Hyaluronic Booster", "Retinal Night Serum", "Peptide Firming Serum"},
	"Exfoliant":      {"Mandelic 5% Exfoliant", "Lactic 10% Resurfacer", "PHA Gentle Peel", "Salicylic 2% Clarifying Liquid", "Enzyme Polish"},
	"Toner":          {"Balancing Toner", "Rice Essence", "Soothing Green Tea Toner", "BHA Pore Toner", "Hydrating Mist"},
	"Eye Cream":      {"Caffeine Eye Gel", "Ceramide Eye Cream", "Peptide Eye Balm", "Brightening Eye Serum", "Cooling Eye Roll-On"},
	"Mask":           {"Clay Detox Mask", "Overnight Sleeping Mask", "Hydrogel Sheet Mask", "Brightening Wash-Off Mask", "Calming Oat Mask"},
	"Lip Care":       {"Lip Butter Balm", "SPF Lip Shield", "Nourishing Lip Mask", "Tinted Lip Balm", "Ceramide Lip Treatment"},
	"Body Lotion":    {"Urea 5% Body Lotion", "Shea Softening Lotion", "Ceramide Body Milk", "AHA Body Smoother", "Lightweight Body Gel"},
	"Hair Care":      {"Nourish Shampoo", "Scalp Care Shampoo", "Bond Repair Conditioner", "Leave-in Hair Serum", "Heat Protect Spray"},
	"Primer":         {"Pore Smoothing Primer", "Hydrating Makeup Base", "Matte Control Primer", "Glow Enhancing Primer", "Grip Primer"},
	"Spot Treatment": {"BHA Spot Gel", "Sulfur Treatment", "Azelaic Rapid Gel", "Cica Calming Gel", "Retinoid Spot Serum"},
}

var catalogDescriptions = []string{
	"Lightweight texture; layers well under makeup.",
	"Fragrance-free formula for sensitive skin.",
	"Hydrates without heaviness; quick-absorbing finish.",
	"Balances oil and shine through the day.",
	"Brightens dullness for a fresh look.",
	"Soothes redness; calms irritated skin.",
	"Strengthens barrier; reduces tightness.",
	"Leaves a soft, matte finish.",
	"Packed with antioxidants for daily defense.",
	"Smooth, non-sticky feel; everyday essential.",
}

var catalogBrands = []string{
	"DermaSoft", "HydraGlow", "PureRoots", "SkinLab", "EverCare",
	"AquaVeda", "DailyFix", "CalmSkin", "BrightLab", "Nutriskin",
}

var catalogCommonTags = []string{"fragrance-free", "non-comedogenic", "dermatologist-tested", "cruelty-free", "vegan"}

var catalogTags = map[string][]string{
	"Sunscreen":   {"SPF50", "PA+++", "UVB/UVA", "water-resistant", "no white cast"},
	"Serum":       {"vitamin C", "niacinamide", "hyaluronic acid", "retinal", "peptides"},
	"Cleanser":    {"low pH", "sulfate-free", "foam", "gel"},
	"Moisturizer": {"ceramides", "glycerin", "squalane", "oil-free"},
	"Exfoliant":   {"AHA", "BHA", "PHA", "weekly"},
}

type priceBand struct {
	lo, hi int
}

// bandFor picks the price band from the budget tier.
func bandFor(budget float64) priceBand {
	switch {
	case budget >= 20000:
		return priceBand{1500, 2499}
	case budget >= 14000:
		return priceBand{700, 1499}
	default:
		return priceBand{199, 699}
	}
}

func ecoChance(category string) float64 {
	switch category {
	case "Sunscreen", "Body Lotion", "Cleanser", "Moisturizer":
		return 0.4
	}
	return 0.25
}

func catalogRand(gender string, budget float64) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(gender)))
	seed := h.Sum64()

	return rand.New(rand.NewPCG(seed, uint64(budget)))
}

func pick[T any](r *rand.Rand, items []T) T {
	return items[r.IntN(len(items))]
}

// SyntheticCatalog builds a full catalog without the generator. The same
// gender and budget always produce the same items.
func SyntheticCatalog(gender string, budget float64) []Product {
	r := catalogRand(gender, budget)
	band := bandFor(budget)

	items := make([]Product, 0, GlamCatalogSize)
	for i := range GlamCatalogSize {
		category := catalogCategories[i%len(catalogCategories)]

		tags := append([]string(nil), firstN(catalogTags[category], 2)...)
		if r.Float64() < 0.5 {
			tags = append(tags, pick(r, catalogCommonTags))
		}

		items = append(items, Product{
			Name:        pick(r, catalogBrands) + " " + pick(r, catalogNames[category]),
			Price:       float64(band.lo + r.IntN(band.hi-band.lo+1)),
			Description: pick(r, catalogDescriptions),
			Category:    category,
			EcoFriendly: r.Float64() < ecoChance(category),
			Tags:        tags,
		})
	}

	return items
}

func firstN(items []string, n int) []string {
	if len(items) < n {
		return items
	}
	return items[:n]
}
