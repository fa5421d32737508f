package catalog

import (
	"sort"

	"blend-quality-service/internal/models"
)

// DimensionIndex maps each filter dimension to its distinct values, built
// once from the finalized specification set instead of being recomputed per
// query. Read-only after construction.
type DimensionIndex struct {
	plants   []string
	lines    map[string][]string
	products map[string][]string // keyed by plant + "/" + line
}

// BuildIndex constructs the index from specification keys.
func BuildIndex(keys []models.SpecKey) *DimensionIndex {
	plantSet := map[string]struct{}{}
	lineSet := map[string]map[string]struct{}{}
	productSet := map[string]map[string]struct{}{}

	for _, k := range keys {
		plantSet[k.PlantName] = struct{}{}
		if lineSet[k.PlantName] == nil {
			lineSet[k.PlantName] = map[string]struct{}{}
		}
		lineSet[k.PlantName][k.PlantLine] = struct{}{}
		pk := k.PlantName + "/" + k.PlantLine
		if productSet[pk] == nil {
			productSet[pk] = map[string]struct{}{}
		}
		productSet[pk][k.ProductName] = struct{}{}
	}

	idx := &DimensionIndex{
		lines:    make(map[string][]string, len(lineSet)),
		products: make(map[string][]string, len(productSet)),
	}
	for p := range plantSet {
		idx.plants = append(idx.plants, p)
	}
	sort.Strings(idx.plants)
	for plant, lines := range lineSet {
		for l := range lines {
			idx.lines[plant] = append(idx.lines[plant], l)
		}
		sort.Strings(idx.lines[plant])
	}
	for pk, prods := range productSet {
		for p := range prods {
			idx.products[pk] = append(idx.products[pk], p)
		}
		sort.Strings(idx.products[pk])
	}
	return idx
}

// Plants returns every plant with at least one configured specification.
func (i *DimensionIndex) Plants() []string { return i.plants }

// Lines returns the lines configured for a plant.
func (i *DimensionIndex) Lines(plant string) []string { return i.lines[plant] }

// Products returns the products configured for a plant line.
func (i *DimensionIndex) Products(plant, line string) []string {
	return i.products[plant+"/"+line]
}
