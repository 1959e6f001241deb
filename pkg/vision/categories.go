package vision

import (
	"strings"
)

const (
	CategoryBeneficialInsect = "beneficial_insect"
	CategoryInsect           = "insect"
	CategoryPlant            = "plant"
	CategoryDiseaseSymptom   = "disease_symptom"
	CategoryTree             = "tree"
	CategoryVehicle          = "vehicle"
	CategoryBuilding         = "building"
	CategoryNatural          = "natural"
	CategoryIndustrial       = "industrial"
	CategoryOther            = "other"
)

var knownCategories = map[string]bool{
	CategoryBeneficialInsect: true,
	CategoryInsect:           true,
	CategoryPlant:            true,
	CategoryDiseaseSymptom:   true,
	CategoryTree:             true,
	CategoryVehicle:          true,
	CategoryBuilding:         true,
	CategoryNatural:          true,
	CategoryIndustrial:       true,
	CategoryOther:            true,
}

// English detector labels.
var labelCategories = map[string]string{
	"insect":    CategoryInsect,
	"beetle":    CategoryInsect,
	"bee":       CategoryBeneficialInsect,
	"ladybug":   CategoryBeneficialInsect,
	"butterfly": CategoryBeneficialInsect,
	"bug":       CategoryInsect,
	"fly":       CategoryInsect,
	"tree":      CategoryTree,
	"plant":     CategoryPlant,
	"leaf":      CategoryPlant,
	"grass":     CategoryPlant,
	"flower":    CategoryPlant,
	"branch":    CategoryPlant,
	"sky":       CategoryNatural,
	"cloud":     CategoryNatural,
	"water":     CategoryNatural,
	"ground":    CategoryNatural,
	"soil":      CategoryNatural,
	"car":       CategoryVehicle,
	"truck":     CategoryVehicle,
	"vehicle":   CategoryVehicle,
	"building":  CategoryBuilding,
	"house":     CategoryBuilding,
	"road":      CategoryBuilding,
	"person":    CategoryOther,
	"animal":    CategoryOther,
}

var labelNames = map[string]string{
	"beetle":  "天牛",
	"ladybug": "瓢虫",
	"insect":  "昆虫",
	"tree":    "树木",
	"leaf":    "叶片",
	"pine":    "松树",
}

// Normalize maps a raw detection onto the known categories and Chinese
// names. Pine labels and names naming a tree (树) land in the tree category.
func Normalize(d Detection) Detection {
	d.Name = strings.TrimSpace(d.Name)
	label := strings.ToLower(d.Name)

	category := strings.ToLower(strings.TrimSpace(d.Category))
	switch {
	case knownCategories[category]:
	case labelCategories[category] != "":
		category = labelCategories[category]
	case labelCategories[label] != "":
		category = labelCategories[label]
	default:
		category = CategoryOther
	}

	if zh, ok := labelNames[label]; ok {
		d.Name = zh
		if d.Description == "" {
			d.Description = "检测到的" + zh
		}
	}
	if strings.Contains(label, "pine") || strings.Contains(d.Name, "树") {
		category = CategoryTree
	}
	d.Category = category

	d.Confidence = min(max(d.Confidence, 0), 1)
	if d.Location == "" {
		d.Location = "unknown"
	}
	return d
}
