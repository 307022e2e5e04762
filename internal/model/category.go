package model

import (
	"fmt"
	"strings"
)

// Category is the key of a fixed income or expense classification.
type Category string

const (
	CategorySalary      Category = "SALARY"
	CategoryInvestment  Category = "INVESTMENT"
	CategoryGiftIncome  Category = "GIFT_INCOME"
	CategoryInterest    Category = "INTEREST"
	CategoryBizum       Category = "BIZUM"
	CategoryTip         Category = "TIP"
	CategoryOtherIncome Category = "OTHER_INCOME"

	CategoryFood      Category = "FOOD"
	CategoryHousing   Category = "HOUSING"
	CategoryTransport Category = "TRANSPORT"
	CategoryServices  Category = "SERVICES"
	CategoryClothing  Category = "CLOTHING"
	CategoryHealth    Category = "HEALTH"
	CategoryEducation Category = "EDUCATION"
)

// CategoryInfo is the display metadata attached to a category.
type CategoryInfo struct {
	Key         Category
	DisplayName string
	Income      bool
	Color       string // #RRGGBB
	Icon        string
}

var catalog = []CategoryInfo{
	{CategorySalary, "Salary", true, "#00FF00", "salary"},
	{CategoryInvestment, "Investment", true, "#6C3483", "investment"},
	{CategoryGiftIncome, "Gift", true, "#FFD700", "gift"},
	{CategoryInterest, "Interest", true, "#1E90FF", "interest"},
	{CategoryBizum, "Bizum", true, "#00B894", "bizum"},
	{CategoryTip, "Tip", true, "#FECB5E", "tip"},
	{CategoryOtherIncome, "Other (income)", true, "#444444", "other_income"},
	{CategoryFood, "Food", false, "#FF0000", "food"},
	{CategoryHousing, "Housing", false, "#AC92EB", "housing"},
	{CategoryTransport, "Transport", false, "#FF9800", "transport"},
	{CategoryServices, "Services", false, "#2ECC71", "services"},
	{CategoryClothing, "Clothing & footwear", false, "#E67E22", "clothing"},
	{CategoryHealth, "Health", false, "#E74C3C", "health"},
	{CategoryEducation, "Education", false, "#3498DB", "education"},
}

var byKey = func() map[Category]int {
	m := make(map[Category]int, len(catalog))
	for i, c := range catalog {
		m[c.Key] = i
	}
	return m
}()

// Categories returns the whole catalog in display order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(catalog))
	copy(out, catalog)
	return out
}

// IncomeCategories returns the income half of the catalog.
func IncomeCategories() []CategoryInfo { return filterCatalog(true) }

// ExpenseCategories returns the expense half of the catalog.
func ExpenseCategories() []CategoryInfo { return filterCatalog(false) }

func filterCatalog(income bool) []CategoryInfo {
	var out []CategoryInfo
	for _, c := range catalog {
		if c.Income == income {
			out = append(out, c)
		}
	}
	return out
}

// Info returns the catalog record for c.
func (c Category) Info() (CategoryInfo, bool) {
	i, ok := byKey[c]
	if !ok {
		return CategoryInfo{}, false
	}
	return catalog[i], true
}

// Valid reports whether c is part of the catalog.
func (c Category) Valid() bool {
	_, ok := byKey[c]
	return ok
}

// IsIncome reports whether c is an income category. Unknown keys are not.
func (c Category) IsIncome() bool {
	info, ok := c.Info()
	return ok && info.Income
}

// DisplayName returns the human label, or the raw key when unknown.
func (c Category) DisplayName() string {
	if info, ok := c.Info(); ok {
		return info.DisplayName
	}
	return string(c)
}

// Order returns the catalog position of c; unknown keys sort last.
func (c Category) Order() int {
	if i, ok := byKey[c]; ok {
		return i
	}
	return len(catalog)
}

// ParseCategory resolves a key case-insensitively.
func ParseCategory(s string) (Category, error) {
	for _, c := range catalog {
		if strings.EqualFold(string(c.Key), strings.TrimSpace(s)) {
			return c.Key, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}
