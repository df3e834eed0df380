package services

import (
	"cmp"
	"fmt"

	"golang.org/x/exp/slices"

	"eph-processor/internal/models"
)

var householdTypeOrder = []string{HouseholdSingle, HouseholdNuclear, HouseholdExtended, NotApplicable}

var habitabilityOrder = []string{
	HabitabilityInsufficient,
	HabitabilityRegular,
	HabitabilityHealthy,
	HabitabilityGood,
	HabitabilityUnclassified,
}

func rank(order []string, label string) int {
	if i := slices.Index(order, label); i >= 0 {
		return i
	}
	return len(order)
}

// HouseholdTypeShares returns the weighted share of each household type in
// year, or over every year with AllYears.
func (a *Aggregator) HouseholdTypeShares(hhs *models.Households, year int) ([]models.CategoryShare, error) {
	if err := requireHouseholds(hhs, models.ColMembers); err != nil {
		return nil, err
	}
	hhs = FilterHouseholdsByYear(hhs, year)
	sums := map[string]float64{}
	total := 0.0
	for _, h := range hhs.Rows {
		w := h.Weight.Or(0)
		sums[h.Derived.Type] += w
		total += w
	}
	if len(sums) == 0 {
		return nil, noData("no households in %d", year)
	}

	out := make([]models.CategoryShare, 0, len(sums))
	for label, w := range sums {
		out = append(out, models.CategoryShare{Category: label, Weighted: w, Percentage: pct(w, total)})
	}
	slices.SortFunc(out, func(x, y models.CategoryShare) int {
		if c := cmp.Compare(rank(householdTypeOrder, x.Category), rank(householdTypeOrder, y.Category)); c != 0 {
			return c
		}
		return cmp.Compare(x.Category, y.Category)
	})
	return out, nil
}

// floorLabel names an IV3 code. Blank cells and unknown codes get their own
// labels so they never merge with a real material.
func floorLabel(c models.Code) string {
	if c.Empty() {
		return NoDataLabel
	}
	return models.LabelOr(models.FloorMaterials, c, fmt.Sprintf("Unknown (%s)", c.Raw))
}

// PredominantFloorMaterial returns, for each aglomerado, the IV3 floor
// material with the largest weighted count.
func (a *Aggregator) PredominantFloorMaterial(hhs *models.Households) ([]models.AglomeradoCategory, error) {
	if err := requireHouseholds(hhs, models.ColFloor, models.ColAglomerado); err != nil {
		return nil, err
	}
	sums := map[int]map[string]float64{}
	totals := map[int]float64{}
	for _, h := range hhs.Rows {
		if !h.Aglomerado.Valid {
			continue
		}
		code := h.Aglomerado.Value
		if sums[code] == nil {
			sums[code] = map[string]float64{}
		}
		sums[code][floorLabel(h.Floor)] += h.Weight.Or(0)
		totals[code] += h.Weight.Or(0)
	}

	var out []models.AglomeradoCategory
	for _, code := range sortedKeys(sums) {
		label, _ := argmax(sums[code])
		out = append(out, models.AglomeradoCategory{
			Aglomerado: code,
			Name:       a.catalog.AglomeradoName(code),
			Category:   label,
			Weighted:   sums[code][label],
			Percentage: pct(sums[code][label], totals[code]),
		})
	}
	if len(out) == 0 {
		return nil, noData("no aglomerados")
	}
	return out, nil
}

// aglomeradoTally sums the weight of every household with a valid aglomerado
// into total, and of those matching match into count.
func aglomeradoTally(hhs *models.Households, match func(models.Household) bool) map[int]*tally {
	sums := map[int]*tally{}
	for _, h := range hhs.Rows {
		if !h.Aglomerado.Valid {
			continue
		}
		acc, ok := sums[h.Aglomerado.Value]
		if !ok {
			acc = &tally{}
			sums[h.Aglomerado.Value] = acc
		}
		acc.total += h.Weight.Or(0)
		if match(h) {
			acc.count += h.Weight.Or(0)
		}
	}
	return sums
}

// BathroomShare returns the weighted proportion of dwellings with a bathroom
// (IV8 1) in each aglomerado, rounded to four decimals.
func (a *Aggregator) BathroomShare(hhs *models.Households) ([]models.BathroomShare, error) {
	if err := requireHouseholds(hhs, models.ColBathroom, models.ColAglomerado); err != nil {
		return nil, err
	}
	sums := aglomeradoTally(hhs, func(h models.Household) bool { return h.Bathroom.Is(1) })
	var out []models.BathroomShare
	for _, code := range sortedKeys(sums) {
		acc := sums[code]
		proportion := 0.0
		if acc.total != 0 {
			proportion = models.Round4(acc.count / acc.total)
		}
		out = append(out, models.BathroomShare{
			Aglomerado:   code,
			Name:         a.catalog.AglomeradoName(code),
			Total:        acc.total,
			WithBathroom: acc.count,
			Proportion:   proportion,
		})
	}
	if len(out) == 0 {
		return nil, noData("no aglomerados")
	}
	return out, nil
}

// TenureEvolution returns the weighted count of each II7 tenure type per
// year in one aglomerado.
func (a *Aggregator) TenureEvolution(hhs *models.Households, aglomerado int) ([]models.TenureCount, error) {
	if err := requireHouseholds(hhs, models.ColTenure, models.ColAglomerado); err != nil {
		return nil, err
	}
	type yearTenure struct{ year, code int }
	sums := map[yearTenure]float64{}
	for _, h := range hhs.Rows {
		if !matchAglomerado(h.Aglomerado, aglomerado) || !h.Tenure.Valid {
			continue
		}
		sums[yearTenure{h.Period.Year, h.Tenure.Value}] += h.Weight.Or(0)
	}
	if len(sums) == 0 {
		return nil, noData("no tenure answers in aglomerado %d", aglomerado)
	}

	keys := make([]yearTenure, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(x, y yearTenure) int {
		if c := cmp.Compare(x.year, y.year); c != 0 {
			return c
		}
		return cmp.Compare(x.code, y.code)
	})
	out := make([]models.TenureCount, len(keys))
	for i, k := range keys {
		out[i] = models.TenureCount{
			Year:     k.year,
			Tenure:   models.LabelOr(models.TenureTypes, models.Code{Value: k.code, Valid: true}, fmt.Sprintf("Unknown (%d)", k.code)),
			Weighted: sums[k],
		}
	}
	return out, nil
}

// SlumShare returns the weighted share of dwellings in a slum (IV12_3 1)
// in each aglomerado.
func (a *Aggregator) SlumShare(hhs *models.Households) ([]models.AglomeradoShare, error) {
	if err := requireHouseholds(hhs, models.ColSlum, models.ColAglomerado); err != nil {
		return nil, err
	}
	sums := aglomeradoTally(hhs, func(h models.Household) bool { return h.Slum.Is(1) })
	if len(sums) == 0 {
		return nil, noData("no aglomerados")
	}
	return aglomeradoShares(a, sums), nil
}

// HabitabilityByAglomerado returns the weighted count and share of each
// habitability label in each aglomerado.
func (a *Aggregator) HabitabilityByAglomerado(hhs *models.Households) ([]models.AglomeradoCategory, error) {
	if err := requireHouseholds(hhs, models.ColAglomerado, models.ColKitchen, models.ColWater); err != nil {
		return nil, err
	}
	sums := map[int]map[string]float64{}
	totals := map[int]float64{}
	for _, h := range hhs.Rows {
		if !h.Aglomerado.Valid {
			continue
		}
		code := h.Aglomerado.Value
		if sums[code] == nil {
			sums[code] = map[string]float64{}
		}
		sums[code][h.Derived.Habitability] += h.Weight.Or(0)
		totals[code] += h.Weight.Or(0)
	}

	var out []models.AglomeradoCategory
	for _, code := range sortedKeys(sums) {
		labels := sortedKeys(sums[code])
		slices.SortStableFunc(labels, func(x, y string) int {
			return cmp.Compare(rank(habitabilityOrder, x), rank(habitabilityOrder, y))
		})
		for _, label := range labels {
			out = append(out, models.AglomeradoCategory{
				Aglomerado: code,
				Name:       a.catalog.AglomeradoName(code),
				Category:   label,
				Weighted:   sums[code][label],
				Percentage: pct(sums[code][label], totals[code]),
			})
		}
	}
	if len(out) == 0 {
		return nil, noData("no aglomerados")
	}
	return out, nil
}

// RenterShareByRegion returns the weighted share of tenant households
// (II7 3) in each region, highest first.
func (a *Aggregator) RenterShareByRegion(hhs *models.Households) ([]models.RegionShare, error) {
	if err := requireHouseholds(hhs, models.ColTenure, models.ColRegion); err != nil {
		return nil, err
	}
	sums := map[int]*tally{}
	for _, h := range hhs.Rows {
		if !h.Region.Valid {
			continue
		}
		acc, ok := sums[h.Region.Value]
		if !ok {
			acc = &tally{}
			sums[h.Region.Value] = acc
		}
		acc.total += h.Weight.Or(0)
		if h.Tenure.Is(3) {
			acc.count += h.Weight.Or(0)
		}
	}
	if len(sums) == 0 {
		return nil, noData("no regions")
	}

	out := make([]models.RegionShare, 0, len(sums))
	for _, code := range sortedKeys(sums) {
		acc := sums[code]
		out = append(out, models.RegionShare{
			Region:     code,
			Name:       a.catalog.RegionName(code),
			Total:      acc.total,
			Count:      acc.count,
			Percentage: acc.percentage(),
		})
	}
	slices.SortStableFunc(out, func(x, y models.RegionShare) int { return cmp.Compare(y.Percentage, x.Percentage) })
	return out, nil
}

// OwnerOccupiedShare returns the weighted share of households owning their
// dwelling (II7 1 or 2) in each aglomerado. Rows without a positive weight
// are ignored.
func (a *Aggregator) OwnerOccupiedShare(hhs *models.Households) ([]models.AglomeradoShare, error) {
	if err := requireHouseholds(hhs, models.ColTenure, models.ColAglomerado); err != nil {
		return nil, err
	}
	weighted := &models.Households{Columns: hhs.Columns}
	for _, h := range hhs.Rows {
		if h.Weight.Or(0) > 0 {
			weighted.Rows = append(weighted.Rows, h)
		}
	}
	sums := aglomeradoTally(weighted, func(h models.Household) bool { return h.Tenure.Is(1, 2) })
	if len(sums) == 0 {
		return nil, noData("no weighted households")
	}
	return aglomeradoShares(a, sums), nil
}

// MostCrowdedWithoutBathroom returns the aglomerado with the largest
// weighted count of dwellings without a bathroom (IV8 2) housing more than
// two persons.
func (a *Aggregator) MostCrowdedWithoutBathroom(hhs *models.Households) (models.AglomeradoValue, error) {
	if err := requireHouseholds(hhs, models.ColBathroom, models.ColMembers, models.ColAglomerado); err != nil {
		return models.AglomeradoValue{}, err
	}
	sums := map[int]float64{}
	for _, h := range hhs.Rows {
		if h.Aglomerado.Valid && h.Bathroom.Is(2) && h.Members.Valid && h.Members.Value > 2 {
			sums[h.Aglomerado.Value] += h.Weight.Or(0)
		}
	}
	code, ok := argmax(sums)
	if !ok {
		return models.AglomeradoValue{}, noData("no crowded dwellings without a bathroom")
	}
	return models.AglomeradoValue{Aglomerado: code, Name: a.catalog.AglomeradoName(code), Value: sums[code]}, nil
}

// Extreme kinds of PrecariousRoofExtremes.
const (
	ExtremeHighest = "highest"
	ExtremeLowest  = "lowest"
)

// PrecariousRoofExtremes returns the aglomerados with the highest and the
// lowest weighted share of precarious roofs in the fourth quarter of year.
// Ties go to the smallest aglomerado code.
func (a *Aggregator) PrecariousRoofExtremes(hhs *models.Households, year int) ([]models.RoofExtreme, error) {
	if err := requireHouseholds(hhs, models.ColRoof, models.ColAglomerado); err != nil {
		return nil, err
	}
	q4 := &models.Households{Columns: hhs.Columns}
	for _, h := range hhs.Rows {
		if h.Period == (models.Period{Year: year, Quarter: 4}) {
			q4.Rows = append(q4.Rows, h)
		}
	}
	sums := aglomeradoTally(q4, func(h models.Household) bool { return h.Derived.RoofMaterial == RoofPrecarious })
	if len(sums) == 0 {
		return nil, noData("no households in %d T4", year)
	}

	codes := sortedKeys(sums)
	hi, lo := codes[0], codes[0]
	for _, code := range codes[1:] {
		share := sums[code].percentage()
		if share > sums[hi].percentage() {
			hi = code
		}
		if share < sums[lo].percentage() {
			lo = code
		}
	}
	return []models.RoofExtreme{
		{Kind: ExtremeHighest, Aglomerado: hi, Name: a.catalog.AglomeradoName(hi), Percentage: sums[hi].percentage()},
		{Kind: ExtremeLowest, Aglomerado: lo, Name: a.catalog.AglomeradoName(lo), Percentage: sums[lo].percentage()},
	}, nil
}
