package services

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"eph-processor/internal/models"
)

// AllAglomerados disables the aglomerado filter of an indicator.
const AllAglomerados = 0

// Aggregator computes weighted indicators over classified records. Every
// indicator sums PONDERA, rounds percentages to two decimals and returns
// ErrNoData when its input is empty or lacks the columns it reads.
type Aggregator struct {
	catalog *models.Catalog
}

// NewAggregator creates an aggregator that labels results with catalog names.
func NewAggregator(catalog *models.Catalog) *Aggregator {
	if catalog == nil {
		catalog = models.NewCatalog(nil)
	}
	return &Aggregator{catalog: catalog}
}

// Catalog returns the reference catalog used for names.
func (a *Aggregator) Catalog() *models.Catalog {
	return a.catalog
}

type tally struct {
	total float64
	count float64
}

func (t tally) percentage() float64 {
	return pct(t.count, t.total)
}

func pct(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return models.Round2(part / total * 100)
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func sortedPeriods[V any](m map[models.Period]V) []models.Period {
	keys := make([]models.Period, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, models.Period.Compare)
	return keys
}

// argmax returns the key with the largest value. Ties go to the smallest key.
func argmax[K cmp.Ordered](m map[K]float64) (K, bool) {
	var best K
	found := false
	for _, k := range sortedKeys(m) {
		if !found || m[k] > m[best] {
			best, found = k, true
		}
	}
	return best, found
}

func noData(format string, args ...any) error {
	return errors.Wrapf(ErrNoData, format, args...)
}

func requireIndividuals(inds *models.Individuals, cols ...string) error {
	if inds == nil || len(inds.Rows) == 0 {
		return noData("no individual records")
	}
	if !inds.Has(cols...) {
		return noData("individual records lack columns %s", strings.Join(cols, ", "))
	}
	return nil
}

func requireHouseholds(hhs *models.Households, cols ...string) error {
	if hhs == nil || len(hhs.Rows) == 0 {
		return noData("no household records")
	}
	if !hhs.Has(cols...) {
		return noData("household records lack columns %s", strings.Join(cols, ", "))
	}
	return nil
}

func matchAglomerado(c models.Code, aglomerado int) bool {
	return aglomerado == AllAglomerados || c.Is(aglomerado)
}

// LaborRates returns the weighted employment and unemployment rates of each
// period, over the active population (ESTADO 1 or 2).
func (a *Aggregator) LaborRates(inds *models.Individuals, aglomerado int) ([]models.LaborRate, error) {
	if err := requireIndividuals(inds, models.ColStatus, models.ColAglomerado); err != nil {
		return nil, err
	}
	type active struct{ employed, unemployed float64 }
	byPeriod := map[models.Period]*active{}
	for _, in := range inds.Rows {
		if !matchAglomerado(in.Aglomerado, aglomerado) || !in.Status.Is(1, 2) {
			continue
		}
		acc, ok := byPeriod[in.Period]
		if !ok {
			acc = &active{}
			byPeriod[in.Period] = acc
		}
		if in.Status.Is(1) {
			acc.employed += in.Weight.Or(0)
		} else {
			acc.unemployed += in.Weight.Or(0)
		}
	}

	var out []models.LaborRate
	for _, p := range sortedPeriods(byPeriod) {
		acc := byPeriod[p]
		pea := acc.employed + acc.unemployed
		out = append(out, models.LaborRate{
			Year:             p.Year,
			Quarter:          p.Quarter,
			Period:           p.String(),
			Employed:         acc.employed,
			Unemployed:       acc.unemployed,
			EmploymentRate:   pct(acc.employed, pea),
			UnemploymentRate: pct(acc.unemployed, pea),
		})
	}
	if len(out) == 0 {
		return nil, noData("no active population")
	}
	return out, nil
}

// UnemploymentRate is the unemployment column of LaborRates.
func (a *Aggregator) UnemploymentRate(inds *models.Individuals, aglomerado int) ([]models.PeriodValue, error) {
	rates, err := a.LaborRates(inds, aglomerado)
	if err != nil {
		return nil, err
	}
	out := make([]models.PeriodValue, len(rates))
	for i, r := range rates {
		out[i] = models.PeriodValue{Year: r.Year, Quarter: r.Quarter, Value: r.UnemploymentRate}
	}
	return out, nil
}

// EmploymentRate is the employment column of LaborRates.
func (a *Aggregator) EmploymentRate(inds *models.Individuals, aglomerado int) ([]models.PeriodValue, error) {
	rates, err := a.LaborRates(inds, aglomerado)
	if err != nil {
		return nil, err
	}
	out := make([]models.PeriodValue, len(rates))
	for i, r := range rates {
		out[i] = models.PeriodValue{Year: r.Year, Quarter: r.Quarter, Value: r.EmploymentRate}
	}
	return out, nil
}

// Working age spans 15 through 64 years.
const (
	workingAgeMin = 15
	workingAgeMax = 65
)

// DependencyRatio returns, per period, the weighted population outside
// working age over the working-age population, times 100. Periods with no
// working-age population are omitted.
func (a *Aggregator) DependencyRatio(inds *models.Individuals, aglomerado int) ([]models.DependencyRatio, error) {
	if err := requireIndividuals(inds, models.ColAge, models.ColAglomerado); err != nil {
		return nil, err
	}
	byPeriod := map[models.Period]*tally{}
	for _, in := range inds.Rows {
		if !in.Age.Valid || !matchAglomerado(in.Aglomerado, aglomerado) {
			continue
		}
		acc, ok := byPeriod[in.Period]
		if !ok {
			acc = &tally{}
			byPeriod[in.Period] = acc
		}
		if in.Age.Value >= workingAgeMin && in.Age.Value < workingAgeMax {
			acc.total += in.Weight.Or(0)
		} else {
			acc.count += in.Weight.Or(0)
		}
	}

	var out []models.DependencyRatio
	for _, p := range sortedPeriods(byPeriod) {
		acc := byPeriod[p]
		if acc.total == 0 {
			continue
		}
		out = append(out, models.DependencyRatio{
			Year:       p.Year,
			Quarter:    p.Quarter,
			Period:     p.String(),
			WorkingAge: acc.total,
			Dependent:  acc.count,
			Ratio:      acc.percentage(),
		})
	}
	if len(out) == 0 {
		return nil, noData("no working-age population")
	}
	return out, nil
}

type weightedAge struct {
	age    float64
	weight float64
}

// weightedMedian returns the first age, in ascending order, whose cumulative
// weight reaches half of the total.
func weightedMedian(ages []weightedAge, total float64) float64 {
	slices.SortStableFunc(ages, func(x, y weightedAge) int { return cmp.Compare(x.age, y.age) })
	half := total / 2
	cum := 0.0
	for _, a := range ages {
		cum += a.weight
		if cum >= half {
			return a.age
		}
	}
	return ages[len(ages)-1].age
}

// AgeStats returns the weighted mean and median age of every period.
func (a *Aggregator) AgeStats(inds *models.Individuals) ([]models.AgeStats, error) {
	if err := requireIndividuals(inds, models.ColAge); err != nil {
		return nil, err
	}
	byPeriod := map[models.Period][]weightedAge{}
	for _, in := range inds.Rows {
		if !in.Age.Valid || !in.Weight.Valid {
			continue
		}
		byPeriod[in.Period] = append(byPeriod[in.Period], weightedAge{age: in.Age.Value, weight: in.Weight.Value})
	}

	var out []models.AgeStats
	for _, p := range sortedPeriods(byPeriod) {
		ages := byPeriod[p]
		var total, sum float64
		for _, a := range ages {
			total += a.weight
			sum += a.age * a.weight
		}
		if total == 0 {
			continue
		}
		out = append(out, models.AgeStats{
			Year:       p.Year,
			Quarter:    p.Quarter,
			MeanAge:    models.Round2(sum / total),
			MedianAge:  models.Round2(weightedMedian(ages, total)),
			Population: int64(total),
		})
	}
	if len(out) == 0 {
		return nil, noData("no weighted ages")
	}
	return out, nil
}

// Literacy returns, per year, the reading/writing split of persons older
// than six in the latest quarter observed that year. CH09 1 is capable and
// 2 incapable; other answers are ignored.
func (a *Aggregator) Literacy(inds *models.Individuals) ([]models.Literacy, error) {
	if err := requireIndividuals(inds, models.ColAge, models.ColLiteracy); err != nil {
		return nil, err
	}
	latest := map[int]int{}
	for _, in := range inds.Rows {
		if in.Period.Quarter > latest[in.Period.Year] {
			latest[in.Period.Year] = in.Period.Quarter
		}
	}

	type split struct{ capable, incapable float64 }
	byYear := map[int]*split{}
	for _, in := range inds.Rows {
		if in.Period.Quarter != latest[in.Period.Year] || !in.Age.Valid || in.Age.Value <= 6 {
			continue
		}
		acc, ok := byYear[in.Period.Year]
		if !ok {
			acc = &split{}
			byYear[in.Period.Year] = acc
		}
		switch {
		case in.Literacy.Is(1):
			acc.capable += in.Weight.Or(0)
		case in.Literacy.Is(2):
			acc.incapable += in.Weight.Or(0)
		}
	}

	var out []models.Literacy
	for _, year := range sortedKeys(byYear) {
		acc := byYear[year]
		base := acc.capable + acc.incapable
		if base == 0 {
			continue
		}
		out = append(out, models.Literacy{
			Year:         year,
			Quarter:      latest[year],
			Capable:      acc.capable,
			Incapable:    acc.incapable,
			CapablePct:   pct(acc.capable, base),
			IncapablePct: pct(acc.incapable, base),
		})
	}
	if len(out) == 0 {
		return nil, noData("no literacy answers")
	}
	return out, nil
}

// headroomMembers is the household size the reference lines are stated for.
const headroomMembers = 4

// PovertyHeadroom compares the total income of four-member households in
// lines.Period with the quarterly poverty and indigence lines.
func (a *Aggregator) PovertyHeadroom(hhs *models.Households, lines models.PovertyLines) (models.PovertyHeadroom, error) {
	if err := requireHouseholds(hhs, models.ColMembers, models.ColTotalIncome); err != nil {
		return models.PovertyHeadroom{}, err
	}
	res := models.PovertyHeadroom{
		Year:          lines.Period.Year,
		Quarter:       lines.Period.Quarter,
		PovertyLine:   models.Round2(lines.Poverty),
		IndigenceLine: models.Round2(lines.Indigence),
	}
	for _, h := range hhs.Rows {
		if h.Period != lines.Period || !h.Members.Valid || h.Members.Value != headroomMembers || !h.TotalIncome.Valid {
			continue
		}
		w := h.Weight.Or(0)
		res.Households += w
		if h.TotalIncome.Value < lines.Poverty {
			res.BelowPoverty += w
		}
		if h.TotalIncome.Value < lines.Indigence {
			res.BelowIndigence += w
		}
	}
	if res.Households == 0 {
		return models.PovertyHeadroom{}, noData("no four-member households in %s", lines.Period)
	}
	res.BelowPovertyPct = pct(res.BelowPoverty, res.Households)
	res.BelowIndigencePct = pct(res.BelowIndigence, res.Households)
	return res, nil
}

// Coverage describes the span of periods in periods. Months are reported as
// month/year, from the first month of the earliest quarter to the last month
// of the latest one.
func Coverage(periods []models.Period) (models.Coverage, error) {
	if len(periods) == 0 {
		return models.Coverage{}, noData("no periods")
	}
	first, last := periods[0], periods[0]
	for _, p := range periods[1:] {
		if p.Before(first) {
			first = p
		}
		if last.Before(p) {
			last = p
		}
	}
	firstMonth, _ := first.Months()
	_, lastMonth := last.Months()
	return models.Coverage{
		From:      first.String(),
		To:        last.String(),
		FirstDate: fmt.Sprintf("%d/%d", firstMonth, first.Year),
		LastDate:  fmt.Sprintf("%d/%d", lastMonth, last.Year),
		Rows:      len(periods),
	}, nil
}

// HouseholdPeriods returns the period of every household row.
func HouseholdPeriods(hhs *models.Households) []models.Period {
	if hhs == nil {
		return nil
	}
	out := make([]models.Period, len(hhs.Rows))
	for i, h := range hhs.Rows {
		out[i] = h.Period
	}
	return out
}

// IndividualPeriods returns the period of every individual row.
func IndividualPeriods(inds *models.Individuals) []models.Period {
	if inds == nil {
		return nil
	}
	out := make([]models.Period, len(inds.Rows))
	for i, in := range inds.Rows {
		out[i] = in.Period
	}
	return out
}

// Years lists the distinct survey years of periods in ascending order.
func Years(periods []models.Period) []int {
	seen := map[int]bool{}
	for _, p := range periods {
		seen[p.Year] = true
	}
	return sortedKeys(seen)
}

// AllYears disables FilterHouseholdsByYear and FilterIndividualsByYear.
const AllYears = 0

// FilterHouseholdsByYear keeps the households surveyed in year.
func FilterHouseholdsByYear(hhs *models.Households, year int) *models.Households {
	if hhs == nil || year == AllYears {
		return hhs
	}
	out := &models.Households{Columns: hhs.Columns}
	for _, h := range hhs.Rows {
		if h.Period.Year == year {
			out.Rows = append(out.Rows, h)
		}
	}
	return out
}

// FilterIndividualsByYear keeps the individuals surveyed in year.
func FilterIndividualsByYear(inds *models.Individuals, year int) *models.Individuals {
	if inds == nil || year == AllYears {
		return inds
	}
	out := &models.Individuals{Columns: inds.Columns}
	for _, in := range inds.Rows {
		if in.Period.Year == year {
			out.Rows = append(out.Rows, in)
		}
	}
	return out
}
