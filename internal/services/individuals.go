package services

import (
	"cmp"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"eph-processor/internal/models"
)

// educationOrder is the display order of the NIVEL_ED labels.
var educationOrder = []string{
	EduIncompletePrimary,
	EduCompletePrimary,
	EduIncompleteSecondary,
	EduCompleteSecondary,
	EduHigher,
	EduNoInformation,
	EduMissing,
}

func educationRank(label string) int {
	if i := slices.Index(educationOrder, label); i >= 0 {
		return i
	}
	return len(educationOrder)
}

func compareEducation(x, y models.EducationCount) int {
	if c := cmp.Compare(x.Year, y.Year); c != 0 {
		return c
	}
	if c := cmp.Compare(x.Quarter, y.Quarter); c != 0 {
		return c
	}
	if c := cmp.Compare(educationRank(x.Education), educationRank(y.Education)); c != 0 {
		return c
	}
	return cmp.Compare(x.Education, y.Education)
}

type periodLabel struct {
	period models.Period
	label  string
}

func educationCounts(sums map[periodLabel]float64) []models.EducationCount {
	out := make([]models.EducationCount, 0, len(sums))
	for k, v := range sums {
		out = append(out, models.EducationCount{
			Year:      k.period.Year,
			Quarter:   k.period.Quarter,
			Education: k.label,
			Persons:   v,
		})
	}
	slices.SortFunc(out, compareEducation)
	return out
}

// UnemployedByEducation returns the weighted unemployed population of each
// period by education label.
func (a *Aggregator) UnemployedByEducation(inds *models.Individuals) ([]models.EducationCount, error) {
	if err := requireIndividuals(inds, models.ColStatus, models.ColEducation); err != nil {
		return nil, err
	}
	sums := map[periodLabel]float64{}
	for _, in := range inds.Rows {
		if in.Derived.LaborCondition != LaborUnemployed {
			continue
		}
		sums[periodLabel{in.Period, in.Derived.EducationLabel}] += in.Weight.Or(0)
	}
	if len(sums) == 0 {
		return nil, noData("no unemployed persons")
	}
	return educationCounts(sums), nil
}

// LatestPeriod returns the most recent of periods.
func LatestPeriod(periods []models.Period) (models.Period, bool) {
	if len(periods) == 0 {
		return models.Period{}, false
	}
	latest := periods[0]
	for _, p := range periods[1:] {
		if latest.Before(p) {
			latest = p
		}
	}
	return latest, true
}

// MeanAgeByAglomerado returns the weighted mean age of each aglomerado in
// the latest period, together with that period.
func (a *Aggregator) MeanAgeByAglomerado(inds *models.Individuals) ([]models.AglomeradoValue, models.Period, error) {
	if err := requireIndividuals(inds, models.ColAge, models.ColAglomerado); err != nil {
		return nil, models.Period{}, err
	}
	latest, _ := LatestPeriod(IndividualPeriods(inds))
	sums := map[int]*tally{}
	for _, in := range inds.Rows {
		if in.Period != latest || !in.Age.Valid || !in.Weight.Valid || !in.Aglomerado.Valid {
			continue
		}
		acc, ok := sums[in.Aglomerado.Value]
		if !ok {
			acc = &tally{}
			sums[in.Aglomerado.Value] = acc
		}
		acc.total += in.Weight.Value
		acc.count += in.Age.Value * in.Weight.Value
	}

	var out []models.AglomeradoValue
	for _, code := range sortedKeys(sums) {
		acc := sums[code]
		mean := 0.0
		if acc.total != 0 {
			mean = models.Round2(acc.count / acc.total)
		}
		out = append(out, models.AglomeradoValue{Aglomerado: code, Name: a.catalog.AglomeradoName(code), Value: mean})
	}
	if len(out) == 0 {
		return nil, latest, noData("no ages in %s", latest)
	}
	return out, latest, nil
}

// Pyramid bands are ten years wide and cover ages 0 to 99.
const (
	pyramidBandWidth = 10
	pyramidBands     = 10
)

// PopulationPyramid returns the weighted population of period by age band
// and sex. All bands are present, possibly with zero counts.
func (a *Aggregator) PopulationPyramid(inds *models.Individuals, period models.Period) ([]models.PyramidBand, error) {
	if err := requireIndividuals(inds, models.ColAge, models.ColSex); err != nil {
		return nil, err
	}
	bands := make([]models.PyramidBand, pyramidBands)
	for i := range bands {
		lo := i * pyramidBandWidth
		bands[i].AgeGroup = fmt.Sprintf("%d-%d", lo, lo+pyramidBandWidth-1)
	}
	found := false
	for _, in := range inds.Rows {
		if in.Period != period || !in.Age.Valid || in.Age.Value < 0 {
			continue
		}
		i := int(in.Age.Value) / pyramidBandWidth
		if i >= pyramidBands {
			continue
		}
		switch {
		case in.Sex.Is(1):
			bands[i].Male += in.Weight.Or(0)
		case in.Sex.Is(2):
			bands[i].Female += in.Weight.Or(0)
		default:
			continue
		}
		found = true
	}
	if !found {
		return nil, noData("no persons in %s", period)
	}
	return bands, nil
}

// EducationByYear returns the weighted population of each year by
// education label.
func (a *Aggregator) EducationByYear(inds *models.Individuals) ([]models.EducationCount, error) {
	if err := requireIndividuals(inds, models.ColEducation); err != nil {
		return nil, err
	}
	sums := map[periodLabel]float64{}
	for _, in := range inds.Rows {
		key := periodLabel{models.Period{Year: in.Period.Year}, in.Derived.EducationLabel}
		sums[key] += in.Weight.Or(0)
	}
	return educationCounts(sums), nil
}

// adultAge is the age above which a person counts in EducationByPeriod.
const adultAge = 18

// EducationByPeriod returns, for one aglomerado, the weighted adult
// population of each period by the five attainment labels.
func (a *Aggregator) EducationByPeriod(inds *models.Individuals, aglomerado int) ([]models.EducationCount, error) {
	if err := requireIndividuals(inds, models.ColAge, models.ColEducation, models.ColAglomerado); err != nil {
		return nil, err
	}
	attainment := educationOrder[:5]
	sums := map[periodLabel]float64{}
	for _, in := range inds.Rows {
		if !matchAglomerado(in.Aglomerado, aglomerado) || !in.Age.Valid || in.Age.Value <= adultAge {
			continue
		}
		if !slices.Contains(attainment, in.Derived.EducationLabel) {
			continue
		}
		sums[periodLabel{in.Period, in.Derived.EducationLabel}] += in.Weight.Or(0)
	}
	if len(sums) == 0 {
		return nil, noData("no adults in aglomerado %d", aglomerado)
	}
	return educationCounts(sums), nil
}

// AgeRange is a half-open age interval [Min, Max). Max 0 means unbounded.
type AgeRange struct {
	Name string
	Min  float64
	Max  float64
}

func (r AgeRange) contains(age float64) bool {
	return age >= r.Min && (r.Max == 0 || age < r.Max)
}

// AgeRanges are the ranges offered by MostCommonEducationByAgeRange.
var AgeRanges = []AgeRange{
	{Name: "20-30", Min: 20, Max: 30},
	{Name: "30-40", Min: 30, Max: 40},
	{Name: "40-50", Min: 40, Max: 50},
	{Name: "50-60", Min: 50, Max: 60},
	{Name: "60+", Min: 60},
}

// ErrUnknownAgeRange is returned for a range name outside AgeRanges.
var ErrUnknownAgeRange = errors.New("unknown age range")

// NoDataLabel marks a group with no observations.
const NoDataLabel = "No data"

// MostCommonEducationByAgeRange returns the CH12 level with the largest
// weighted population in each named range. No names selects every range.
func (a *Aggregator) MostCommonEducationByAgeRange(inds *models.Individuals, names ...string) ([]models.AgeRangeEducation, error) {
	if err := requireIndividuals(inds, models.ColAge, models.ColLevel); err != nil {
		return nil, err
	}
	ranges := AgeRanges
	if len(names) > 0 {
		ranges = make([]AgeRange, 0, len(names))
		for _, name := range names {
			i := slices.IndexFunc(AgeRanges, func(r AgeRange) bool { return r.Name == name })
			if i < 0 {
				return nil, errors.Wrapf(ErrUnknownAgeRange, "%q", name)
			}
			ranges = append(ranges, AgeRanges[i])
		}
	}

	out := make([]models.AgeRangeEducation, 0, len(ranges))
	for _, r := range ranges {
		levels := map[int]float64{}
		for _, in := range inds.Rows {
			if in.Age.Valid && in.Level.Valid && r.contains(in.Age.Value) {
				levels[in.Level.Value] += in.Weight.Or(0)
			}
		}
		label := NoDataLabel
		if code, ok := argmax(levels); ok {
			label = models.LabelOr(models.EducationLevels, models.Code{Value: code, Valid: true}, fmt.Sprintf("Unknown (%d)", code))
		}
		out = append(out, models.AgeRangeEducation{Range: r.Name, Level: label})
	}
	return out, nil
}

func aglomeradoShares(a *Aggregator, sums map[int]*tally) []models.AglomeradoShare {
	out := make([]models.AglomeradoShare, 0, len(sums))
	for _, code := range sortedKeys(sums) {
		acc := sums[code]
		out = append(out, models.AglomeradoShare{
			Aglomerado: code,
			Name:       a.catalog.AglomeradoName(code),
			Total:      acc.total,
			Count:      acc.count,
			Percentage: acc.percentage(),
		})
	}
	return out
}

// UniversityShareByAglomerado returns the weighted share of persons with
// higher or university education (NIVEL_ED 5 or 6) in each aglomerado.
func (a *Aggregator) UniversityShareByAglomerado(inds *models.Individuals) ([]models.AglomeradoShare, error) {
	if err := requireIndividuals(inds, models.ColEducation, models.ColAglomerado); err != nil {
		return nil, err
	}
	sums := map[int]*tally{}
	for _, in := range inds.Rows {
		if !in.Aglomerado.Valid {
			continue
		}
		acc, ok := sums[in.Aglomerado.Value]
		if !ok {
			acc = &tally{}
			sums[in.Aglomerado.Value] = acc
		}
		acc.total += in.Weight.Or(0)
		if in.Education.Is(5, 6) {
			acc.count += in.Weight.Or(0)
		}
	}
	if len(sums) == 0 {
		return nil, noData("no aglomerados")
	}
	return aglomeradoShares(a, sums), nil
}

// LowestUnemploymentPeriod returns the period with the smallest weighted
// unemployed population. Ties go to the earliest period.
func (a *Aggregator) LowestUnemploymentPeriod(inds *models.Individuals) (models.PeriodValue, error) {
	if err := requireIndividuals(inds, models.ColStatus); err != nil {
		return models.PeriodValue{}, err
	}
	sums := map[models.Period]float64{}
	for _, in := range inds.Rows {
		if in.Derived.LaborCondition == LaborUnemployed {
			sums[in.Period] += in.Weight.Or(0)
		}
	}
	periods := sortedPeriods(sums)
	if len(periods) == 0 {
		return models.PeriodValue{}, noData("no unemployed persons")
	}
	best := periods[0]
	for _, p := range periods[1:] {
		if sums[p] < sums[best] {
			best = p
		}
	}
	return models.PeriodValue{Year: best.Year, Quarter: best.Quarter, Value: sums[best]}, nil
}

// EmploymentBySector splits the employed population of each aglomerado by
// PP04A: 1 state, 2 private, 3 other. Unanswered rows are left out.
func (a *Aggregator) EmploymentBySector(inds *models.Individuals) ([]models.SectorEmployment, error) {
	if err := requireIndividuals(inds, models.ColStatus, models.ColSector, models.ColAglomerado); err != nil {
		return nil, err
	}
	sums := map[int]*[3]float64{}
	for _, in := range inds.Rows {
		if !in.Status.Is(1) || !in.Sector.Is(1, 2, 3) || !in.Aglomerado.Valid {
			continue
		}
		acc, ok := sums[in.Aglomerado.Value]
		if !ok {
			acc = &[3]float64{}
			sums[in.Aglomerado.Value] = acc
		}
		acc[in.Sector.Value-1] += in.Weight.Or(0)
	}

	var out []models.SectorEmployment
	for _, code := range sortedKeys(sums) {
		acc := sums[code]
		total := acc[0] + acc[1] + acc[2]
		out = append(out, models.SectorEmployment{
			Aglomerado: code,
			Name:       a.catalog.AglomeradoName(code),
			Total:      total,
			StatePct:   pct(acc[0], total),
			PrivatePct: pct(acc[1], total),
			OtherPct:   pct(acc[2], total),
		})
	}
	if len(out) == 0 {
		return nil, noData("no employed persons with a sector")
	}
	return out, nil
}

// Trend labels of RateEvolution.
const (
	TrendIncreased = "Increased"
	TrendDecreased = "Decreased"
	TrendEqual     = "Equal"
)

func trend(change float64) string {
	switch {
	case change > 0:
		return TrendIncreased
	case change < 0:
		return TrendDecreased
	}
	return TrendEqual
}

type laborSplit struct{ employed, unemployed float64 }

func (s laborSplit) rates() (float64, float64) {
	pea := s.employed + s.unemployed
	return pct(s.employed, pea), pct(s.unemployed, pea)
}

// RateEvolution compares the weighted labor rates of every aglomerado
// between the earliest and the latest period with active population.
// Aglomerados missing from either period are left out.
func (a *Aggregator) RateEvolution(inds *models.Individuals) ([]models.RateEvolution, error) {
	if err := requireIndividuals(inds, models.ColStatus, models.ColAglomerado); err != nil {
		return nil, err
	}
	byPeriod := map[models.Period]map[int]*laborSplit{}
	for _, in := range inds.Rows {
		if !in.Status.Is(1, 2) || !in.Aglomerado.Valid {
			continue
		}
		aglos, ok := byPeriod[in.Period]
		if !ok {
			aglos = map[int]*laborSplit{}
			byPeriod[in.Period] = aglos
		}
		acc, ok := aglos[in.Aglomerado.Value]
		if !ok {
			acc = &laborSplit{}
			aglos[in.Aglomerado.Value] = acc
		}
		if in.Status.Is(1) {
			acc.employed += in.Weight.Or(0)
		} else {
			acc.unemployed += in.Weight.Or(0)
		}
	}
	periods := sortedPeriods(byPeriod)
	if len(periods) < 2 {
		return nil, noData("need two periods with active population, have %d", len(periods))
	}
	first, last := periods[0], periods[len(periods)-1]
	before, after := byPeriod[first], byPeriod[last]

	var out []models.RateEvolution
	for _, code := range sortedKeys(before) {
		later, ok := after[code]
		if !ok {
			continue
		}
		empBefore, unempBefore := before[code].rates()
		empAfter, unempAfter := later.rates()
		empChange := models.Round2(empAfter - empBefore)
		unempChange := models.Round2(unempAfter - unempBefore)
		out = append(out, models.RateEvolution{
			Aglomerado:         code,
			Name:               a.catalog.AglomeradoName(code),
			From:               first.String(),
			To:                 last.String(),
			EmploymentBefore:   empBefore,
			UnemploymentBefore: unempBefore,
			EmploymentAfter:    empAfter,
			UnemploymentAfter:  unempAfter,
			EmploymentChange:   empChange,
			UnemploymentChange: unempChange,
			EmploymentTrend:    trend(empChange),
			UnemploymentTrend:  trend(unempChange),
		})
	}
	if len(out) == 0 {
		return nil, noData("no aglomerado observed in both %s and %s", first, last)
	}
	return out, nil
}

// seniorAge is the age from which a person counts as a senior.
const seniorAge = 60

type periodAglomerado struct {
	period     models.Period
	aglomerado int
}

// SeniorsIncompleteSecondary returns, per period and aglomerado, the weighted
// share of persons aged 60 or more whose education stops at incomplete
// secondary. No aglomerados selects all of them.
func (a *Aggregator) SeniorsIncompleteSecondary(inds *models.Individuals, aglomerados ...int) ([]models.SeniorEducation, error) {
	if err := requireIndividuals(inds, models.ColAge, models.ColEducation, models.ColAglomerado); err != nil {
		return nil, err
	}
	sums := map[periodAglomerado]*tally{}
	for _, in := range inds.Rows {
		if !in.Aglomerado.Valid || !in.Age.Valid || in.Age.Value < seniorAge {
			continue
		}
		if len(aglomerados) > 0 && !slices.Contains(aglomerados, in.Aglomerado.Value) {
			continue
		}
		key := periodAglomerado{in.Period, in.Aglomerado.Value}
		acc, ok := sums[key]
		if !ok {
			acc = &tally{}
			sums[key] = acc
		}
		acc.total += in.Weight.Or(0)
		if in.Derived.EducationLabel == EduIncompleteSecondary {
			acc.count += in.Weight.Or(0)
		}
	}

	out := make([]models.SeniorEducation, 0, len(sums))
	for k, acc := range sums {
		out = append(out, models.SeniorEducation{
			Year:       k.period.Year,
			Quarter:    k.period.Quarter,
			Aglomerado: k.aglomerado,
			Name:       a.catalog.AglomeradoName(k.aglomerado),
			Seniors:    acc.total,
			Incomplete: acc.count,
			Percentage: acc.percentage(),
		})
	}
	if len(out) == 0 {
		return nil, noData("no seniors")
	}
	slices.SortFunc(out, func(x, y models.SeniorEducation) int {
		if c := cmp.Compare(x.Year, y.Year); c != 0 {
			return c
		}
		if c := cmp.Compare(x.Quarter, y.Quarter); c != 0 {
			return c
		}
		return cmp.Compare(x.Aglomerado, y.Aglomerado)
	})
	return out, nil
}
