package services

import (
	"cmp"

	"golang.org/x/exp/slices"

	"eph-processor/internal/models"
)

// Households are matched to persons by key within the same period, since
// the same CODUSU is surveyed again in later quarters.
type periodKey struct {
	key    models.HouseholdKey
	period models.Period
}

func householdIndex(hhs *models.Households) map[periodKey]models.Household {
	index := make(map[periodKey]models.Household, len(hhs.Rows))
	for _, h := range hhs.Rows {
		index[periodKey{h.Key, h.Period}] = h
	}
	return index
}

// rankingSize is the number of entries UniversityHouseholdRanking keeps.
const rankingSize = 5

// UniversityHouseholdRanking returns the five aglomerados with the largest
// weighted share of households of two or more members where at least one
// member reached higher or university education (NIVEL_ED 5 or 6).
func (a *Aggregator) UniversityHouseholdRanking(hhs *models.Households, inds *models.Individuals) ([]models.RankingEntry, error) {
	if err := requireHouseholds(hhs, models.ColCodusu, models.ColNroHogar, models.ColMembers, models.ColAglomerado); err != nil {
		return nil, err
	}
	if err := requireIndividuals(inds, models.ColCodusu, models.ColNroHogar, models.ColEducation); err != nil {
		return nil, err
	}
	university := map[periodKey]bool{}
	for _, in := range inds.Rows {
		if in.Education.Is(5, 6) {
			university[periodKey{in.Key, in.Period}] = true
		}
	}
	shared := &models.Households{Columns: hhs.Columns}
	for _, h := range hhs.Rows {
		if h.Members.Valid && h.Members.Value >= 2 {
			shared.Rows = append(shared.Rows, h)
		}
	}
	sums := aglomeradoTally(shared, func(h models.Household) bool { return university[periodKey{h.Key, h.Period}] })
	if len(sums) == 0 {
		return nil, noData("no households with two or more members")
	}

	out := make([]models.RankingEntry, 0, len(sums))
	for _, code := range sortedKeys(sums) {
		acc := sums[code]
		out = append(out, models.RankingEntry{
			Aglomerado:     code,
			Name:           a.catalog.AglomeradoName(code),
			Households:     acc.total,
			WithUniversity: acc.count,
			Percentage:     acc.percentage(),
		})
	}
	slices.SortStableFunc(out, func(x, y models.RankingEntry) int { return cmp.Compare(y.Percentage, x.Percentage) })
	if len(out) > rankingSize {
		out = out[:rankingSize]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

// RetireesInInsufficientHousing returns, per aglomerado, the weighted share
// of retirees (CAT_INAC 1) in the latest period whose household has
// insufficient habitability. Retirees with no matching household are left out.
func (a *Aggregator) RetireesInInsufficientHousing(hhs *models.Households, inds *models.Individuals) ([]models.AglomeradoShare, models.Period, error) {
	if err := requireHouseholds(hhs, models.ColCodusu, models.ColNroHogar); err != nil {
		return nil, models.Period{}, err
	}
	if err := requireIndividuals(inds, models.ColCodusu, models.ColNroHogar, models.ColInactivity, models.ColAglomerado); err != nil {
		return nil, models.Period{}, err
	}
	latest, _ := LatestPeriod(IndividualPeriods(inds))
	index := householdIndex(hhs)

	sums := map[int]*tally{}
	for _, in := range inds.Rows {
		if in.Period != latest || !in.Inactivity.Is(1) || !in.Aglomerado.Valid {
			continue
		}
		h, ok := index[periodKey{in.Key, in.Period}]
		if !ok {
			continue
		}
		acc, ok := sums[in.Aglomerado.Value]
		if !ok {
			acc = &tally{}
			sums[in.Aglomerado.Value] = acc
		}
		acc.total += in.Weight.Or(0)
		if h.Derived.Habitability == HabitabilityInsufficient {
			acc.count += in.Weight.Or(0)
		}
	}
	if len(sums) == 0 {
		return nil, latest, noData("no retirees with a household in %s", latest)
	}
	return aglomeradoShares(a, sums), latest, nil
}

// UniversityInInsufficientHousing returns the weighted number of persons
// with higher or university education living in a dwelling of insufficient
// habitability in the fourth quarter of year.
func (a *Aggregator) UniversityInInsufficientHousing(hhs *models.Households, inds *models.Individuals, year int) (models.PeriodValue, error) {
	if err := requireHouseholds(hhs, models.ColCodusu, models.ColNroHogar); err != nil {
		return models.PeriodValue{}, err
	}
	if err := requireIndividuals(inds, models.ColCodusu, models.ColNroHogar, models.ColEducation); err != nil {
		return models.PeriodValue{}, err
	}
	period := models.Period{Year: year, Quarter: 4}
	index := householdIndex(hhs)

	res := models.PeriodValue{Year: period.Year, Quarter: period.Quarter}
	observed := false
	for _, in := range inds.Rows {
		if in.Period != period {
			continue
		}
		observed = true
		if in.Derived.EducationLabel != EduHigher {
			continue
		}
		if h, ok := index[periodKey{in.Key, in.Period}]; ok && h.Derived.Habitability == HabitabilityInsufficient {
			res.Value += in.Weight.Or(0)
		}
	}
	if !observed {
		return models.PeriodValue{}, noData("no persons in %s", period)
	}
	return res, nil
}
