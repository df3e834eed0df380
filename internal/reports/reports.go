// Package reports names every indicator the service exposes so the HTTP API
// and the CLI run them the same way.
package reports

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"eph-processor/internal/models"
	"eph-processor/internal/services"
)

// ErrUnknownReport is returned by Lookup callers for an unregistered name.
var ErrUnknownReport = errors.New("unknown report")

// ErrBadParams is returned when report parameters fail to parse or a
// required one is missing.
var ErrBadParams = errors.New("invalid report parameters")

// Source provides the classified records.
type Source interface {
	Households() (*models.Households, error)
	Individuals() (*models.Individuals, error)
}

// Env is what a report runs against. Income may be nil when the reference
// file is unavailable; reports that need it then return services.ErrNoData.
type Env struct {
	Source     Source
	Aggregator *services.Aggregator
	Income     *services.IncomeService
}

// Params are the optional filters of a report. Zero values mean "not set".
type Params struct {
	Year        int
	Quarter     int
	Aglomerado  int
	Aglomerados []int
	Ranges      []string
}

// ParseParams reads year, quarter, aglomerado, aglomerados and range from a
// query-string style accessor. Lists are comma separated.
func ParseParams(get func(string) string) (Params, error) {
	var p Params
	var err error
	if p.Year, err = optionalInt(get("year")); err != nil {
		return p, errors.Wrap(err, "year")
	}
	if p.Quarter, err = optionalInt(get("quarter")); err != nil {
		return p, errors.Wrap(err, "quarter")
	}
	if p.Quarter < 0 || p.Quarter > 4 {
		return p, errors.Wrapf(ErrBadParams, "quarter %d outside 1..4", p.Quarter)
	}
	if p.Aglomerado, err = optionalInt(get("aglomerado")); err != nil {
		return p, errors.Wrap(err, "aglomerado")
	}
	for _, raw := range splitList(get("aglomerados")) {
		code, err := strconv.Atoi(raw)
		if err != nil {
			return p, errors.Wrapf(ErrBadParams, "aglomerados: %q is not a code", raw)
		}
		p.Aglomerados = append(p.Aglomerados, code)
	}
	p.Ranges = splitList(get("range"))
	return p, nil
}

func optionalInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(ErrBadParams, "%q is not a number", raw)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Report is one registered indicator.
type Report struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	run         func(env Env, p Params) (interface{}, error)
}

// Run computes the report rows.
func (r Report) Run(env Env, p Params) (interface{}, error) {
	return r.run(env, p)
}

var registry = map[string]Report{}

func register(name, description string, run func(env Env, p Params) (interface{}, error)) {
	registry[name] = Report{Name: name, Description: description, run: run}
}

// Lookup returns the report registered under name.
func Lookup(name string) (Report, error) {
	r, ok := registry[name]
	if !ok {
		return Report{}, errors.Wrapf(ErrUnknownReport, "%q", name)
	}
	return r, nil
}

// All lists the registered reports ordered by name.
func All() []Report {
	out := make([]Report, 0, len(registry))
	for _, r := range registry {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Report) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// individuals and households wrap a report body with record loading.
func individuals(fn func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error)) func(Env, Params) (interface{}, error) {
	return func(env Env, p Params) (interface{}, error) {
		inds, err := env.Source.Individuals()
		if err != nil {
			return nil, err
		}
		return fn(env.Aggregator, inds, p)
	}
}

func households(fn func(a *services.Aggregator, hhs *models.Households, p Params) (interface{}, error)) func(Env, Params) (interface{}, error) {
	return func(env Env, p Params) (interface{}, error) {
		hhs, err := env.Source.Households()
		if err != nil {
			return nil, err
		}
		return fn(env.Aggregator, hhs, p)
	}
}

func both(fn func(a *services.Aggregator, hhs *models.Households, inds *models.Individuals, p Params) (interface{}, error)) func(Env, Params) (interface{}, error) {
	return func(env Env, p Params) (interface{}, error) {
		hhs, err := env.Source.Households()
		if err != nil {
			return nil, err
		}
		inds, err := env.Source.Individuals()
		if err != nil {
			return nil, err
		}
		return fn(env.Aggregator, hhs, inds, p)
	}
}

// period resolves the year/quarter params, defaulting to the latest period
// of periods for whichever part is unset.
func period(p Params, periods []models.Period) (models.Period, error) {
	latest, ok := services.LatestPeriod(periods)
	if !ok {
		return models.Period{}, errors.Wrap(services.ErrNoData, "no periods")
	}
	if p.Year == 0 && p.Quarter == 0 {
		return latest, nil
	}
	out := models.Period{Year: p.Year, Quarter: p.Quarter}
	if out.Year == 0 {
		out.Year = latest.Year
	}
	if out.Quarter == 0 {
		out.Quarter = 4
	}
	return out, nil
}

func year(p Params, periods []models.Period) (int, error) {
	if p.Year != 0 {
		return p.Year, nil
	}
	latest, ok := services.LatestPeriod(periods)
	if !ok {
		return 0, errors.Wrap(services.ErrNoData, "no periods")
	}
	return latest.Year, nil
}

func requireAglomerado(p Params) error {
	if p.Aglomerado == services.AllAglomerados {
		return errors.Wrap(ErrBadParams, "aglomerado is required")
	}
	return nil
}

func init() {
	register("labor-rates", "Employment and unemployment rate per period", individuals(
		func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error) {
			return a.LaborRates(inds, p.Aglomerado)
		}))
	register("unemployment-rate", "Unemployment rate per period", individuals(
		func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error) {
			return a.UnemploymentRate(inds, p.Aglomerado)
		}))
	register("employment-rate", "Employment rate per period", individuals(
		func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error) {
			return a.EmploymentRate(inds, p.Aglomerado)
		}))
	register("dependency-ratio", "Dependent over working-age population per period", individuals(
		func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error) {
			return a.DependencyRatio(inds, p.Aglomerado)
		}))
	register("age-stats", "Weighted mean and median age per period", individuals(
		func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error) {
			return a.AgeStats(inds)
		}))
	register("literacy", "Reading and writing ability of persons older than six per year", individuals(
		func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error) {
			return a.Literacy(inds)
		}))
	register("unemployed-by-education", "Unemployed population by education per period", individuals(
		func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error) {
			return a.UnemployedByEducation(inds)
		}))
	register("mean-age-by-aglomerado", "Weighted mean age per aglomerado in the latest period", individuals(
		func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error) {
			rows, _, err := a.MeanAgeByAglomerado(inds)
			return rows, err
		}))
	register("population-pyramid", "Population by ten-year age band and sex", individuals(
		func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error) {
			per, err := period(p, services.IndividualPeriods(inds))
			if err != nil {
				return nil, err
			}
			return a.PopulationPyramid(inds, per)
		}))
	register("education-by-year", "Population by education label per year", individuals(
		func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error) {
			return a.EducationByYear(inds)
		}))
	register("education-by-period", "Adults by education label per period in one aglomerado", individuals(
		func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error) {
			if err := requireAglomerado(p); err != nil {
				return nil, err
			}
			return a.EducationByPeriod(inds, p.Aglomerado)
		}))
	register("most-common-education", "Most common CH12 level per age range", individuals(
		func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error) {
			rows, err := a.MostCommonEducationByAgeRange(inds, p.Ranges...)
			if errors.Is(err, services.ErrUnknownAgeRange) {
				return nil, errors.Wrap(ErrBadParams, err.Error())
			}
			return rows, err
		}))
	register("university-share", "Share of persons with higher education per aglomerado", individuals(
		func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error) {
			return a.UniversityShareByAglomerado(inds)
		}))
	register("lowest-unemployment", "Period with the smallest unemployed population", individuals(
		func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error) {
			return a.LowestUnemploymentPeriod(inds)
		}))
	register("employment-by-sector", "Employed population by sector per aglomerado", individuals(
		func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error) {
			return a.EmploymentBySector(inds)
		}))
	register("rate-evolution", "Labor rates of each aglomerado in the earliest and latest period", individuals(
		func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error) {
			return a.RateEvolution(inds)
		}))
	register("seniors-incomplete-secondary", "Share of persons aged 60+ with incomplete secondary", individuals(
		func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error) {
			aglos := p.Aglomerados
			if len(aglos) == 0 && p.Aglomerado != services.AllAglomerados {
				aglos = []int{p.Aglomerado}
			}
			return a.SeniorsIncompleteSecondary(inds, aglos...)
		}))

	register("household-types", "Share of each household type", households(
		func(a *services.Aggregator, hhs *models.Households, p Params) (interface{}, error) {
			return a.HouseholdTypeShares(hhs, p.Year)
		}))
	register("floor-material", "Predominant floor material per aglomerado", households(
		func(a *services.Aggregator, hhs *models.Households, p Params) (interface{}, error) {
			return a.PredominantFloorMaterial(services.FilterHouseholdsByYear(hhs, p.Year))
		}))
	register("bathroom-share", "Proportion of dwellings with a bathroom per aglomerado", households(
		func(a *services.Aggregator, hhs *models.Households, p Params) (interface{}, error) {
			return a.BathroomShare(services.FilterHouseholdsByYear(hhs, p.Year))
		}))
	register("tenure-evolution", "Tenure types per year in one aglomerado", households(
		func(a *services.Aggregator, hhs *models.Households, p Params) (interface{}, error) {
			if err := requireAglomerado(p); err != nil {
				return nil, err
			}
			return a.TenureEvolution(hhs, p.Aglomerado)
		}))
	register("slum-share", "Share of dwellings in a slum per aglomerado", households(
		func(a *services.Aggregator, hhs *models.Households, p Params) (interface{}, error) {
			return a.SlumShare(services.FilterHouseholdsByYear(hhs, p.Year))
		}))
	register("habitability", "Habitability conditions per aglomerado", households(
		func(a *services.Aggregator, hhs *models.Households, p Params) (interface{}, error) {
			return a.HabitabilityByAglomerado(services.FilterHouseholdsByYear(hhs, p.Year))
		}))
	register("renter-share", "Share of tenant households per region", households(
		func(a *services.Aggregator, hhs *models.Households, p Params) (interface{}, error) {
			return a.RenterShareByRegion(services.FilterHouseholdsByYear(hhs, p.Year))
		}))
	register("owner-occupied", "Share of owner-occupied dwellings per aglomerado", households(
		func(a *services.Aggregator, hhs *models.Households, p Params) (interface{}, error) {
			return a.OwnerOccupiedShare(services.FilterHouseholdsByYear(hhs, p.Year))
		}))
	register("crowded-without-bathroom", "Aglomerado with most crowded dwellings without a bathroom", households(
		func(a *services.Aggregator, hhs *models.Households, p Params) (interface{}, error) {
			return a.MostCrowdedWithoutBathroom(services.FilterHouseholdsByYear(hhs, p.Year))
		}))
	register("precarious-roof", "Aglomerados with the highest and lowest precarious roof share", households(
		func(a *services.Aggregator, hhs *models.Households, p Params) (interface{}, error) {
			y, err := year(p, services.HouseholdPeriods(hhs))
			if err != nil {
				return nil, err
			}
			return a.PrecariousRoofExtremes(hhs, y)
		}))
	register("poverty-headroom", "Four-member households below the poverty and indigence lines", func(env Env, p Params) (interface{}, error) {
		if env.Income == nil {
			return nil, errors.Wrap(services.ErrNoData, "income reference not loaded")
		}
		hhs, err := env.Source.Households()
		if err != nil {
			return nil, err
		}
		per, err := period(p, services.HouseholdPeriods(hhs))
		if err != nil {
			return nil, err
		}
		lines, err := env.Income.QuarterLines(per)
		if err != nil {
			return nil, err
		}
		return env.Aggregator.PovertyHeadroom(hhs, lines)
	})

	register("university-household-ranking", "Top aglomerados by households with a university member", both(
		func(a *services.Aggregator, hhs *models.Households, inds *models.Individuals, p Params) (interface{}, error) {
			return a.UniversityHouseholdRanking(hhs, inds)
		}))
	register("retirees-insufficient-housing", "Share of retirees in insufficient housing per aglomerado", both(
		func(a *services.Aggregator, hhs *models.Households, inds *models.Individuals, p Params) (interface{}, error) {
			rows, _, err := a.RetireesInInsufficientHousing(hhs, inds)
			return rows, err
		}))
	register("university-insufficient-housing", "Persons with higher education in insufficient housing", both(
		func(a *services.Aggregator, hhs *models.Households, inds *models.Individuals, p Params) (interface{}, error) {
			y, err := year(p, services.IndividualPeriods(inds))
			if err != nil {
				return nil, err
			}
			return a.UniversityInInsufficientHousing(hhs, inds, y)
		}))

	register("coverage", "Periods held by the individual records", individuals(
		func(a *services.Aggregator, inds *models.Individuals, p Params) (interface{}, error) {
			return services.Coverage(services.IndividualPeriods(services.FilterIndividualsByYear(inds, p.Year)))
		}))
}
