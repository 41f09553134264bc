package simulator

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/okian/courtside/internal/domain/model"
)

// Regulation quarters are sampled once per game minute.
const quarterMinutes = model.QuarterSeconds / 60

var teams = []model.Team{
	{ID: "bos", Name: "Boston", Abbreviation: "BOS"},
	{ID: "den", Name: "Denver", Abbreviation: "DEN"},
	{ID: "mia", Name: "Miami", Abbreviation: "MIA"},
	{ID: "phx", Name: "Phoenix", Abbreviation: "PHX"},
	{ID: "nyk", Name: "New York", Abbreviation: "NYK"},
	{ID: "gsw", Name: "Golden State", Abbreviation: "GSW"},
	{ID: "mil", Name: "Milwaukee", Abbreviation: "MIL"},
	{ID: "dal", Name: "Dallas", Abbreviation: "DAL"},
}

// Timeline is the ordered sequence of updates for one game.
type Timeline struct {
	GameID  string              `json:"gameId"`
	Updates []*model.GameUpdate `json:"updates"`
}

// Generate builds n game timelines from seed.
func Generate(n int, seed uint64) []Timeline {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]Timeline, n)
	for i := range out {
		id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("courtside-sim/%d/%d", seed, i))).String()
		out[i] = generateGame(id, rng)
	}
	return out
}

func generateGame(id string, rng *rand.Rand) Timeline {
	hi := rng.IntN(len(teams))
	ai := (hi + 1 + rng.IntN(len(teams)-1)) % len(teams)
	home, away := teams[hi], teams[ai]

	// Team strength drives both scoring pace and the opening line.
	homePace := 0.9 + rng.Float64()*0.5
	awayPace := 0.9 + rng.Float64()*0.5
	openSpread := roundHalf((awayPace - homePace) * 24)
	openTotal := roundHalf((homePace + awayPace) * 2.2 * 48)

	t := Timeline{GameID: id}
	scheduled := model.StatusScheduled
	t.Updates = append(t.Updates, &model.GameUpdate{
		ID: id, Home: &home, Away: &away,
		HomeScore: intPtr(0), AwayScore: intPtr(0), Quarter: intPtr(0), Clock: strPtr("12:00"),
		Status: &scheduled,
		Odds:   odds(openSpread, openTotal, 0),
		Stats: &model.MatchupStats{
			Home: &model.TeamStats{WinRate: 0.35 + homePace/5, PointsPerGame: 100 + homePace*12, Experience: float64(rng.IntN(10))},
			Away: &model.TeamStats{WinRate: 0.35 + awayPace/5, PointsPerGame: 100 + awayPace*12, Experience: float64(rng.IntN(10))},
		},
	})

	var hs, as int
	var quarters []model.Score
	live := model.StatusLive
	for q := 1; q <= model.RegulationCount; q++ {
		qh, qa := 0, 0
		for m := quarterMinutes - 1; m >= 0; m-- {
			dh, da := points(rng, homePace), points(rng, awayPace)
			hs, as, qh, qa = hs+dh, as+da, qh+dh, qa+da

			played := float64((q-1)*quarterMinutes+quarterMinutes-m) / float64(model.RegulationCount*quarterMinutes)
			u := &model.GameUpdate{
				ID: id, HomeScore: intPtr(hs), AwayScore: intPtr(as),
				Quarter: intPtr(q), Clock: strPtr(model.FormatClock(m * 60)),
				Status:   &live,
				Quarters: append(append([]model.Score(nil), quarters...), model.Score{Home: qh, Away: qa}),
				Odds:     odds(openSpread*(1-played)-float64(hs-as)*played, openTotal, played),
			}
			t.Updates = append(t.Updates, u)
		}
		quarters = append(quarters, model.Score{Home: qh, Away: qa})

		if q == 2 {
			half := model.StatusHalftime
			t.Updates = append(t.Updates, &model.GameUpdate{
				ID: id, Status: &half, Halftime: &model.Score{Home: hs, Away: as},
				Quarters: append([]model.Score(nil), quarters...),
			})
		}
	}

	// Overtime periods until the tie breaks.
	for q := model.RegulationCount + 1; hs == as; q++ {
		dh, da := 5+rng.IntN(10), 5+rng.IntN(10)
		hs, as = hs+dh, as+da
		quarters = append(quarters, model.Score{Home: dh, Away: da})
		t.Updates = append(t.Updates, &model.GameUpdate{
			ID: id, HomeScore: intPtr(hs), AwayScore: intPtr(as), Quarter: intPtr(q), Clock: strPtr("00:00"),
			Status: &live, Quarters: append([]model.Score(nil), quarters...),
		})
	}

	final := model.StatusFinal
	t.Updates = append(t.Updates, &model.GameUpdate{
		ID: id, HomeScore: intPtr(hs), AwayScore: intPtr(as), Clock: strPtr("00:00"),
		Status: &final, Quarters: append([]model.Score(nil), quarters...),
	})
	return t
}

// points draws one minute of scoring.
func points(rng *rand.Rand, pace float64) int {
	p := 0
	for i := 0; i < 3; i++ {
		if rng.Float64() < 0.55*pace {
			p += 2
			if rng.Float64() < 0.3 {
				p++
			}
		}
	}
	return p
}

// odds builds a market; moneylines follow the spread and the total drifts as
// the game is played.
func odds(homeSpread, total, played float64) *model.OddsUpdate {
	spread := roundHalf(homeSpread)
	fav := decimal.NewFromInt(-110).Sub(decimal.NewFromFloat(spread).Abs().Mul(decimal.NewFromInt(20)))
	dog := fav.Neg().Sub(decimal.NewFromInt(20))
	homeML, awayML := fav, dog
	if spread > 0 {
		homeML, awayML = dog, fav
	}
	line := decimal.NewFromFloat(roundHalf(total * (1 - 0.05*played)))
	s := decimal.NewFromFloat(spread)
	return &model.OddsUpdate{HomeSpread: &s, HomeMoneyline: &homeML, AwayMoneyline: &awayML, TotalLine: &line}
}

func roundHalf(f float64) float64 {
	return math.Round(f*2) / 2
}

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }
