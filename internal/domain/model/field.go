package model

// Field identifies one named value of an evaluation context. The set is
// closed; names outside it decode to FieldUnsupported.
type Field uint8

const (
	FieldUnsupported Field = iota

	// game
	FieldHomeScore
	FieldAwayScore
	FieldTotalScore
	FieldQuarter
	FieldTimeRemainingSeconds
	FieldGameSecondsElapsed
	FieldIsOvertime
	FieldIsHalftime
	FieldStatus
	FieldHomeTeam
	FieldAwayTeam

	// lead
	FieldCurrentLead
	FieldScoreDifferential
	FieldHomeLeading
	FieldAwayLeading
	FieldIsTied
	FieldLeadingScore
	FieldTrailingScore
	FieldLeadingSide
	FieldLeadingTeamName
	FieldTrailingTeamName

	// quarters
	FieldQ1Home
	FieldQ1Away
	FieldQ1Total
	FieldQ1Differential
	FieldQ2Home
	FieldQ2Away
	FieldQ2Total
	FieldQ2Differential
	FieldQ3Home
	FieldQ3Away
	FieldQ3Total
	FieldQ3Differential
	FieldQ4Home
	FieldQ4Away
	FieldQ4Total
	FieldQ4Differential

	// halftime and halves
	FieldHalftimeHome
	FieldHalftimeAway
	FieldHalftimeTotal
	FieldHalftimeDifferential
	FieldHalftimeLead
	FieldFirstHalfTotal
	FieldSecondHalfTotal
	FieldSecondHalfHome
	FieldSecondHalfAway

	// odds
	FieldHomeSpread
	FieldAwaySpread
	FieldHomeMoneyline
	FieldAwayMoneyline
	FieldTotalLine
	FieldLeadingTeamSpread
	FieldTrailingTeamSpread
	FieldLeadingTeamMoneyline
	FieldTrailingTeamMoneyline

	// team stats
	FieldHomeWinRate
	FieldAwayWinRate
	FieldHomePointsPerGame
	FieldAwayPointsPerGame
	FieldWinRateDiff
	FieldPointsPerGameDiff
	FieldExperienceDiff

	// prior trigger
	FieldPriorLeaderStillLeading
	FieldPriorLeaderLead
	FieldPriorTriggerLead
	FieldLeadChangeSinceTrigger

	fieldCount
)

// FieldCount is the number of fields including FieldUnsupported.
const FieldCount = int(fieldCount)

var fieldNames = [fieldCount]string{
	FieldUnsupported:          "unsupported",
	FieldHomeScore:            "homeScore",
	FieldAwayScore:            "awayScore",
	FieldTotalScore:           "totalScore",
	FieldQuarter:              "quarter",
	FieldTimeRemainingSeconds: "timeRemainingSeconds",
	FieldGameSecondsElapsed:   "gameSecondsElapsed",
	FieldIsOvertime:           "isOvertime",
	FieldIsHalftime:           "isHalftime",
	FieldStatus:               "status",
	FieldHomeTeam:             "homeTeam",
	FieldAwayTeam:             "awayTeam",

	FieldCurrentLead:       "currentLead",
	FieldScoreDifferential: "scoreDifferential",
	FieldHomeLeading:       "homeLeading",
	FieldAwayLeading:       "awayLeading",
	FieldIsTied:            "isTied",
	FieldLeadingScore:      "leadingScore",
	FieldTrailingScore:     "trailingScore",
	FieldLeadingSide:       "leadingSide",
	FieldLeadingTeamName:   "leadingTeamName",
	FieldTrailingTeamName:  "trailingTeamName",

	FieldQ1Home: "q1Home", FieldQ1Away: "q1Away", FieldQ1Total: "q1Total", FieldQ1Differential: "q1Differential",
	FieldQ2Home: "q2Home", FieldQ2Away: "q2Away", FieldQ2Total: "q2Total", FieldQ2Differential: "q2Differential",
	FieldQ3Home: "q3Home", FieldQ3Away: "q3Away", FieldQ3Total: "q3Total", FieldQ3Differential: "q3Differential",
	FieldQ4Home: "q4Home", FieldQ4Away: "q4Away", FieldQ4Total: "q4Total", FieldQ4Differential: "q4Differential",

	FieldHalftimeHome:         "halftimeHome",
	FieldHalftimeAway:         "halftimeAway",
	FieldHalftimeTotal:        "halftimeTotal",
	FieldHalftimeDifferential: "halftimeDifferential",
	FieldHalftimeLead:         "halftimeLead",
	FieldFirstHalfTotal:       "firstHalfTotal",
	FieldSecondHalfTotal:      "secondHalfTotal",
	FieldSecondHalfHome:       "secondHalfHome",
	FieldSecondHalfAway:       "secondHalfAway",

	FieldHomeSpread:            "homeSpread",
	FieldAwaySpread:            "awaySpread",
	FieldHomeMoneyline:         "homeMoneyline",
	FieldAwayMoneyline:         "awayMoneyline",
	FieldTotalLine:             "totalLine",
	FieldLeadingTeamSpread:     "leadingTeamSpread",
	FieldTrailingTeamSpread:    "trailingTeamSpread",
	FieldLeadingTeamMoneyline:  "leadingTeamMoneyline",
	FieldTrailingTeamMoneyline: "trailingTeamMoneyline",

	FieldHomeWinRate:       "homeWinRate",
	FieldAwayWinRate:       "awayWinRate",
	FieldHomePointsPerGame: "homePointsPerGame",
	FieldAwayPointsPerGame: "awayPointsPerGame",
	FieldWinRateDiff:       "winRateDiff",
	FieldPointsPerGameDiff: "pointsPerGameDiff",
	FieldExperienceDiff:    "experienceDiff",

	FieldPriorLeaderStillLeading: "priorLeaderStillLeading",
	FieldPriorLeaderLead:         "priorLeaderLead",
	FieldPriorTriggerLead:        "priorTriggerLead",
	FieldLeadChangeSinceTrigger:  "leadChangeSinceTrigger",
}

var fieldsByName = func() map[string]Field {
	m := make(map[string]Field, len(fieldNames))
	for i, n := range fieldNames {
		if Field(i) != FieldUnsupported {
			m[n] = Field(i)
		}
	}
	return m
}()

// ParseField maps a name to its Field; unknown names yield FieldUnsupported.
func ParseField(name string) Field {
	if f, ok := fieldsByName[name]; ok {
		return f
	}
	return FieldUnsupported
}

// Fields returns every supported field in declaration order.
func Fields() []Field {
	out := make([]Field, 0, FieldCount-1)
	for f := FieldUnsupported + 1; f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}

func (f Field) String() string {
	if f >= fieldCount {
		return fieldNames[FieldUnsupported]
	}
	return fieldNames[f]
}

// Supported reports whether f names a real context field.
func (f Field) Supported() bool { return f != FieldUnsupported && f < fieldCount }

// Kind returns the value kind the field carries when non-null.
func (f Field) Kind() Kind {
	switch f {
	case FieldStatus, FieldHomeTeam, FieldAwayTeam, FieldLeadingSide, FieldLeadingTeamName, FieldTrailingTeamName:
		return KindString
	case FieldIsOvertime, FieldIsHalftime, FieldHomeLeading, FieldAwayLeading, FieldIsTied,
		FieldPriorLeaderStillLeading, FieldLeadChangeSinceTrigger:
		return KindBool
	case FieldUnsupported:
		return KindNull
	default:
		if f >= fieldCount {
			return KindNull
		}
		return KindNumber
	}
}

// MarshalText returns the field name.
func (f Field) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText never fails; unknown names decode to FieldUnsupported so a
// strategy with a typo still loads and its condition fails closed.
func (f *Field) UnmarshalText(b []byte) error {
	*f = ParseField(string(b))
	return nil
}
